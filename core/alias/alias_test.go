package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	table := New()
	table.Set("ll", "ls -l")
	table.Set("la", "ls -A")
	table.Set("gs", "git status")

	t.Run("get", func(t *testing.T) {
		value, ok := table.Get("ll")
		assert.True(t, ok)
		assert.Equal(t, "ls -l", value)

		_, ok = table.Get("missing")
		assert.False(t, ok)
	})

	t.Run("redefine keeps position", func(t *testing.T) {
		table.Set("la", "ls -a")
		assert.Equal(t, []string{"ll", "la", "gs"}, table.Names())
		value, _ := table.Get("la")
		assert.Equal(t, "ls -a", value)
		assert.Equal(t, 3, table.Len())
	})

	t.Run("remove", func(t *testing.T) {
		assert.True(t, table.Remove("la"))
		assert.False(t, table.Remove("la"))
		assert.Equal(t, []string{"ll", "gs"}, table.Names())
	})

	t.Run("each", func(t *testing.T) {
		var got []string
		table.Each(func(name, value string) {
			got = append(got, name+"="+value)
		})
		assert.Equal(t, []string{"ll=ls -l", "gs=git status"}, got)
	})
}

func TestClone(t *testing.T) {
	table := New()
	table.Set("a", "b")

	clone := table.Clone()
	clone.Set("c", "d")
	clone.Remove("a")

	assert.Equal(t, []string{"a"}, table.Names())
	assert.Equal(t, []string{"c"}, clone.Names())
}

func TestClear(t *testing.T) {
	table := New()
	table.Set("a", "b")
	table.Clear()

	assert.Equal(t, 0, table.Len())
	_, ok := table.Get("a")
	assert.False(t, ok)
}
