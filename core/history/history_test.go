package history

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestAdd(t *testing.T) {
	store := New(10)

	assert.True(t, store.Add("ls"))
	assert.False(t, store.Add(""), "empty lines are dropped")
	assert.False(t, store.Add("ls"), "consecutive duplicates are dropped")
	assert.True(t, store.Add("pwd"))
	assert.True(t, store.Add("ls"), "non-consecutive duplicates are kept")

	assert.Equal(t, []string{"ls", "pwd", "ls"}, store.Entries())
	last, ok := store.Last()
	assert.True(t, ok)
	assert.Equal(t, "ls", last)
}

func TestEviction(t *testing.T) {
	store := New(3)
	for i := 1; i <= 5; i++ {
		store.Add(fmt.Sprintf("cmd%d", i))
	}

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, []string{"cmd3", "cmd4", "cmd5"}, store.Entries())
	assert.Equal(t, 3, store.Number(0))
	assert.Equal(t, 5, store.Number(2))
	assert.Equal(t, "", store.At(3))
	assert.Equal(t, "", store.At(-1))
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
}

func TestClear(t *testing.T) {
	store := New(3)
	store.Add("a")
	store.Clear()

	assert.Equal(t, 0, store.Len())
	_, ok := store.Last()
	assert.False(t, ok)

	store.Add("b")
	assert.Equal(t, 1, store.Number(0))
}

func TestClone(t *testing.T) {
	store := New(3)
	store.Add("a")
	clone := store.Clone()
	clone.Add("b")

	assert.Equal(t, []string{"a"}, store.Entries())
	assert.Equal(t, []string{"a", "b"}, clone.Entries())
}

func TestSaveLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()

	store := New(2)
	for _, line := range []string{"one", "two", "three"} {
		store.Add(line)
	}
	assert.Nil(t, store.Save(fsys, "/home/me/.xsh_history"))

	raw, err := afero.ReadFile(fsys, "/home/me/.xsh_history")
	assert.Nil(t, err)
	assert.Equal(t, "two\nthree\n", string(raw))

	loaded := New(10)
	assert.Nil(t, loaded.Load(fsys, "/home/me/.xsh_history"))
	assert.Equal(t, []string{"two", "three"}, loaded.Entries())
}

func TestLoadTruncates(t *testing.T) {
	fsys := afero.NewMemMapFs()
	assert.Nil(t, afero.WriteFile(fsys, "hist", []byte("a\nb\n\nc\r\nd\n"), 0600))

	store := New(2)
	assert.Nil(t, store.Load(fsys, "hist"))
	assert.Equal(t, []string{"c", "d"}, store.Entries())
}

func TestLoadMissing(t *testing.T) {
	err := New(2).Load(afero.NewMemMapFs(), "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
