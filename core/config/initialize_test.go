package config

import (
	"bytes"
	"io"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if _, err := Initialize(fsys, "/home/me/.config/xsh", log.New(io.Discard, "", 0)); err != nil {
		t.Fatal(err)
	}

	// Check that the config is valid
	cfg, err := Load(fsys, "/home/me/.config/xsh")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, defaultConfig(), cfg)
}

func TestInitializeKeepsExisting(t *testing.T) {
	fsys := afero.NewMemMapFs()
	assert.Nil(t, afero.WriteFile(fsys, "/cfg/config.yaml", []byte("pipefail: true\n"), 0644))

	var out bytes.Buffer
	cfg, err := Initialize(fsys, "/cfg", log.New(&out, "", 0))
	assert.Nil(t, err)
	assert.True(t, cfg.Pipefail)
	assert.Contains(t, out.String(), "already exists")
}
