package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// Initialize creates the configuration directory at path and writes the
// default configuration file if one doesn't exist yet.
func Initialize(fsys afero.Fs, path string, logger *log.Logger) (*Configuration, error) {
	logger.Printf("Initializing configuration in %q\n", path)
	if err := fsys.MkdirAll(path, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(path, ConfigurationName)
	switch _, err := fsys.Stat(configPath); {
	case err == nil:
		logger.Printf("- %s already exists, leaving it alone\n", ConfigurationName)
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("- writing %s\n", ConfigurationName)
		if err := WriteDefault(fsys, configPath); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return Load(fsys, path)
}
