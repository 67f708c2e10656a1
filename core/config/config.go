package config

import (
	_ "embed"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	AppName           = "xsh"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type Configuration struct {
	HistoryFile   string `json:"history_file" validate:"required"`
	HistorySize   int    `json:"history_size" validate:"gte=1"`
	RCFile        string `json:"rc_file"`
	MaxAliasDepth int    `json:"max_alias_depth" validate:"gte=1"`
	MaxJobs       int    `json:"max_jobs" validate:"gte=0"`
	Pipefail      bool   `json:"pipefail"`
	Prompt        string `json:"prompt" validate:"required"`
	Color         string `json:"color" validate:"oneof=auto always never"`
	LogFile       string `json:"log_file"`

	Aliases map[string]string `json:"aliases" validate:"dive,keys,required,endkeys"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// ResolvePath expands a leading ~ in p to home.
func ResolvePath(p, home string) string {
	switch {
	case p == "~":
		return home
	case strings.HasPrefix(p, "~/"):
		return filepath.Join(home, p[2:])
	}
	return p
}

// HistoryPath is the history file with ~ resolved.
func (c *Configuration) HistoryPath(home string) string {
	return ResolvePath(c.HistoryFile, home)
}

// RCPath is the rc file with ~ resolved, empty if none is configured.
func (c *Configuration) RCPath(home string) string {
	return ResolvePath(c.RCFile, home)
}

// LogPath is the event log with ~ resolved, empty if logging is off.
func (c *Configuration) LogPath(home string) string {
	return ResolvePath(c.LogFile, home)
}

// DefaultDir is where the configuration lives when no path is given:
// $XDG_CONFIG_HOME/xsh, falling back to ~/.config/xsh.
func DefaultDir(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	return filepath.Join(getenv("HOME"), ".config", AppName)
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return defaultConfig()
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// WriteDefault writes the built-in configuration file to path.
func WriteDefault(fs afero.Fs, path string) error {
	return afero.WriteFile(fs, path, defaultConfigData, 0644)
}
