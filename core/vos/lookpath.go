package vos

import (
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

// IsExecutable reports whether the mode describes a runnable regular file.
func IsExecutable(m fs.FileMode) bool {
	return !m.IsDir() && m&0111 != 0
}

func findExecutable(fsys afero.Fs, file string) error {
	d, err := fsys.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	}
	if IsExecutable(d.Mode()) {
		return nil
	}
	return fs.ErrPermission
}

// resolve joins a relative path onto dir, the caller's working directory.
func resolve(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// pathDirs lists the PATH directories of env, resolved against dir.
func pathDirs(env VEnv, dir string) []string {
	var out []string
	for _, elem := range filepath.SplitList(env.Getenv("PATH")) {
		if elem == "" {
			// Unix shell semantics: path element "" means "."
			elem = "."
		}
		out = append(out, resolve(dir, elem))
	}
	return out
}

// LookPath searches for an executable named file in the directories named by
// the PATH variable of env. If file contains a slash, it is tried directly
// and the PATH is not consulted. Relative paths, including relative PATH
// entries, are taken from dir; an empty dir leaves them relative. The result
// always contains a slash so it can be handed to exec.Command without a
// second search.
func LookPath(env VEnv, fsys afero.Fs, dir, file string) (string, error) {
	if file == "" {
		return "", ErrNotFound
	}

	if strings.Contains(file, "/") {
		file = resolve(dir, file)
		err := findExecutable(fsys, file)
		if err == nil {
			return file, nil
		}
		return "", err
	}

	for _, d := range pathDirs(env, dir) {
		path := filepath.Join(d, file)
		if !strings.Contains(path, "/") {
			path = "./" + path
		}
		if err := findExecutable(fsys, path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Executables lists the names of executables on the PATH of env that start
// with prefix. Each name appears once, in PATH order. Relative PATH entries
// are read from dir.
func Executables(env VEnv, fsys afero.Fs, dir, prefix string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, dir := range pathDirs(env, dir) {
		entries, err := afero.ReadDir(fsys, dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if seen[name] || !strings.HasPrefix(name, prefix) {
				continue
			}
			if findExecutable(fsys, filepath.Join(dir, name)) != nil {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}

	return out
}
