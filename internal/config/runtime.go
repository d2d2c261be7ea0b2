package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath is the directory holding .env, the sqlite file and
// embedded stores. It is resolved before config parsing so .env can be
// loaded from it.
func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv("HEALTHMEM_RUNTIME_PATH"))
}

func resolveRuntimePath(path string) string {
	if path == "" {
		path = ".healthmem"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
