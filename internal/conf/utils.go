package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order: working directory, then user, then system wide.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", "binged"))
		} else {
			paths = append(paths, filepath.Join(homeDir, ".config", "binged"))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/binged")
	}

	return paths
}
