package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order:
// the working directory, the user config directory and, outside Windows, /etc.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", AppDirName))
		} else {
			paths = append(paths, filepath.Join(homeDir, ".config", AppDirName))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, filepath.Join("/etc", AppDirName))
	}

	return paths
}

// DefaultConfigFile is where `config --init` writes when no path is given.
func DefaultConfigFile() string {
	paths := GetDefaultConfigPaths()
	if len(paths) > 1 {
		return filepath.Join(paths[1], ConfigName+"."+ConfigType)
	}
	return ConfigName + "." + ConfigType
}
