// Package conf provides configuration management for detect-fakevoice.
package conf

import "github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it follows
// whatever central logger main installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
