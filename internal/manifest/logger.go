package manifest

import (
	"sync"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the manifest package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("manifest")
	})
	return serviceLogger
}
