package model

import (
	"sync"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the model package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("model")
	})
	return serviceLogger
}
