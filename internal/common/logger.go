package common

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger instance. If InitLogger hasn't been
// called yet (e.g. in a unit test that never bootstraps a process-wide
// logger), it returns a fallback console logger rather than nil.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(createWriterConfig(models.LogWriterTypeConsole, ""))
		globalLogger.Warn().Msg("Using fallback logger - InitLogger() should be called during startup")
	}
	return globalLogger
}

// InitLogger stores the provided logger as the global singleton instance.
func InitLogger(logger arbor.ILogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = logger
}

// SetupLogger configures the process-wide logger from config and returns it.
// Components should still take a logger via constructor injection (see
// SPEC_FULL.md §4.L); this is only for cmd/wikicrawl's bootstrap and for the
// operator-facing console/file output the spec's §7 summary surfaces need.
func SetupLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFileOutput := false
	hasStdoutOutput := false
	for _, output := range config.Logging.Output {
		if output == "file" {
			hasFileOutput = true
		}
		if output == "stdout" || output == "console" {
			hasStdoutOutput = true
		}
	}

	if hasFileOutput {
		logFile := config.Logging.File
		if logFile == "" {
			execPath, err := os.Executable()
			if err != nil {
				logger = logger.WithConsoleWriter(createWriterConfig(models.LogWriterTypeConsole, ""))
				logger.Warn().Err(err).Msg("Failed to get executable path - using fallback console logging")
				hasFileOutput = false
			} else {
				logsDir := filepath.Join(filepath.Dir(execPath), "logs")
				if err := os.MkdirAll(logsDir, 0755); err != nil {
					logger.Warn().Err(err).Str("logs_dir", logsDir).Msg("Failed to create logs directory")
					hasFileOutput = false
				} else {
					logFile = filepath.Join(logsDir, "wikicrawl.log")
				}
			}
		}
		if hasFileOutput {
			logger = logger.WithFileWriter(createWriterConfig(models.LogWriterTypeFile, logFile))
		}
	}

	if hasStdoutOutput {
		logger = logger.WithConsoleWriter(createWriterConfig(models.LogWriterTypeConsole, ""))
	}

	if !hasFileOutput && !hasStdoutOutput {
		logger = logger.WithConsoleWriter(createWriterConfig(models.LogWriterTypeConsole, ""))
		logger.Warn().Strs("configured_outputs", config.Logging.Output).Msg("No visible log outputs configured - falling back to console")
	}

	logger = logger.WithLevelFromString(config.Logging.Level)
	InitLogger(logger)
	return logger
}

func createWriterConfig(writerType models.LogWriterType, filename string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             writerType,
		FileName:         filename,
		TimeFormat:       "15:04:05.000",
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
	}
}

// Stop flushes any remaining context logs before application shutdown. Safe
// to call multiple times.
func Stop() {
	arborcommon.Stop()
}
