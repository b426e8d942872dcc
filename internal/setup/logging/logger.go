package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggers builds the main and database loggers. Both write to the console
// and to a timestamped file in the given log directory; older log files
// beyond the retention limit are removed. An empty logDir falls back to the
// configured directory.
func NewLoggers(cfg *config.Debug, logDir string) (*zap.Logger, *zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	if logDir == "" {
		logDir = cfg.LogDir
	}

	if logDir == "" {
		logDir = "logs"
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if err := rotateLogFiles(logDir, cfg.MaxLogsToKeep); err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(filepath.Join(logDir, logFileName("main")), level)
	if err != nil {
		return nil, nil, err
	}

	dbLogger, err := newLogger(filepath.Join(logDir, logFileName("database")), level)
	if err != nil {
		return nil, nil, err
	}

	return logger, dbLogger.Named("database"), nil
}

// logFileName returns a timestamped file name for a logger.
func logFileName(name string) string {
	return fmt.Sprintf("%s_%s.log", name, time.Now().Format("20060102_150405"))
}

// newLogger creates a zap logger writing to both the console and a file.
func newLogger(logPath string, level zapcore.Level) (*zap.Logger, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileEncoderConfig := zap.NewDevelopmentEncoderConfig()

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stdout),
			level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileEncoderConfig),
			zapcore.AddSync(file),
			level,
		),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// rotateLogFiles removes the oldest log files once the retention limit is hit.
func rotateLogFiles(logDir string, maxToKeep int) error {
	if maxToKeep <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(logDir, "*.log"))
	if err != nil {
		return fmt.Errorf("failed to list log files: %w", err)
	}

	if len(matches) < maxToKeep {
		return nil
	}

	// Names embed the creation timestamp, so lexical order is age order.
	sort.Strings(matches)

	for _, path := range matches[:len(matches)-maxToKeep+1] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove old log file %s: %w", path, err)
		}
	}

	return nil
}
