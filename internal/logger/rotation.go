package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tphakala/binged/internal/errors"
)

// logDirPermissions restricts log directories to the owner
const logDirPermissions = 0o700

// RotationConfig holds size based rotation settings for a log file
type RotationConfig struct {
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// RotationConfigFromFileOutput extracts rotation settings from a FileOutput
func RotationConfigFromFileOutput(fo *FileOutput) RotationConfig {
	if fo == nil {
		return RotationConfig{}
	}
	return RotationConfig{
		MaxSize:    fo.MaxSize,
		MaxAge:     fo.MaxAge,
		MaxBackups: fo.MaxRotatedFiles,
		Compress:   fo.Compress,
	}
}

// newRotatingWriter opens a lumberjack writer for filePath, creating its directory.
func newRotatingWriter(filePath string, rc RotationConfig) (io.WriteCloser, error) {
	if filePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    rc.MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Compress:   rc.Compress,
	}, nil
}

// Rotate forces rotation of every file writer owned by the logger.
// Useful from a SIGHUP handler when external tools move log files.
func (cl *CentralLogger) Rotate() error {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	var errs []error
	for name, w := range cl.writers {
		if lj, ok := w.(*lumberjack.Logger); ok {
			if err := lj.Rotate(); err != nil {
				errs = append(errs, fmt.Errorf("failed to rotate %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
