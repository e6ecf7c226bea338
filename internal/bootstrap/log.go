// Package bootstrap wires up process-wide concerns before a command runs.
package bootstrap

import (
	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sigpull/sigpull/internal/conf"
)

// InitLogging configures logrus from the effective config. When a log file is
// set, output goes through a size-rotated file instead of stderr.
func InitLogging(cfg conf.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "unknown log level %q", cfg.LogLevel)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	return nil
}
