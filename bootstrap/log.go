package bootstrap

import (
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"

	"github.com/anuragrao04/classroom-attendance/config"
)

func init() {
	formatter := logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	}
	if os.Getenv("NO_COLOR") != "" {
		formatter.DisableColors = true
	} else {
		formatter.ForceColors = true
		formatter.EnvironmentOverrideColors = true
	}
	logrus.SetFormatter(&formatter)
}

// Log configures the standard logrus logger. debug wins over the configured level.
func Log(cfg config.Log, debug bool) {
	l := logrus.StandardLogger()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("unknown log level %q, using info", cfg.Level)
	}
	if debug {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetReportCaller(level >= logrus.DebugLevel)

	if cfg.File != "" {
		var w io.Writer = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if debug {
			w = io.MultiWriter(os.Stdout, w)
		}
		l.SetOutput(w)
	}
	log.SetOutput(l.Out)
	l.Infof("init logrus, level %s", level)
}
