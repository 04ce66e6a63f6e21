package main

import (
	"os"
	"path"
	"runtime"
	"time"

	rotates "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/haolipeng/ipsumdump/pkg/config"
)

var (
	configPath string
	appCfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "ipsumdump",
	Short: "Reconstruct IP packets from an IP summary dump",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		appCfg = cfg
		return initLogger(appCfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
}

// Execute runs the root command; cmd/main.go does nothing but call this.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger sets up logrus exactly the way the teacher's InitLogger
// does: a text formatter, a level pulled from config, and an
// hourly-rotated, 24h-retained log file via a per-level lfshook hook.
func initLogger(cfg *config.AppConfig) error {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var level logrus.Level
	switch cfg.Log.Level {
	case "DEBUG":
		level = logrus.DebugLevel
	case "WARN":
		level = logrus.WarnLevel
	case "INFO":
		level = logrus.InfoLevel
	case "ERROR":
		level = logrus.ErrorLevel
	case "FATAL":
		level = logrus.FatalLevel
	case "PANIC":
		level = logrus.PanicLevel
	default:
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)

	if _, err := os.Stat(cfg.Log.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.Log.Dir, 0755); err != nil {
			return err
		}
	}
	logFileName := path.Join(cfg.Log.Dir, cfg.Log.Filename)

	var logWriter *rotates.RotateLogs
	var err error
	if runtime.GOOS == "windows" {
		logWriter, err = rotates.New(
			logFileName+".%Y%m%d%H%M",
			rotates.WithMaxAge(24*time.Hour),
			rotates.WithRotationTime(time.Hour),
		)
	} else {
		logWriter, err = rotates.New(
			logFileName+".%Y%m%d%H%M",
			rotates.WithLinkName(logFileName),
			rotates.WithMaxAge(24*time.Hour),
			rotates.WithRotationTime(time.Hour),
		)
	}
	if err != nil {
		return err
	}

	logrus.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: logWriter,
		logrus.InfoLevel:  logWriter,
		logrus.WarnLevel:  logWriter,
		logrus.ErrorLevel: logWriter,
		logrus.FatalLevel: logWriter,
		logrus.PanicLevel: logWriter,
	}, &logrus.TextFormatter{}))

	return nil
}
