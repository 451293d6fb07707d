package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fetchguard/finalizer/pkg/config"
	"github.com/fetchguard/finalizer/pkg/export"
	"github.com/fetchguard/finalizer/pkg/handler"
	"github.com/fetchguard/finalizer/pkg/inspect"
	"github.com/fetchguard/finalizer/pkg/quarantine"
	"github.com/fetchguard/finalizer/pkg/relocate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var conf = &config.Config{
	Config:      config.DefaultConfigPath,
	MaxFileSize: config.DefaultMaxFileSize,
	Inspector: config.InspectorConfig{
		Mode:           inspect.ModeOff,
		Timeout:        config.DefaultInspectTimeout,
		DetectExitCode: config.DefaultDetectExitCode,
	},
	Quarantine: config.QuarantineConfig{
		Password: "infected",
	},
	Journal: config.JournalConfig{
		Location: config.DefaultJournalLocation,
	},
	Monitoring: config.MonitoringConfig{
		ModificationDelay: config.DefaultModificationDelay,
	},
}

func initConfig() {
	if conf.Config == "" {
		cfg, err := config.GetConfigFile()
		if err != nil {
			logger.Error("could not create config file", slog.String("location", cfg))
		}
		conf.Config = cfg
	}
	viper.SetConfigFile(conf.Config)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		logger.Debug("can't read config", slog.String("error", err.Error()))
		return
	}
	if err := viper.Unmarshal(conf); err != nil {
		logger.Error("can't unmarshal config", slog.String("error", err.Error()))
	}
}

func initRoot(rootCmd *cobra.Command) {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&conf.Config, "config", config.DefaultConfigPath, "config file")
	rootCmd.PersistentFlags().StringVar(&conf.Intake, "intake", os.Getenv("FGFINALIZE_INTAKE"), "Directory where completed downloads land before finalization")
	rootCmd.PersistentFlags().StringVar(&conf.Destination, "destination", os.Getenv("FGFINALIZE_DESTINATION"), "Directory receiving finalized files")
	rootCmd.PersistentFlags().StringVar(&conf.MaxFileSize, "max-file-size", config.DefaultMaxFileSize, "Maximum file size to finalize (e.g. '100MiB'), larger files are refused")

	rootCmd.PersistentFlags().StringVar(&conf.Inspector.Mode, "inspector", conf.Inspector.Mode, "Inspection mode: attachment (windows zone policy), command (external scanner) or off")
	rootCmd.PersistentFlags().StringVar(&conf.Inspector.Command, "inspector-command", conf.Inspector.Command, "External scanner command, first word is the binary")
	rootCmd.PersistentFlags().DurationVar(&conf.Inspector.Timeout, "inspector-timeout", conf.Inspector.Timeout, "Time allowed to inspect a single file")
	rootCmd.PersistentFlags().IntVar(&conf.Inspector.DetectExitCode, "detect-exit-code", conf.Inspector.DetectExitCode, "Scanner exit code meaning a detection")

	rootCmd.PersistentFlags().StringVar(&conf.Quarantine.Location, "quarantine", conf.Quarantine.Location, "Directory where blocked files are sealed (leave empty to delete them instead)")
	rootCmd.PersistentFlags().StringVar(&conf.Quarantine.Registry, "quarantine-registry", conf.Quarantine.Registry, "Path to the database tracking sealed files (leave empty for in-memory store, lost on restart)")
	rootCmd.PersistentFlags().StringVar(&conf.Journal.Location, "journal", conf.Journal.Location, "Path to the finalize attempt journal database")

	rootCmd.PersistentFlags().BoolVarP(&conf.Debug, "debug", "d", conf.Debug, "print debug strings")
	rootCmd.PersistentFlags().BoolVarP(&conf.Verbose, "verbose", "v", conf.Verbose, "Report all finalized files, not just interrupted ones")

	finalizeCmd.PersistentFlags().StringVar(&sourceURL, "source-url", "", "Provenance URL of the download (overrides the .source sidecar)")

	watchCmd.PersistentFlags().BoolVar(&conf.Monitoring.PreScan, "pre-scan", false, "Immediately finalize all files already present in the intake when watching starts")
	watchCmd.PersistentFlags().DurationVar(&conf.Monitoring.ModificationDelay, "mod-delay", conf.Monitoring.ModificationDelay, "Wait time after the last write before finalizing a file (prevents finalizing incomplete downloads)")

	journalExportCmd.PersistentFlags().StringVar(&conf.Export.Bucket, "bucket", conf.Export.Bucket, "S3 bucket receiving journal exports")
	journalExportCmd.PersistentFlags().StringVar(&conf.Export.Prefix, "prefix", conf.Export.Prefix, "Object key prefix for exported journals")
	journalExportCmd.PersistentFlags().StringVar(&conf.Export.Region, "region", conf.Export.Region, "S3 region")
	journalExportCmd.PersistentFlags().StringVar(&conf.Export.Endpoint, "endpoint", conf.Export.Endpoint, "Custom S3 endpoint (Minio and friends)")
	journalExportCmd.PersistentFlags().StringVar(&conf.Export.AccessKeyID, "access-key-id", os.Getenv("AWS_ACCESS_KEY_ID"), "S3 access key id")
	journalExportCmd.PersistentFlags().StringVar(&conf.Export.SecretAccessKey, "secret-access-key", os.Getenv("AWS_SECRET_ACCESS_KEY"), "S3 secret access key")
	journalExportCmd.PersistentFlags().BoolVar(&conf.Export.Insecure, "insecure", conf.Export.Insecure, "do not check S3 endpoint certificates")
	journalExportCmd.PersistentFlags().BoolVar(&conf.Export.UsePathStyle, "use-path-style", conf.Export.UsePathStyle, "use path style S3 addressing")
}

var rootCmd = &cobra.Command{
	Use:   "fgfinalize",
	Short: "FetchGuard finalizer relocates completed downloads and submits them for content inspection",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = yaml.NewEncoder(os.Stdout).Encode(conf)
		if err != nil {
			logger.Error("error encode yaml conf", slog.String("err", err.Error()))
			return
		}
		if err = cmd.Usage(); err != nil {
			return
		}
		return
	},
}

func initHandler(cmd *cobra.Command, _ []string) (err error) {
	if conf.Debug {
		LogLevel.Set(slog.LevelDebug)
		relocate.LogLevel.Set(slog.LevelDebug)
		inspect.LogLevel.Set(slog.LevelDebug)
		quarantine.LogLevel.Set(slog.LevelDebug)
		handler.LogLevel.Set(slog.LevelDebug)
		export.LogLevel.Set(slog.LevelDebug)
		logger.Debug("debug activated")
	}
	fgHandler, err = handler.NewHandler(cmd.Context(), conf)
	if err != nil {
		logger.Error("could not init finalizer properly", slog.String("error", err.Error()))
		return
	}
	return nil
}

func checkFiles(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("at least one file is mandatory")
	}
	for _, path := range args {
		if _, err := os.Stat(filepath.Clean(path)); err != nil {
			return fmt.Errorf("could not check file %s: %w", path, err)
		}
	}
	return nil
}
