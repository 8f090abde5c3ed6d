// Command classbuilder serves and manages AR classes.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// SessionStartTime names the log file of this run
	SessionStartTime = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager
	Logger      *slog.Logger

	configDir   string
	storageType string
)

var rootCmd = &cobra.Command{
	Use:           "classbuilder",
	Short:         "Author and distribute augmented-reality classes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		SlogManager = logging.NewSlogManager()
		SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
		Logger = SlogManager.Logger()

		if err := config.Load(configDir); err != nil {
			Logger.Warn("Failed to load config, using defaults!", "error", err)
		}
		if storageType != "" {
			viper.Set("storage.type", storageType)
		}

		SlogManager.SetContextProvider(func() []slog.Attr {
			return []slog.Attr{slog.String("storage", viper.GetString("storage.type"))}
		})
		// console commands log to stderr so their output stays parseable
		SlogManager.Setup(os.Stderr, config.GetLoggingConfig().Level, nil)
		Logger = SlogManager.Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+config.ConfigFileName)
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "storage backend: memory, sqlite, postgres, badger, mongo or remote")

	rootCmd.AddCommand(serveCmd, classesCmd, qrcodeCmd, uploadCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
