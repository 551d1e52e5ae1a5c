package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hazacheck/internal/config"
	"hazacheck/internal/logging"
)

var (
	// Global flags
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hazactl",
	Short: "Operator tooling for the hazacheck inquiry backend",
	Long: `hazactl runs one-off maintenance tasks against the same configuration
the API server reads (.env and environment variables).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		cfg.Log.Format = "console"
		logger, err = logging.New(cfg.Log, cfg.App)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	migrateCmd.Flags().BoolVar(&detectOnly, "detect", false, "Only report which optional columns exist")
	tokenCmd.Flags().IntVar(&tokenBytes, "bytes", 32, "Number of random bytes")
	telegramTestCmd.Flags().StringVar(&telegramText, "text", "하자체크 알림 테스트 메시지입니다.", "Message to send")

	rootCmd.AddCommand(tokenCmd, migrateCmd, telegramTestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
