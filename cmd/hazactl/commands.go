package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hazacheck/internal/database"
	"hazacheck/internal/notify"
	"hazacheck/internal/util"
)

var (
	tokenBytes   int
	detectOnly   bool
	telegramText string
)

// tokenCmd prints a fresh random secret
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a random value for ADMIN_TOKEN or SECRET_KEY",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

// migrateCmd migrates the schema and rewrites legacy rows
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the inquiries table and normalize legacy rows",
	Long: `Creates or updates the inquiries table, then rewrites legacy data:
comma-joined options become JSON arrays, plaintext PINs are hashed and
missing phone_digits values are backfilled. Running it twice is safe.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

// telegramTestCmd verifies the Telegram bot configuration
var telegramTestCmd = &cobra.Command{
	Use:   "telegram-test",
	Short: "Check the Telegram bot token and send a test message",
	Args:  cobra.NoArgs,
	RunE:  runTelegramTest,
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenBytes < 16 {
		return fmt.Errorf("--bytes must be at least 16")
	}
	secret, err := util.GenerateSecret(tokenBytes)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), secret)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.Database, logger.Named("database"))
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	out := cmd.OutOrStdout()
	if detectOnly {
		caps := database.DetectCapabilities(db)
		fmt.Fprintf(out, "password column:     %v\n", caps.HasPIN)
		fmt.Fprintf(out, "phone_digits column: %v\n", caps.HasPhoneDigits)
		if caps.HasPIN {
			n, err := database.CountUnhashedPINs(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "unhashed PINs:       %d\n", n)
		}
		return nil
	}

	report, err := database.MigrateSchema(db, cfg.Auth.PINHashCost)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "options normalized:  %d\n", report.OptionsNormalized)
	fmt.Fprintf(out, "PINs hashed:         %d\n", report.PINsHashed)
	fmt.Fprintf(out, "PINs skipped:        %d\n", report.PINsSkipped)
	fmt.Fprintf(out, "phone digits filled: %d\n", report.PhoneDigitsFilled)
	return nil
}

func runTelegramTest(cmd *cobra.Command, args []string) error {
	if !cfg.Telegram.Enabled() {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Notify.Timeout)
	defer cancel()

	formatter := notify.Formatter{AdminURL: cfg.Telegram.AdminURL, Location: cfg.App.Location}
	sender := notify.NewTelegramSender(cfg.Telegram, formatter, &http.Client{Timeout: cfg.Notify.Timeout})

	username, err := sender.Verify(ctx)
	if err != nil {
		return fmt.Errorf("bot token rejected: %w", err)
	}
	logger.Info("bot verified", zap.String("username", username))

	if err := sender.SendText(ctx, telegramText); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent test message via @%s\n", username)
	return nil
}
