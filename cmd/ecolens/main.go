package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/config"
	"github.com/Veraticus/ecolens/internal/events"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "ecolens",
		Short: "🌿 Visual mission-matching engine",
		Long: `ecolens: point a camera at everyday objects, let an image classifier name
them, and match what it sees against an eco mission or a sorting bin.

Complete missions to earn XP and level up.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/ecolens/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("user", "", "user the scans and XP belong to")
	rootCmd.PersistentFlags().String("profile", "", "engine profile name or path to a profile file")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("user.id", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("engine.profile", rootCmd.PersistentFlags().Lookup("profile"))

	// Add commands
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(sortCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(missionsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setDefaults() {
	viper.SetDefault("database.path", config.DefaultDatabasePath())
	viper.SetDefault("user.id", "local")
	viper.SetDefault("engine.profile", config.DefaultProfile)
	viper.SetDefault("classifier.provider", "fixture")
	viper.SetDefault("classifier.fixture_path", "./fixtures/predictions.json")
	viper.SetDefault("camera.dir", "./frames")
	viper.SetDefault("events.mqtt.client_id", "ecolens")
	viper.SetDefault("events.mqtt.topic", events.DefaultTopic)
	viper.SetDefault("server.addr", ":8080")
}

func initConfig(_ *cobra.Command, _ []string) error {
	// A missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/ecolens", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	viper.SetEnvPrefix("ECOLENS")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if err := common.SetupLogger(level, viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			slog.Info("ecolens version", "version", version)
		},
	}
}
