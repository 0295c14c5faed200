package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/config"
	"github.com/ashureev/aifriend/internal/store"
	"github.com/ashureev/aifriend/internal/tui"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "aifriend",
	Short:        "Chat with your AI friend in the terminal",
	Long:         `A terminal chat client. Replies come from a hosted model when HF_API_KEY is set, and from built-in replies otherwise.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		closeLog, err := setupLogging(viper.GetString("log_file"))
		if err != nil {
			return err
		}
		defer closeLog()

		var repo store.Repository
		if viper.GetBool("persist") {
			repo, err = store.Open(cfg.History)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer repo.Close()
		}

		responder := chat.NewResponderFromConfig(cfg, nil)
		slog.Info("Starting terminal chat", "mode", cfg.Mode(), "persist", repo != nil)

		p := tea.NewProgram(tui.New(responder, repo, cfg.Mode()), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run terminal UI: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aifriend.yaml)")
	flags.String("api-key", "", "Hugging Face API key (overrides HF_API_KEY)")
	flags.String("model-url", "", "inference endpoint (overrides HF_MODEL_URL)")
	flags.Duration("timeout", 0, "inference timeout (overrides HF_TIMEOUT)")
	flags.Bool("persist", false, "load and save the conversation in the history store")
	flags.String("history-backend", "", "history backend: json or sqlite (overrides HISTORY_BACKEND)")
	flags.String("history-path", "", "history file for the json backend (overrides HISTORY_PATH)")
	flags.String("history-db", "", "database for the sqlite backend (overrides HISTORY_DB_PATH)")
	flags.String("log-file", "", "write logs to this file (default: discard)")

	for key, flag := range map[string]string{
		"api_key":         "api-key",
		"model_url":       "model-url",
		"timeout":         "timeout",
		"persist":         "persist",
		"history_backend": "history-backend",
		"history_path":    "history-path",
		"history_db":      "history-db",
		"log_file":        "log-file",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".aifriend")
	}

	viper.SetEnvPrefix("AIFRIEND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig reads the environment like the server does, then applies
// config-file values and flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("api_key") {
		cfg.HFAPIKey = strings.TrimSpace(v.GetString("api_key"))
	}
	if v.IsSet("model_url") {
		cfg.HFModelURL = v.GetString("model_url")
	}
	if v.IsSet("timeout") {
		cfg.RemoteTimeout = v.GetDuration("timeout")
	}
	if v.IsSet("history_backend") {
		cfg.History.Backend = strings.ToLower(v.GetString("history_backend"))
	}
	if v.IsSet("history_path") {
		cfg.History.Path = v.GetString("history_path")
	}
	if v.IsSet("history_db") {
		cfg.History.DBPath = v.GetString("history_db")
	}
}

// setupLogging keeps log output off the terminal the UI is drawing on.
func setupLogging(path string) (func(), error) {
	if path == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return func() { f.Close() }, nil
}
