package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/ai"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/ai/gemini"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/logger"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/secrets"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/transcript"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

const (
	app = "recruiter"
)

type Config struct {
	AI        *AIConfig                 `mapstructure:"ai"`
	Interview workflow.InterviewOptions `mapstructure:"interview"`
	Server    *ServerConfig             `mapstructure:"server"`
	Archive   *ArchiveConfig            `mapstructure:"archive"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey            string        `mapstructure:"api-key"`
	APIKeyFile        string        `mapstructure:"api-key-file"`
	Model             string        `mapstructure:"model"`
	MaxRetries        int           `mapstructure:"max-retries"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Temperature       float32       `mapstructure:"temperature"`
	SystemInstruction string        `mapstructure:"system-instruction"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	RateLimitPerMin int           `mapstructure:"rate-limit-per-min"`
	SessionTTL      time.Duration `mapstructure:"session-ttl"`
	MaxSessions     int           `mapstructure:"max-sessions"`
}

type ArchiveConfig struct {
	// Path of the SQLite archive. Empty disables archiving.
	Path string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "recruiter is a recruitment training assistant: CV analysis and mock interviews",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("ai.provider", ai.ProviderGemini)
	viper.SetDefault("ai.gemini.model", gemini.DefaultModel)
	viper.SetDefault("ai.gemini.max-retries", gemini.DefaultMaxRetries)
	viper.SetDefault("ai.gemini.max-log-length", gemini.DefaultMaxLogLength)
	viper.SetDefault("interview.review-window", workflow.DefaultReviewWindow)
	viper.SetDefault("interview.pass-threshold", workflow.DefaultPassThreshold)
	viper.SetDefault("interview.score-min", 0)
	viper.SetDefault("interview.score-max", 10)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.rate-limit-per-min", 60)
	viper.SetDefault("server.session-ttl", "30m")
	viper.SetDefault("server.max-sessions", 1000)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recruiter.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless given explicitly; defaults and env cover the rest.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.AI == nil || config.AI.Gemini == nil {
		return config, errors.New("ai.gemini section is required")
	}

	return config, nil
}

// setup builds the logger and reads the configuration. Failures are fatal.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != ai.ProviderGemini {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key, ai.gemini.api-key-file, GEMINI_API_KEY or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithFields(log, zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:             cfg.Gemini.Model,
		MaxRetries:        cfg.Gemini.MaxRetries,
		Timeout:           cfg.Gemini.Timeout,
		Temperature:       cfg.Gemini.Temperature,
		SystemInstruction: cfg.Gemini.SystemInstruction,
		MaxLogLength:      cfg.Gemini.MaxLogLength,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	log.Debug("ai generator ready",
		zap.String(logger.FieldModel, generator.Model()),
		zap.Bool("system_instruction", cfg.Gemini.SystemInstruction != ""),
	)

	return generator, nil
}

// openArchive returns nil when archiving is not configured.
func openArchive(cfg *ArchiveConfig) (*transcript.Archive, error) {
	if cfg == nil || strings.TrimSpace(cfg.Path) == "" {
		return nil, nil
	}
	return transcript.Open(cfg.Path)
}
