package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/formfill/internal/feedback"
	"github.com/spigell/formfill/internal/fetch"
)

const (
	app = "formfill"
)

type Config struct {
	Profile  string           `mapstructure:"profile"`
	Profiles *ProfilesConfig  `mapstructure:"profiles"`
	AI       *AIConfig        `mapstructure:"ai"`
	Matching *MatchingConfig  `mapstructure:"matching"`
	Feedback *feedback.Config `mapstructure:"feedback"`
	Fetch    *fetch.Config    `mapstructure:"fetch"`
}

type ProfilesConfig struct {
	Dir string `mapstructure:"dir"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey           string `mapstructure:"api-key"`
	APIKeyFile       string `mapstructure:"api-key-file"`
	Model            string `mapstructure:"model"`
	MaxRetries       int    `mapstructure:"max-retries"`
	MaxLogLength     int    `mapstructure:"max-log-length"`
	UserInstructions string `mapstructure:"user-instructions"`
}

type MatchingConfig struct {
	PatternThreshold float64 `mapstructure:"pattern-threshold"`
	FuzzyThreshold   float64 `mapstructure:"fuzzy-threshold"`
	RulesFile        string  `mapstructure:"rules-file"`
	Workers          int     `mapstructure:"workers"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "formfill maps the fields of job application forms to a structured profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("profiles.dir", "FORMFILL_PROFILES_DIR"); err != nil {
		log.Fatalf("binding FORMFILL_PROFILES_DIR environment variable: %v", err)
	}

	viper.SetDefault("profiles.dir", "profiles")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("feedback.database", app+".db")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is formfill.yaml in current directory)")
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
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless given explicitly, but a broken one
	// stops everything.
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
	if config == nil {
		config = &Config{}
	}
	if config.Profiles == nil {
		config.Profiles = &ProfilesConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.Feedback == nil {
		config.Feedback = &feedback.Config{}
	}
	if config.Fetch == nil {
		config.Fetch = &fetch.Config{}
	}

	return config, nil
}
