package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/formfill/internal/ai"
	"github.com/spigell/formfill/internal/ai/gemini"
	"github.com/spigell/formfill/internal/analysis"
	"github.com/spigell/formfill/internal/fetch"
	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/logger"
	"github.com/spigell/formfill/internal/matching"
	"github.com/spigell/formfill/internal/profile"
	"github.com/spigell/formfill/internal/secrets"
)

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"),
		zap.String(logger.FieldApp, app),
		zap.String("version", version),
	)
}

// newAIMatcher returns nil when AI matching is disabled.
func newAIMatcher(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Matcher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	matcher := gemini.NewMatcher(generator, cfg.Gemini.MaxLogLength, logger.WithCommonFields(log, "gemini", generator.Model()))
	matcher.SetPromptOverrides(gemini.PromptOverrides{UserInstructions: cfg.Gemini.UserInstructions})

	return matcher, nil
}

func newEngine(ctx context.Context, config *Config, log *zap.Logger) (*matching.Engine, error) {
	var rules *matching.Rules
	if file := strings.TrimSpace(config.Matching.RulesFile); file != "" {
		var err error
		if rules, err = matching.LoadRules(file); err != nil {
			return nil, err
		}
		log.Info("using custom rules", zap.String("file", file), zap.Int("rules", rules.Len()))
	}

	matcher, err := newAIMatcher(ctx, config.AI, log)
	if err != nil {
		// A broken AI setup only disables the AI tier.
		log.Warn("skipping AI matching", zap.Error(err))
		matcher = nil
	}

	return matching.NewEngine(matching.Config{
		PatternThreshold: config.Matching.PatternThreshold,
		FuzzyThreshold:   config.Matching.FuzzyThreshold,
		AITimeout:        config.AI.Timeout,
		Workers:          config.Matching.Workers,
	}, rules, matcher, log)
}

func newService(ctx context.Context, config *Config, log *zap.Logger) (*analysis.Service, error) {
	engine, err := newEngine(ctx, config, log)
	if err != nil {
		return nil, err
	}
	return analysis.New(form.NewExtractor(log), engine, log)
}

func loadProfile(ctx context.Context, config *Config) (*profile.Profile, error) {
	id := strings.TrimSpace(config.Profile)
	if id == "" {
		return nil, nil
	}
	p, err := profile.NewFileStore(config.Profiles.Dir).Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", id, err)
	}
	return p, nil
}

// readMarkup reads the form from --file ("-" is stdin) or --url.
func readMarkup(ctx context.Context, cmd *cobra.Command, config *Config, log *zap.Logger) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	url, _ := cmd.Flags().GetString("url")

	switch {
	case file != "" && url != "":
		return "", errors.New("--file and --url are mutually exclusive")
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read form: %w", err)
		}
		return string(data), nil
	case url != "":
		return fetch.New(*config.Fetch, log).Fetch(ctx, url)
	default:
		return "", errors.New("one of --file or --url is required")
	}
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "read the form markup from a file, - for stdin")
	cmd.Flags().StringP("url", "u", "", "fetch the form markup from a url")
	cmd.Flags().StringP("profile", "p", "", "profile id to match against (profiles.dir/<id>.json)")
	cmd.Flags().StringToString("hint", nil, "page context passed to the AI matcher, e.g. --hint company=Acme")
}
