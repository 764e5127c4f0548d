package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/formfill/internal/ai"
	"github.com/spigell/formfill/internal/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract the fields of a form and map them to a profile",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	addSourceFlags(analyzeCmd)
	analyzeCmd.Flags().Bool("compact", false, "print the result without indentation")
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	res, err := runAnalysis(ctx, cmd, logger)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	compact, _ := cmd.Flags().GetBool("compact")
	var out []byte
	if compact {
		out, err = json.Marshal(res)
	} else {
		out, err = json.MarshalIndent(res, "", "  ")
	}
	if err != nil {
		logger.Fatal("encoding result", zap.Error(err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
}

// runAnalysis loads config, profile and markup for cmd and analyses the form.
func runAnalysis(ctx context.Context, cmd *cobra.Command, logger *zap.Logger) (*analysis.Result, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if id, _ := cmd.Flags().GetString("profile"); id != "" {
		config.Profile = id
	}

	logger.Debug("starting", zap.String("version", version), zap.String("profile", config.Profile))

	p, err := loadProfile(ctx, config)
	if err != nil {
		return nil, err
	}
	if p == nil {
		logger.Warn("no profile given, mapping by labels only")
	}

	markup, err := readMarkup(ctx, cmd, config, logger)
	if err != nil {
		return nil, err
	}

	svc, err := newService(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	hints, _ := cmd.Flags().GetStringToString("hint")

	return svc.Analyze(ctx, analysis.Request{
		Markup:    markup,
		Profile:   p,
		ProfileID: config.Profile,
		Hints:     ai.Hints(hints),
	})
}
