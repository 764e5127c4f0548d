package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/formfill/internal/analysis"
	"github.com/spigell/formfill/internal/feedback"
	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/matching"
	"github.com/spigell/formfill/internal/profile"
)

const (
	PromptDone = "Done"
	PromptKeep = "(keep current mapping)"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Analyze a form and correct its field mappings interactively",
	Run: func(cmd *cobra.Command, _ []string) {
		review(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	addSourceFlags(reviewCmd)
}

func review(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	res, err := runAnalysis(ctx, cmd, logger)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	if res.Metadata.Total == 0 {
		logger.Info("exiting", zap.String("reason", res.Metadata.Message))
		return
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	recorder, err := feedback.Open(*config.Feedback, logger)
	if err != nil {
		logger.Warn("corrections will not be recorded", zap.Error(err))
	}
	defer recorder.Close()

	mappings := matching.NewMappings(res.FieldMappings...)
	if err := correctMappings(ctx, res, mappings, recorder, logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(mappings.List(), "", "  ")
	if err != nil {
		logger.Fatal("encoding mappings", zap.Error(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
}

func correctMappings(ctx context.Context, res *analysis.Result, mappings *matching.Mappings, recorder *feedback.Recorder, logger *zap.Logger) error {
	fields := make([]form.FieldDescriptor, 0, res.Metadata.Total)
	for _, sec := range res.Sections {
		fields = append(fields, sec.Fields...)
	}

	for {
		items := make([]string, 0, len(fields)+1)
		for _, f := range fields {
			items = append(items, fieldItem(f, mappings))
		}

		fieldPrompt := promptui.Select{
			Label: "Choose a field to correct and press ENTER",
			Items: append(items, PromptDone),
			Size:  15,
		}

		i, selected, err := fieldPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptDone {
			return nil
		}

		field := fields[i]
		path, err := choosePath(field)
		if err != nil {
			return err
		}
		if path == PromptKeep {
			continue
		}

		var previous *matching.FieldMapping
		if prev, ok := mappings.Get(field.FieldID); ok {
			previous = &prev
		}

		corrected := mappings.Correct(field.FieldID, path)
		if corrected.FieldLabel == "" {
			corrected.FieldLabel = field.Label
			corrected.FieldType = field.Type
			mappings.Put(corrected)
		}

		logger.Info("mapping corrected",
			zap.String("field_id", field.FieldID),
			zap.String("profile_path", path),
		)

		if recorder == nil {
			continue
		}
		if _, err := recorder.Record(ctx, feedback.FromMappings(res.Metadata.FormID, previous, corrected)); err != nil {
			logger.Warn("recording correction", zap.Error(err))
		}
	}
}

func fieldItem(f form.FieldDescriptor, mappings *matching.Mappings) string {
	target := "unmapped"
	if m, ok := mappings.Get(f.FieldID); ok {
		target = fmt.Sprintf("%s (%.0f, %s)", m.ProfilePath, m.ConfidenceScore, m.MappingSource)
	}
	return fmt.Sprintf("%s / %s -> %s", f.FieldID, f.Label, target)
}

func choosePath(field form.FieldDescriptor) (string, error) {
	paths := append([]string{PromptKeep}, profile.Paths()...)

	pathPrompt := promptui.Select{
		Label: fmt.Sprintf("Profile attribute for %q", field.Label),
		Items: paths,
		Size:  15,
		Searcher: func(input string, index int) bool {
			return strings.Contains(paths[index], strings.ToLower(strings.TrimSpace(input)))
		},
		StartInSearchMode: true,
	}

	_, path, err := pathPrompt.Run()
	return path, err
}
