package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active matching rules and tier configuration",
	Run: func(cmd *cobra.Command, _ []string) {
		printRules(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().Bool("tiers", false, "print the tier configuration as json instead of the rule table")
}

func printRules(cmd *cobra.Command) {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	engine, err := newEngine(context.Background(), config, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}

	if tiers, _ := cmd.Flags().GetBool("tiers"); tiers {
		pretty, err := json.MarshalIndent(engine.Describe(), "", "  ")
		if err != nil {
			logger.Fatal("encoding tiers", zap.Error(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
		return
	}

	if err := engine.Rules().Encode(cmd.OutOrStdout()); err != nil {
		logger.Fatal("printing rules", zap.Error(err))
	}
}
