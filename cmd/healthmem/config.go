package main

import (
	"fmt"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/config"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/env"
	"github.com/spf13/cobra"
)

var configFlags struct {
	showSecrets bool
	all         bool
}

var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Print the resolved configuration as .env lines",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return fmt.Errorf("init env: %w", err)
		}

		opts := env.Options{Redact: !configFlags.showSecrets, IncludeZero: configFlags.all}
		sections := []struct {
			name  string
			parse func() (any, error)
		}{
			{"app", func() (any, error) { return config.ParseAppConfig() }},
			{"extraction", func() (any, error) { return config.ParseExtractionConfig() }},
			{"provider", func() (any, error) { return config.ParseProviderConfig() }},
			{"rag", func() (any, error) { return config.ParseRAGConfig() }},
		}

		out := cmd.OutOrStdout()
		for _, s := range sections {
			fmt.Fprintf(out, "# %s\n", s.name)
			cfg, err := s.parse()
			if err != nil {
				fmt.Fprintf(out, "# invalid: %v\n", err)
				continue
			}
			lines, err := env.MarshalEnv(cfg, opts)
			if err != nil {
				return err
			}
			fmt.Fprint(out, lines)
		}
		return nil
	},
}

func init() {
	f := configCmd.Flags()
	f.BoolVar(&configFlags.showSecrets, "show-secrets", false, "print keys and credentials unmasked")
	f.BoolVar(&configFlags.all, "all", false, "include settings left at their zero value")

	rootCmd.AddCommand(configCmd)
}
