package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentsim/config"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a scenario file without running it",
		Long: `Parse and validate a scenario file, then build its model once to
check schema, initial values and operations.

Examples:
  agentsim validate -c energy.yaml
  agentsim validate -c energy.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := loadScenario(path)
			if err != nil {
				return err
			}

			b, err := s.Builder()
			if err != nil {
				return err
			}

			if _, err := b.Build(); err != nil {
				return fmt.Errorf("invalid scenario: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"valid":      true,
					"name":       s.Name,
					"agents":     s.Agents,
					"properties": len(s.Properties),
					"operations": len(s.Operations),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d agents, %d properties, %d operations)\n",
				s.Name, s.Agents, len(s.Properties), len(s.Operations))

			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "Scenario file")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func loadScenario(path string) (*config.Scenario, error) {
	s, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return s, nil
}
