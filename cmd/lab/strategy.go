package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"strategy-lab/internal/config"
)

func newStrategyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Manage saved strategies",
	}

	saveCmd := &cobra.Command{
		Use:   "save FILE",
		Short: "Save a strategy YAML file under its name",
		Args:  cobra.ExactArgs(1),
		RunE:  runStrategySave,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved strategies",
		Args:  cobra.NoArgs,
		RunE:  runStrategyList,
	}
	showCmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a saved strategy as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runStrategyShow,
	}
	deleteCmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved strategy",
		Args:  cobra.ExactArgs(1),
		RunE:  runStrategyDelete,
	}

	cmd.AddCommand(saveCmd, listCmd, showCmd, deleteCmd)
	return cmd
}

func runStrategySave(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := config.LoadStrategy(args[0])
	if err != nil {
		return err
	}
	if err := a.repo.SaveStrategy(cmd.Context(), cfg); err != nil {
		return err
	}

	status := cfg.SectionStatus()
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", cfg.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "  market selection: %v\n  entry conditions: %v\n  exit rules: %v\n  risk parameters: %v\n  order types: %v\n",
		status.MarketSelection, status.EntryConditions, status.ExitRules, status.RiskParameters, status.OrderTypes)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: strategy is not runnable yet: %v\n", err)
	}
	return nil
}

func runStrategyList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.repo.ListStrategies(cmd.Context())
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runStrategyShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.repo.LoadStrategy(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("strategy %s: %w", args[0], err)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func runStrategyDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.repo.DeleteStrategy(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("strategy %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
