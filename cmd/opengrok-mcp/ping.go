package main

import (
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the OpenGrok server is reachable",
	Long: `Check that the OpenGrok server is reachable and accepts the session.

Exits 0 when it is and 3 otherwise, so it can be used from scripts and
editor extensions.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !client.Ping(cmd.Context()) {
		_, _ = errorColor.Fprintf(out, "unreachable: %s (%s)\n", cfg.BaseURL(), cfg.Mode)
		return &exitError{code: exitUnavailable}
	}
	_, _ = okColor.Fprintf(out, "ok: %s (%s)\n", cfg.BaseURL(), cfg.Mode)
	return nil
}
