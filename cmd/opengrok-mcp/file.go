package main

import (
	"io"

	"github.com/spf13/cobra"
)

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Print a source file",
	Long: `Print the raw text of a source file.

When the path is not found and a project is set (--project or the
configured default), the project directory is prepended and the fetch
retried once.`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	fc, err := client.GetFile(cmd.Context(), args[0], cfg.Project)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), fc.Content)
	return err
}
