package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectsJSON bool

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects visible to the session",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.Flags().BoolVar(&projectsJSON, "json", false, "Print JSON")
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	projects, err := client.ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if projectsJSON {
		return writeJSON(out, projects)
	}
	for _, p := range projects {
		if p.Label != "" && p.Label != p.Name {
			fmt.Fprintf(out, "%s\t%s\n", p.Name, p.Label)
			continue
		}
		fmt.Fprintln(out, p.Name)
	}
	return nil
}
