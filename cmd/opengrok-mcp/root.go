package main

import (
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/opengrok"
	"github.com/LeeChunJun/OpenGrokMCP/internal/slogutil"
	"github.com/LeeChunJun/OpenGrokMCP/internal/version"
)

var (
	cfgFile   string
	verbosity int
	quiet     bool
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "opengrok-mcp",
	Short: "OpenGrok MCP tool server",
	Long: `opengrok-mcp exposes an OpenGrok code search server to MCP clients.

It talks to OpenGrok either through the REST API (mode "rest") or by
reading the web interface (mode "html"), reusing the session cookies of
a signed-in browser when the server sits behind single sign-on.

Configuration comes from an optional config file, OPENGROK_* environment
variables and the flags below, in increasing order of precedence.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate("opengrok-mcp version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.String("url", "", "OpenGrok base URL, e.g. https://opengrok.example.com/source")
	pf.String("mode", "", "Backend mode: rest or html")
	pf.String("project", "", "Default project")
}

// loadConfig merges the config file, environment and persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()
	for _, name := range []string{"url", "mode", "project"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(name, f); err != nil {
				return nil, err
			}
		}
	}
	return config.Load(v, cfgFile)
}

// logLevel prefers -v/-q over the configured level.
func logLevel(cfg *config.Config) slog.Level {
	if quiet || verbosity > 0 {
		return slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	return slogutil.LevelFromString(cfg.Log.Level)
}

// newClient builds a client for one-shot commands. These log at warn
// unless -v is given.
func newClient(cfg *config.Config, w io.Writer) (*opengrok.Client, error) {
	logger := slogutil.NewLogger(w, slogutil.LevelFromVerbosity(verbosity, quiet))
	return opengrok.New(cfg, opengrok.WithLogger(logger))
}
