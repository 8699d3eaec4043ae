package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeeChunJun/OpenGrokMCP/internal/credentials"
	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Work with session cookie strings",
	Long: `Work with the session cookie strings copied from a signed-in browser.

The input may be "name=value; name=value", a raw "Cookie:" request header,
or one pair per line. When no argument is given it is read from stdin.`,
}

var cookiesNormalizeCmd = &cobra.Command{
	Use:   "normalize [cookies]",
	Short: "Print a cookie string in canonical form",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCookiesNormalize,
}

var cookiesCheckCmd = &cobra.Command{
	Use:   "check [cookies]",
	Short: "Check that a cookie string is accepted by the server",
	Long: `Check that a cookie string is accepted by the server.

Without input the configured cookies (cookies and cookies_file) are used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCookiesCheck,
}

func init() {
	cookiesCmd.AddCommand(cookiesNormalizeCmd, cookiesCheckCmd)
	rootCmd.AddCommand(cookiesCmd)
}

// cookieInput returns the argument, or stdin when it is not a terminal.
func cookieInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	in := cmd.InOrStdin()
	if isTerminal(in) {
		return "", nil
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func runCookiesNormalize(cmd *cobra.Command, args []string) error {
	raw, err := cookieInput(cmd, args)
	if err != nil {
		return err
	}
	normalized := credentials.Normalize(raw)
	if normalized == "" {
		return errors.NewInvalidArgument("cookies", "no name=value pairs found")
	}
	fmt.Fprintln(cmd.OutOrStdout(), normalized)
	n := len(strings.Split(normalized, "; "))
	_, _ = causeColor.Fprintf(cmd.ErrOrStderr(), "%d cookies\n", n)
	return nil
}

func runCookiesCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	raw, err := cookieInput(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) != "" {
		cfg.Cookies = raw
		cfg.CookiesFile = ""
	}

	client, err := newClient(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if client.Credentials().Len() == 0 {
		return errors.NewInvalidArgument("cookies", "no cookies configured")
	}

	projects, err := client.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	_, _ = okColor.Fprintf(cmd.OutOrStdout(), "accepted: %d cookies, %d projects visible\n",
		client.Credentials().Len(), len(projects))
	return nil
}
