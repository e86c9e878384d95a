package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"eisen/internal/credentials"
)

// newTokenCmd manages the backend API token in the OS keyring.
func newTokenCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the backend API token in the OS keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Store the API token",
			RunE: func(cmd *cobra.Command, args []string) error {
				token, err := readToken(stdout)
				if err != nil {
					return err
				}
				if err := credentials.NewManager().Set(token); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Token stored. Enable api.token_from_keyring in your config to use it.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show where the API token comes from",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, source, err := credentials.NewManager().Get()
				if err != nil {
					return err
				}
				switch source {
				case credentials.SourceNone:
					fmt.Fprintln(stdout, "No token stored.")
				default:
					fmt.Fprintf(stdout, "Token available (source: %s).\n", source)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the API token from the keyring",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := credentials.NewManager().Delete(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Token removed.")
				return nil
			},
		},
	)

	return cmd
}

// readToken prompts for the token without echoing when stdin is a
// terminal; piped input is read as a single line.
func readToken(stdout io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(stdout, "API token: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(stdout)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
