// Package cli implements kbctl, a terminal client for the knowledge-base
// assistant backend. It shares the session, chat and admin services with the
// web front end and keeps its bearer token in a user-only file.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Options wires the command tree to its environment.
type Options struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type globalFlags struct {
	apiURL    string
	tokenFile string
	json      bool
	verbose   bool
}

// NewRootCommand builds the kbctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "kbctl",
		Short: "Knowledge-base assistant from the terminal",
		Long: `kbctl talks to the knowledge-base assistant backend: sign in, ask
questions, and manage roles and documents.

The backend address comes from KB_API_BASE_URL (or --api-url). The bearer
token is stored in a user-only file, by default under the OS config directory.

Examples:
  kbctl login --username admin
  kbctl chat "How do I request VPN access?"
  kbctl docs upload --visibility private handbook.pdf
  kbctl roles list --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "backend base URL (overrides KB_API_BASE_URL)")
	pf.StringVar(&flags.tokenFile, "token-file", "", "token file path (default: user config dir)")
	pf.BoolVar(&flags.json, "json", false, "print machine-readable JSON")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newStatusCommand(flags),
		newRegisterCommand(flags),
		newChatCommand(flags),
		newRolesCommand(flags),
		newUsersCommand(flags),
		newDocsCommand(flags),
		newStatsCommand(flags),
	)
	return root
}

// Execute runs kbctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(Options{}).ExecuteContext(ctx)
}
