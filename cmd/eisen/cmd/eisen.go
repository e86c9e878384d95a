// Package cmd implements the eisen command tree. The root command runs the
// interactive matrix board; subcommands cover one-shot task operations, the
// stats view, the demo backend and token management.
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"eisen/internal/config"
	"eisen/internal/credentials"
	"eisen/internal/engine"
	"eisen/internal/gateway"
	"eisen/internal/monitor"
	"eisen/internal/shutdown"
	"eisen/internal/state"
	"eisen/internal/tui"
	"eisen/internal/utils"
)

// Version is set at build time.
var Version = "dev"

// Options holds flag-level configuration, injectable for tests.
type Options struct {
	ConfigPath string
	Verbose    bool
	BaseURL    string // overrides the config file, used by tests
}

// Execute runs the CLI with the given arguments and IO writers.
func Execute(args []string, stdout, stderr io.Writer, opts *Options) int {
	rootCmd := NewRoot(stdout, stderr, opts)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// app bundles the wired client components for one command invocation.
type app struct {
	cfg     *config.Config
	store   *state.Store
	gateway *gateway.Client
	engine  *engine.Engine
	monitor *monitor.Monitor
	bridge  *tui.Bridge
}

// cliPresenter surfaces engine feedback on the terminal for non-TUI
// commands.
type cliPresenter struct {
	out io.Writer
}

func (cliPresenter) Repaint() {}

func (p cliPresenter) Feedback(level engine.Level, message string) {
	switch level {
	case engine.LevelError:
		fmt.Fprintf(p.out, "✗ %s\n", message)
	case engine.LevelSuccess:
		fmt.Fprintf(p.out, "✓ %s\n", message)
	default:
		fmt.Fprintf(p.out, "· %s\n", message)
	}
}

// buildApp loads config and wires store, gateway, engine and monitor. When
// interactive is true the engine presents through a TUI bridge instead of
// plain terminal lines.
func buildApp(opts *Options, stdout io.Writer, interactive bool) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Verbose || cfg.Logging.Verbose {
		utils.SetVerboseMode(true)
	}
	if opts.BaseURL != "" {
		cfg.API.BaseURL = opts.BaseURL
	}

	token := cfg.API.Token
	if cfg.API.TokenFromKeyring {
		stored, source, err := credentials.NewManager().Get()
		if err != nil {
			return nil, err
		}
		if source == credentials.SourceNone {
			return nil, utils.WrapWithSuggestion(
				fmt.Errorf("no API token stored"),
				"Run 'eisen token set' or unset api.token_from_keyring")
		}
		token = stored
	}

	timeout, err := cfg.APITimeout()
	if err != nil {
		return nil, err
	}

	store := state.NewStore()
	gw := gateway.New(gateway.Config{
		BaseURL:  cfg.API.BaseURL,
		APIToken: token,
		Timeout:  timeout,
	}, store)

	var ui engine.Presenter
	var bridge *tui.Bridge
	if interactive {
		bridge = tui.NewBridge()
		ui = bridge
	} else {
		ui = cliPresenter{out: stdout}
	}

	pollInterval, err := cfg.BreakdownPollInterval()
	if err != nil {
		return nil, err
	}
	eng := engine.New(store, gw, ui,
		engine.WithBreakdownPoll(cfg.Breakdown.PollAttempts, pollInterval))

	probeInterval, err := cfg.MonitorInterval()
	if err != nil {
		return nil, err
	}
	var repainter monitor.Repainter
	if bridge != nil {
		repainter = bridge
	}
	mon := monitor.New(gw, store, repainter, probeInterval)

	return &app{
		cfg:     cfg,
		store:   store,
		gateway: gw,
		engine:  eng,
		monitor: mon,
		bridge:  bridge,
	}, nil
}

// NewRoot creates the root command with injectable IO.
func NewRoot(stdout, stderr io.Writer, opts *Options) *cobra.Command {
	if opts == nil {
		opts = &Options{}
	}

	cmd := &cobra.Command{
		Use:     "eisen",
		Short:   "An Eisenhower matrix board over a remote task backend",
		Long:    "eisen renders your tasks as an Eisenhower matrix, synchronized with a remote backend. Run without arguments for the interactive board.",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			coord := shutdown.NewCoordinator()
			a.monitor.Start(ctx)
			coord.Register("connection monitor", func(context.Context) error {
				a.monitor.Stop()
				return nil
			})
			runErr := tui.Run(ctx, a.engine, a.store, a.bridge, a.cfg.UI.ShowCompleted)

			teardownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := coord.Shutdown(teardownCtx); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "path to the config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "enable verbose logging")

	cmd.AddCommand(
		newListCmd(stdout, opts),
		newAddCmd(stdout, opts),
		newMoveCmd(stdout, opts),
		newDoneCmd(stdout, opts),
		newRemoveCmd(stdout, opts),
		newBreakdownCmd(stdout, opts),
		newStatsCmd(stdout, opts),
		newStatusCmd(stdout, opts),
		newServeCmd(stdout, opts),
		newTokenCmd(stdout, stderr),
	)

	return cmd
}

// opTimeout bounds one-shot CLI operations so a stuck backend cannot hang
// the terminal.
const opTimeout = 2 * time.Minute

func opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, opTimeout)
}
