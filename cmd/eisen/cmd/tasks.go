package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"eisen/internal/task"
	"eisen/internal/utils"
)

func newListCmd(stdout io.Writer, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			if err := a.engine.ReloadTasks(ctx, false); err != nil {
				return err
			}
			printBoard(stdout, a.store.Tasks())
			return nil
		},
	}
}

func printBoard(out io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return
	}
	for _, status := range task.KnownStatuses {
		var bucket []task.Task
		for _, t := range tasks {
			if t.Status == status {
				bucket = append(bucket, t)
			}
		}
		if len(bucket) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s\n", status.Label())
		for _, t := range bucket {
			suffix := ""
			if t.ParentTaskID != "" {
				suffix = fmt.Sprintf("  (from %s)", t.ParentTaskTitle)
			}
			fmt.Fprintf(out, "  %-28s %s%s\n", t.ID, t.Title, suffix)
		}
	}
}

func newAddCmd(stdout io.Writer, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task in the uncategorized bucket",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()
			return a.engine.CreateTask(ctx, strings.Join(args, " "))
		},
	}
}

func newMoveCmd(stdout io.Writer, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move a task to another matrix bucket",
		Long: "Move a task to another matrix bucket. Valid statuses: " +
			statusNames() + ".",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			if err := a.engine.ReloadTasks(ctx, false); err != nil {
				return err
			}
			status := task.Status(args[1])
			if !status.IsKnown() {
				return utils.ErrInvalidStatus(args[1])
			}
			if _, _, ok := a.store.Find(args[0]); !ok {
				return utils.ErrTaskNotFound(args[0])
			}
			return a.engine.UpdateStatus(ctx, args[0], status)
		},
	}
}

func statusNames() string {
	names := make([]string, len(task.KnownStatuses))
	for i, s := range task.KnownStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func newDoneCmd(stdout io.Writer, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			if err := a.engine.ReloadTasks(ctx, false); err != nil {
				return err
			}
			if _, _, ok := a.store.Find(args[0]); !ok {
				return utils.ErrTaskNotFound(args[0])
			}
			return a.engine.CompleteTask(ctx, args[0])
		},
	}
}

func newRemoveCmd(stdout io.Writer, opts *Options) *cobra.Command {
	var skipConfirm bool
	cmd := &cobra.Command{
		Use:   "rm <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			if err := a.engine.ReloadTasks(ctx, false); err != nil {
				return err
			}
			t, _, ok := a.store.Find(args[0])
			if !ok {
				return utils.ErrTaskNotFound(args[0])
			}
			if !skipConfirm {
				prompt := fmt.Sprintf("Delete %q", t.Title)
				if !utils.PromptYesNoWithReader(prompt, cmd.InOrStdin(), stdout) {
					fmt.Fprintln(stdout, "Cancelled.")
					return nil
				}
			}
			return a.engine.DeleteTask(ctx, args[0])
		},
	}
	cmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "delete without asking")
	return cmd
}

func newBreakdownCmd(stdout io.Writer, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "breakdown <task-id>",
		Short: "Ask the backend's AI to decompose a task into subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			if err := a.engine.ReloadTasks(ctx, false); err != nil {
				return err
			}
			if _, _, ok := a.store.Find(args[0]); !ok {
				return utils.ErrTaskNotFound(args[0])
			}
			if err := a.engine.RequestBreakdown(ctx, args[0]); err != nil {
				return err
			}
			for _, t := range a.store.Tasks() {
				if t.ParentTaskID == args[0] {
					fmt.Fprintf(stdout, "  %-28s %s\n", t.ID, t.Title)
				}
			}
			return nil
		},
	}
}

func newStatsCmd(stdout io.Writer, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show weekly completion statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			if !a.gateway.Configured() {
				return utils.ErrBackendNotConfigured()
			}
			if err := a.engine.RefreshStats(ctx); err != nil {
				return err
			}
			stats := a.store.WeeklyStats()
			if stats == nil {
				fmt.Fprintln(stdout, "No stats available yet.")
				return nil
			}
			fmt.Fprintf(stdout, "Week %s – %s\n", stats.WeekStart, stats.WeekEnd)
			fmt.Fprintf(stdout, "  created:   %d\n", stats.TotalCreated)
			fmt.Fprintf(stdout, "  completed: %d\n", stats.TotalCompleted)
			if stats.CompletionRate != nil {
				fmt.Fprintf(stdout, "  completion rate: %.0f%%\n", *stats.CompletionRate*100)
			}
			if stats.AvgLifetimeDays != nil {
				fmt.Fprintf(stdout, "  avg lifetime: %.1f days\n", *stats.AvgLifetimeDays)
			}
			if stats.AdoptionRate != nil {
				fmt.Fprintf(stdout, "  adoption rate: %.0f%%\n", *stats.AdoptionRate*100)
			}
			return nil
		},
	}
}

func newStatusCmd(stdout io.Writer, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check backend connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts, stdout, false)
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			if !a.gateway.Configured() {
				fmt.Fprintln(stdout, "Backend: not configured (display-only mode)")
				return nil
			}
			fmt.Fprintf(stdout, "Backend: %s\n", a.cfg.API.BaseURL)
			if err := a.monitor.CheckNow(ctx); err != nil {
				fmt.Fprintln(stdout, "Status:  disconnected")
				return utils.ErrBackendOffline(err.Error())
			}
			fmt.Fprintln(stdout, "Status:  connected")
			return nil
		},
	}
}
