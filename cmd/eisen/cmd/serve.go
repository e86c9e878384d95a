package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eisen/internal/server"
	"eisen/internal/shutdown"
	"eisen/internal/task"
)

// newServeCmd runs the built-in in-memory reference backend. Point
// api.base_url (or EISEN_API_URL) at it to try the board without a real
// deployment.
func newServeCmd(stdout io.Writer, opts *Options) *cobra.Command {
	var (
		addr           string
		apiToken       string
		requireCSRF    bool
		breakdownDelay time.Duration
		seedDemo       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the built-in demo backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.New(server.Options{
				APIToken:       apiToken,
				RequireCSRF:    requireCSRF,
				BreakdownDelay: breakdownDelay,
			})
			if seedDemo {
				seedDemoTasks(srv)
			}

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			coord := shutdown.NewCoordinator()
			coord.Register("http listener", httpSrv.Shutdown)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpSrv.ListenAndServe()
			}()

			fmt.Fprintf(stdout, "demo backend listening on %s\n", addr)
			fmt.Fprintf(stdout, "run the board with: EISEN_API_URL=http://%s eisen\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			teardownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return coord.Shutdown(teardownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&apiToken, "token", "", "require this bearer token on every request")
	cmd.Flags().BoolVar(&requireCSRF, "require-csrf", false, "enforce CSRF token rotation on mutations")
	cmd.Flags().DurationVar(&breakdownDelay, "breakdown-delay", 2*time.Second, "simulated AI breakdown latency")
	cmd.Flags().BoolVar(&seedDemo, "seed", false, "start with a few demo tasks")

	return cmd
}

func seedDemoTasks(srv *server.Server) {
	now := time.Now()
	seeds := []struct {
		title  string
		status task.Status
	}{
		{"File the quarterly report", task.StatusUrgentImportant},
		{"Plan next sprint", task.StatusNotUrgentImportant},
		{"Answer the vendor email", task.StatusUrgentNotImportant},
		{"Sort the downloads folder", task.StatusNotUrgentNotImportant},
		{"Read the onboarding doc", task.StatusUncategorized},
	}
	for _, seed := range seeds {
		srv.Seed(task.Task{
			ID:        task.GenerateID(),
			Title:     seed.title,
			Status:    seed.status,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
}
