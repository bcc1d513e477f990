package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jmgilman/go/statekit/errors"
	"github.com/jmgilman/go/statekit/metrics"
	"github.com/jmgilman/go/statekit/provider/memory"
	"github.com/jmgilman/go/statekit/storage"
	"github.com/jmgilman/go/statekit/store"
)

// Project is the entity managed by the demo.
type Project struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"shortDescription"`
	PublishDate      time.Time `json:"publishDate"`
	IsActive         bool      `json:"isActive"`
}

// EntityID implements store.Entity.
func (p Project) EntityID() string { return p.ID }

// WithID implements memory.Record.
func (p Project) WithID(id string) Project {
	p.ID = id
	return p
}

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	Latency     time.Duration
	MetricsAddr string
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through a projects store backed by an in-memory provider",
		Long: `Run a projects feature store against an in-memory provider with simulated
latency and injected failures, persisting preferences through the configured
storage backend. With --metrics-addr the collected metrics are served until
the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Latency, "latency", 50*time.Millisecond, "simulated provider latency")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve metrics on this address after the walkthrough (overrides metrics.addr)")

	return cmd
}

func seedProjects() []Project {
	return []Project{
		{
			Title:            "Community center",
			ShortDescription: "A meeting space for the San Miguel neighborhood",
			PublishDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			IsActive:         true,
		},
		{
			Title:            "Scholarships 2026",
			ShortDescription: "Financial support for outstanding students",
			PublishDate:      time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			IsActive:         true,
		},
		{
			Title:            "Urban gardens",
			ShortDescription: "Productive green spaces in abandoned lots",
			PublishDate:      time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			IsActive:         false,
		},
	}
}

func runDemo(rootOpts *RootOptions, opts *DemoOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)

	e, err := setup(rootOpts, cmd, errors.WithObserver(collector))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	prefs, medium, err := e.cfg.NewStorage(ctx, e.handler, e.logger, storage.WithObserver(collector))
	if err != nil {
		return err
	}
	if c, ok := medium.(io.Closer); ok {
		defer c.Close()
	}
	if !storage.Set(ctx, prefs, storage.KeyLanguage, e.cfg.Errors.Locale) {
		fmt.Fprintf(out, "failed to persist %s\n", storage.KeyLanguage)
	}
	if !storage.Set(ctx, prefs, storage.KeyLastRoute, "/projects", storage.WithTTL(30*time.Minute)) {
		fmt.Fprintf(out, "failed to persist %s\n", storage.KeyLastRoute)
	}

	provider := memory.New(
		memory.WithLatency[Project](opts.Latency),
		memory.WithSeed(seedProjects()...),
	)
	storeOpts := append(e.cfg.StoreOptions(e.handler, e.logger),
		store.WithName("ProjectsStore"),
		store.WithObserver(collector),
	)
	projects := store.NewCollection[Project](provider, storeOpts...)

	unsubscribe := projects.Subscribe(func(s store.State[Project]) {
		e.logger.Debug("projects state changed", "status", s.Status(), "items", s.ItemCount())
	})
	defer unsubscribe()

	// A transient failure is retried with backoff.
	provider.FailNext(errors.NewStatusError(503, "Service Unavailable"))
	if err := projects.Load(ctx); err != nil {
		return err
	}
	active := projects.Filter(func(p Project) bool { return p.IsActive })
	fmt.Fprintf(out, "loaded %d projects (%d active)\n", projects.ItemCount(), len(active))

	created, err := projects.Create(ctx, Project{
		Title:            "Community library",
		ShortDescription: "Three thousand books for the neighborhood",
		PublishDate:      time.Now().UTC(),
		IsActive:         true,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %q\n", created.Title)

	if _, err := projects.LoadOne(ctx, created.ID); err != nil {
		return err
	}
	created.Title = "Community library and study hall"
	if _, err := projects.Update(ctx, created.ID, created); err != nil {
		return err
	}
	if sel, ok := projects.Selected(); ok {
		fmt.Fprintf(out, "selected %q\n", sel.Title)
	}

	// Missing entities are permanent failures and are not retried.
	if _, err := projects.LoadOne(ctx, "missing"); err != nil {
		fmt.Fprintf(out, "load missing project: %s\n", projects.UserErrorMessage())
	}

	if err := projects.Delete(ctx, created.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %q, %d projects left\n", created.Title, projects.ItemCount())

	if route, ok := storage.Get[string](ctx, prefs, storage.KeyLastRoute); ok {
		fmt.Fprintf(out, "last route: %s\n", route)
	}

	addr := opts.MetricsAddr
	if addr == "" && e.cfg.Metrics.Enabled {
		addr = e.cfg.Metrics.Addr
	}
	if addr == "" {
		return nil
	}
	return serveMetrics(ctx, addr, reg, e)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, e *env) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
