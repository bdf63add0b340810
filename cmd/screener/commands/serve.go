package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescreener/internal/api"
	"github.com/wonny/valuescreener/internal/api/handlers"
	"github.com/wonny/valuescreener/internal/history"
	"github.com/wonny/valuescreener/internal/scheduler"
	"github.com/wonny/valuescreener/internal/scheduler/jobs"
	"github.com/wonny/valuescreener/internal/session"
	"github.com/wonny/valuescreener/internal/watchlist"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BFF server",
	Long: `Starts the backend-for-frontend HTTP server.

이 명령어는:
- 페이지별 스크리닝 세션 관리 (criteria, submit, results, CSV)
- 히스토리 / 워치리스트 프록시
- WebSocket 상태 푸시 (/ws)
- 백그라운드 새로고침 스케줄러

Endpoints:
  GET    /health
  GET    /api/indices
  GET    /api/dcf/{ticker}
  GET    /api/financials/{ticker}
  GET    /api/sessions
  POST   /api/sessions
  GET    /api/sessions/{id}
  DELETE /api/sessions/{id}
  PATCH  /api/sessions/{id}/criteria
  PUT    /api/sessions/{id}/criteria
  POST   /api/sessions/{id}/submit[?wait=true]
  POST   /api/sessions/{id}/reset
  GET    /api/sessions/{id}/results
  GET    /api/sessions/{id}/export.csv
  GET    /api/history
  GET    /api/history/{id}
  DELETE /api/history/{id}?confirm=true
  GET    /api/watchlist
  POST   /api/watchlist
  DELETE /api/watchlist/{id}
  GET    /api/jobs
  POST   /api/jobs/{name}/run
  GET    /ws

Example:
  go run ./cmd/screener serve
  go run ./cmd/screener serve --port 8090 --no-scheduler`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort        string
	serveNoScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "server port (default PORT)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "disable background refresh jobs")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Config, logger, gateway
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if servePort != "" {
		cfg.Port = servePort
	}

	log.WithFields(map[string]interface{}{
		"port":     cfg.Port,
		"env":      cfg.Env,
		"upstream": cfg.API.BaseURL,
		"policy":   cfg.Session.Policy,
		"redis":    a.rdb.Enabled(),
	}).Info("Initializing BFF server")

	// 2. Page sessions
	policy, err := session.ParsePolicy(cfg.Session.Policy)
	if err != nil {
		return err
	}
	opts := session.DefaultOptions()
	opts.Policy = policy
	opts.PreserveResultsOnFailure = cfg.Session.PreserveResults
	registry := session.NewRegistry(a.gw, opts, log)

	// 3. Side-stores
	hist := history.NewStore(a.gw, log)
	wl := watchlist.NewStore(a.gw, log)

	// 4. WebSocket push
	hub := api.NewHub(log)
	registry.OnEvent(hub.PublishSession)
	hist.OnChange(hub.PublishHistory)
	wl.OnChange(hub.PublishWatchlist)

	// 5. Scheduler
	sched := scheduler.New(log)
	for _, job := range []scheduler.Job{
		jobs.NewIndexDomainJob(a.gw, registry, cfg.Schedule.IndexRefresh, log),
		jobs.NewWatchlistRefreshJob(wl, cfg.Schedule.WatchlistRefresh, log),
		jobs.NewHistoryRefreshJob(hist, cfg.Schedule.HistoryRefresh, log),
		jobs.NewSessionSweepJob(registry, cfg.Session.MaxIdle, cfg.Schedule.SessionSweep, log),
	} {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}

	// 6. Router and server
	router := api.NewRouter(api.Handlers{
		Sessions:  handlers.NewSessionHandler(registry, cfg.Session.PageSize, log),
		Catalog:   handlers.NewCatalogHandler(a.gw, registry, log),
		History:   handlers.NewHistoryHandler(hist, log),
		Watchlist: handlers.NewWatchlistHandler(wl, log),
		Jobs:      handlers.NewJobsHandler(sched, log),
		WS:        hub,
	}, log)
	server := api.New(cfg, log, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	if !serveNoScheduler {
		sched.Start()
		// 시작 시 인덱스 목록을 한 번 로드
		_ = sched.RunJob("index_domain_refresh")
	}

	// 7. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", cfg.Port))
	PrintInfo(out, "Upstream: "+cfg.API.BaseURL)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if !serveNoScheduler {
		sched.Stop()
	}

	log.Info("Server stopped")
	return nil
}
