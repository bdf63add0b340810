package commands

import (
	"fmt"
	"os"

	"github.com/wonny/valuescreener/internal/gateway"
	"github.com/wonny/valuescreener/pkg/config"
	"github.com/wonny/valuescreener/pkg/httputil"
	"github.com/wonny/valuescreener/pkg/logger"
	"github.com/wonny/valuescreener/pkg/ratelimit"
	"github.com/wonny/valuescreener/pkg/redis"
)

// app holds the dependencies shared by every command
type app struct {
	cfg     *config.Config
	profile *profile
	log     *logger.Logger
	rdb     *redis.Client
	gw      *gateway.Client
}

// newApp loads config and builds the gateway.
// Interactive commands log to stderr in console format at warn level unless --verbose.
func newApp(server bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	prof, err := loadProfile(configFile)
	if err != nil {
		return nil, err
	}

	switch {
	case apiURL != "":
		cfg.API.BaseURL = apiURL
	case prof.APIURL != "":
		cfg.API.BaseURL = prof.APIURL
	}
	if prof.PageSize > 0 {
		cfg.Session.PageSize = prof.PageSize
	}
	if !server {
		cfg.LogFormat = "console"
		if !verbose {
			cfg.LogLevel = "warn"
		}
	} else if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.NewWithWriter(cfg, os.Stderr)

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	httpClient := httputil.New(log)
	if reqTimeout > 0 {
		httpClient = httpClient.WithTimeout(reqTimeout)
	}
	if limiter := ratelimit.FromConfig(cfg, rdb); limiter != nil {
		httpClient = httpClient.WithLimiter(limiter)
	}

	return &app{
		cfg:     cfg,
		profile: prof,
		log:     log,
		rdb:     rdb,
		gw:      gateway.NewClient(httpClient, cfg.API.BaseURL, log),
	}, nil
}

// Close releases the Redis connection
func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
