package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	profilegin "github.com/open-rails/profilekit/adapters/gin"
	"github.com/open-rails/profilekit/core"
	"github.com/open-rails/profilekit/jobs"
	"github.com/open-rails/profilekit/memberapi"
	pgstore "github.com/open-rails/profilekit/storage/postgres"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type config struct {
	ListenAddr     string          `yaml:"listen_addr"`
	MemberBaseURL  string          `yaml:"member_base_url"`
	MemberPaths    memberapi.Paths `yaml:"member_paths"`
	EmailPurpose   string          `yaml:"email_purpose"`
	MemberTimeout  time.Duration   `yaml:"member_timeout"`
	GateTicketTTL  time.Duration   `yaml:"gate_ticket_ttl"`
	SessionIdleTTL time.Duration   `yaml:"session_idle_ttl"`
	SweepSchedule  string          `yaml:"sweep_schedule"`
	RedisURL       string          `yaml:"redis_url"`
	DBURL          string          `yaml:"db_url"`
	TrustedHeader  string          `yaml:"trusted_header"`
	DevMode        bool            `yaml:"dev_mode"`

	Accept profilegin.AcceptConfig `yaml:"accept"`
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
	}
	if err := runServe(cfg); err != nil {
		fatal(err)
	}
}

func loadConfig() (*config, error) {
	c := &config{
		ListenAddr:     envOr("PROFILEKIT_LISTEN_ADDR", ":8080"),
		MemberBaseURL:  strings.TrimRight(strings.TrimSpace(os.Getenv("PROFILEKIT_MEMBER_BASE_URL")), "/"),
		MemberPaths:    memberapi.DefaultPaths(),
		EmailPurpose:   envOr("PROFILEKIT_EMAIL_PURPOSE", memberapi.DefaultEmailPurpose),
		MemberTimeout:  envDuration("PROFILEKIT_MEMBER_TIMEOUT", 10*time.Second),
		GateTicketTTL:  envDuration("PROFILEKIT_GATE_TICKET_TTL", core.DefaultGateTicketTTL),
		SessionIdleTTL: envDuration("PROFILEKIT_SESSION_IDLE_TTL", core.DefaultSessionIdleTTL),
		SweepSchedule:  envOr("PROFILEKIT_SWEEP_SCHEDULE", jobs.DefaultSweepSchedule),
		RedisURL:       firstEnv("PROFILEKIT_REDIS_URL", "REDIS_URL"),
		DBURL:          firstEnv("DB_URL", "DATABASE_URL"),
		TrustedHeader:  envOr("PROFILEKIT_TRUSTED_HEADER", "X-User-ID"),
		DevMode:        envBool("PROFILEKIT_DEV_MODE", false),
	}
	if iss := strings.TrimSpace(os.Getenv("PROFILEKIT_ISSUER")); iss != "" {
		c.Accept.Issuers = []profilegin.IssuerAccept{{
			Issuer:    strings.TrimRight(iss, "/"),
			Audiences: parseCSVEnv("PROFILEKIT_AUDIENCES", nil),
			JWKSURL:   strings.TrimSpace(os.Getenv("PROFILEKIT_JWKS_URL")),
		}}
	}
	if path := strings.TrimSpace(os.Getenv("PROFILEKIT_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// file values override the environment
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if c.MemberBaseURL == "" {
		return nil, fmt.Errorf("PROFILEKIT_MEMBER_BASE_URL is required (e.g. http://member:8081)")
	}
	if len(c.Accept.Issuers) == 0 && !c.DevMode {
		return nil, fmt.Errorf("PROFILEKIT_ISSUER is required unless PROFILEKIT_DEV_MODE=true")
	}
	return c, nil
}

func runServe(cfg *config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := memberapi.New(memberapi.Config{
		BaseURL:      cfg.MemberBaseURL,
		Paths:        cfg.MemberPaths,
		EmailPurpose: cfg.EmailPurpose,
		Timeout:      cfg.MemberTimeout,
	}).WithLogger(log.StandardLogger())

	svc, err := profilegin.NewService(core.Config{
		GateTicketTTL:  cfg.GateTicketTTL,
		SessionIdleTTL: cfg.SessionIdleTTL,
	}, cli)
	if err != nil {
		return err
	}
	svc.WithLogger(log.StandardLogger())

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rd := redis.NewClient(opts)
		defer rd.Close()
		if err := rd.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		svc.WithRedis(rd)
	} else {
		log.Warn("profilekit: no Redis configured; gate tickets are kept in memory (single-node only)")
	}

	if cfg.DBURL != "" {
		pg, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		events := pgstore.NewEventLog(pg)
		if err := events.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure event schema: %w", err)
		}
		svc.WithEventLogger(events)
	} else {
		svc.WithEventLogger(core.LogrusEventLogger{Log: log.StandardLogger()})
	}

	if len(cfg.Accept.Issuers) > 0 {
		svc.WithVerifier(profilegin.NewVerifier(cfg.Accept))
	} else {
		log.WithField("header", cfg.TrustedHeader).Warn("profilekit: dev mode, trusting caller id header")
		svc.WithAuth(profilegin.TrustedHeader(cfg.TrustedHeader))
	}

	sched := jobs.NewScheduler(log.StandardLogger())
	sweep := jobs.NewSweepIdleSessions(svc.Core(), log.StandardLogger())
	if _, err := jobs.AddSweepIdleSessionsJob(sched, cfg.SweepSchedule, sweep); err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	svc.GinRegisterAPI(r.Group("/api/v1"))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	log.WithField("addr", cfg.ListenAddr).Info("profilekit listening")

	select {
	case err := <-errCh:
		svc.Core().Shutdown()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	svc.Core().Shutdown()
	return err
}

func parseCSVEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func fatal(err error) {
	if err == nil {
		os.Exit(0)
	}
	if errors.Is(err, http.ErrServerClosed) {
		os.Exit(0)
	}
	log.WithError(err).Error("profilekit exited")
	os.Exit(1)
}
