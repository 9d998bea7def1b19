package authcore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oru-platform/authcore/audit"
	"github.com/oru-platform/authcore/internal/limiters"
	"github.com/oru-platform/authcore/metrics"
	"github.com/oru-platform/authcore/session"
	"github.com/oru-platform/authcore/token"
)

// Options carries the dependencies a Service needs. Users, Tenants and Redis
// are required; the rest default to no-ops.
type Options struct {
	Users   UserDirectory
	Tenants TenantDirectory
	Redis   redis.UniversalClient
	Audit   audit.Sink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Service implements the full authentication lifecycle. A Service is safe
// for concurrent use.
type Service struct {
	cfg      Config
	users    UserDirectory
	tenants  TenantDirectory
	tokens   *token.Codec
	sessions *session.Store
	lockout  *limiters.Lockout
	mfaFails *limiters.MFAFailures
	audit    audit.Sink
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New validates cfg, applies defaults, and wires the Service.
func New(cfg Config, opts Options) (*Service, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Users == nil {
		return nil, errors.New("authcore: user directory required")
	}
	if opts.Tenants == nil {
		return nil, errors.New("authcore: tenant directory required")
	}
	if opts.Redis == nil {
		return nil, errors.New("authcore: redis client required")
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		ChallengeTTL:  cfg.ChallengeTTL,
		Issuer:        cfg.Issuer,
		Leeway:        cfg.Leeway,
	})
	if err != nil {
		return nil, err
	}

	sink := opts.Audit
	if sink == nil {
		sink = audit.NoOpSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		cfg:      cfg,
		users:    opts.Users,
		tenants:  opts.Tenants,
		tokens:   codec,
		sessions: session.NewStore(opts.Redis, cfg.RedisPrefix),
		lockout: limiters.NewLockout(opts.Redis, limiters.LockoutConfig{
			Threshold: cfg.LockoutThreshold,
			Window:    cfg.LockoutWindow,
		}),
		mfaFails: limiters.NewMFAFailures(opts.Redis, cfg.MFAFailureWindow),
		audit:    sink,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// Ping reports session-store availability and round-trip latency.
func (s *Service) Ping(ctx context.Context) (time.Duration, error) {
	return s.sessions.Ping(ctx)
}
