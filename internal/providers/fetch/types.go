package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/capability"
	"github.com/GriffinCanCode/boxfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Strategy names reported in results.
const (
	StrategyResty  = "resty"
	StrategyStream = "stream"
)

// Defaults applied to zero Config fields.
const (
	DefaultTimeout      = 300 * time.Second
	DefaultMaxRedirects = 10
	DefaultUserAgent    = "boxfs/1.0"
)

// Config tunes outbound requests.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	InsecureTLS  bool
	UserAgent    string
	RateLimit    float64 // requests per second; 0 means unlimited

	// BreakerThreshold consecutive failures against one host stop further fetches from it
	// for BreakerCooldown.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// DefaultConfig returns the default fetch settings.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		MaxRedirects: DefaultMaxRedirects,
		UserAgent:    DefaultUserAgent,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Fetcher downloads URLs into the confined root.
type Fetcher struct {
	guard    *paths.Guard
	profile  capability.Profile
	cfg      Config
	limiter  *rate.Limiter
	breakers *resilience.Set
	rich     *resty.Client
	plain    *http.Client
	log      *zap.Logger
	now      func() time.Time
}

// New creates a fetcher. Clients are built once; requests are bound to the caller's context.
func New(guard *paths.Guard, profile capability.Profile, cfg Config, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("fetch")
	cfg = cfg.withDefaults()

	return &Fetcher{
		guard:   guard,
		profile: profile,
		cfg:     cfg,
		limiter: newLimiter(cfg.RateLimit),
		breakers: resilience.NewSet(resilience.Settings{
			Threshold: cfg.BreakerThreshold,
			Cooldown:  cfg.BreakerCooldown,
			IsFailure: func(err error) bool { return !errors.Is(err, context.Canceled) },
			OnStateChange: func(host string, from, to resilience.State) {
				log.Warn("host breaker changed state", zap.String("host", host), zap.Stringer("from", from), zap.Stringer("to", to))
			},
		}),
		rich:  newRestyClient(cfg, log),
		plain: newStreamClient(cfg),
		log:   log,
		now:   time.Now,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// strategy picks the client for this host.
func (f *Fetcher) strategy() string {
	if f.profile.RichHTTPClient {
		return StrategyResty
	}
	return StrategyStream
}
