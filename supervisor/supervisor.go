// Package supervisor runs the classify, login, sleep cycle until its context
// is canceled. It is the only error boundary: no probe or login failure ever
// stops the loop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dpulogin/logging"
	"dpulogin/portal"
	"dpulogin/probe"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 5 * time.Second

// Prober classifies connectivity.
type Prober interface {
	Classify(ctx context.Context) probe.Report
}

// LoginExecutor performs one gateway login.
type LoginExecutor interface {
	Login(ctx context.Context, creds portal.Credentials) (portal.Outcome, error)
}

// CycleResult describes one evaluation cycle.
type CycleResult struct {
	ID       string
	Started  time.Time
	Duration time.Duration

	Report         probe.Report
	LoginAttempted bool
	Outcome        portal.Outcome

	// Err and Kind are set when the cycle was abandoned.
	Err  error
	Kind ErrorKind
}

// Supervisor owns the cycle loop.
type Supervisor struct {
	prober      Prober
	login       LoginExecutor
	creds       portal.Credentials
	gatewayHost string
	interval    time.Duration
	logger      zerolog.Logger
	hook        func(CycleResult)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.interval = d
	}
}

// WithCycleHook registers fn to be called after every cycle, on the loop
// goroutine.
func WithCycleHook(fn func(CycleResult)) Option {
	return func(s *Supervisor) {
		s.hook = fn
	}
}

// New creates a supervisor. gatewayHost is the login host; DNS failures for
// it are reported as HostUnresolvable.
func New(prober Prober, login LoginExecutor, creds portal.Credentials, gatewayHost string, opts ...Option) (*Supervisor, error) {
	if prober == nil {
		return nil, errors.New("supervisor: prober required")
	}
	if login == nil {
		return nil, errors.New("supervisor: login executor required")
	}

	s := &Supervisor{
		prober:      prober,
		login:       login,
		creds:       creds,
		gatewayHost: gatewayHost,
		interval:    DefaultInterval,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		return nil, errors.New("supervisor: interval must be > 0")
	}
	return s, nil
}

// Run evaluates immediately, then every interval, until ctx is canceled.
// It returns nil on cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Str("gateway", s.gatewayHost).Msg("auto login service started")

	for {
		res := s.RunCycle(ctx)
		s.logger.Debug().
			Str("cycle_id", res.ID).
			Time("started", res.Started).
			Dur("duration", res.Duration).
			Bool("login_attempted", res.LoginAttempted).
			Msg("cycle finished")
		if s.hook != nil {
			s.hook(res)
		}

		if !sleep(ctx, s.interval) {
			s.logger.Info().Msg("auto login service stopping")
			return nil
		}
	}
}

// RunCycle performs one classify-and-login-if-needed cycle. It never panics
// and never returns an error; failures are logged and recorded in the result.
func (s *Supervisor) RunCycle(ctx context.Context) (res CycleResult) {
	res.ID = uuid.NewString()
	res.Started = time.Now()
	logger := s.logger.With().Str("cycle_id", res.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
			res.Kind = KindUnexpected
			s.logFailure(&logger, res)
		}
		res.Duration = time.Since(res.Started)
	}()

	res.Report = s.prober.Classify(ctx)
	if ctx.Err() != nil {
		return res
	}

	if !res.Report.Result.NeedsLogin() {
		logger.Info().Str("result", res.Report.Result.String()).Msg("internet is available")
		return res
	}

	event := logger.Warn().
		Str("result", res.Report.Result.String()).
		Str("tier", string(res.Report.Tier))
	if res.Report.Err != nil {
		event = event.Str("probe_error_kind", ClassifyError(res.Report.Err, s.gatewayHost).String())
	}
	if res.Report.Location != "" {
		event = event.Str("portal", res.Report.Location)
	}
	event.Msg("internet restricted or dns down, attempting login")

	res.LoginAttempted = true
	outcome, err := s.login.Login(ctx, s.creds)
	if err != nil {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		res.Err = err
		res.Kind = ClassifyError(err, s.gatewayHost)
		s.logFailure(&logger, res)
		return res
	}

	res.Outcome = outcome
	logger.Info().Int("status", outcome.StatusCode).Bool("success", outcome.Success).Msg("login http status")
	if outcome.Location != "" {
		logger.Info().Str("location", outcome.Location).Msg("redirected")
	}
	return res
}

func (s *Supervisor) logFailure(logger *zerolog.Logger, res CycleResult) {
	kind := res.Kind.String()
	switch res.Kind {
	case KindHostUnresolvable:
		logging.Critical(logger).Str("error_kind", kind).Str("host", s.gatewayHost).Err(res.Err).
			Msg("login server is not resolvable yet")
	case KindConfigurationMissing:
		logger.Error().Str("error_kind", kind).Err(res.Err).Msg("login skipped, credentials are not configured")
	case KindTransientNetwork, KindDNSUnresolved:
		logger.Warn().Str("error_kind", kind).Err(res.Err).Msg("login failed, retrying next cycle")
	default:
		logger.Error().Str("error_kind", kind).Err(res.Err).Msgf("unexpected error: %v", res.Err)
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
