package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
)

type Config struct {
	BaseSize           int
	MaxOverflow        int
	ValidateOnCheckout bool
	// AcquireTimeout bounds the wait for a free connection. Zero waits until ctx is done.
	AcquireTimeout time.Duration
	// IdleTimeout retires connections idle for longer. Zero disables eviction.
	IdleTimeout       time.Duration
	HealthCheckPeriod time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseSize:           5,
		MaxOverflow:        10,
		ValidateOnCheckout: true,
		AcquireTimeout:     30 * time.Second,
		IdleTimeout:        30 * time.Minute,
		HealthCheckPeriod:  time.Minute,
	}
}

func (c Config) validate() error {
	switch {
	case c.BaseSize < 1:
		return fmt.Errorf("%w: base size must be at least 1, got %d", ErrConfiguration, c.BaseSize)
	case c.MaxOverflow < 0:
		return fmt.Errorf("%w: max overflow must not be negative, got %d", ErrConfiguration, c.MaxOverflow)
	case c.AcquireTimeout < 0 || c.IdleTimeout < 0 || c.HealthCheckPeriod < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrConfiguration)
	}
	return nil
}

func (c Config) maxSize() int {
	return c.BaseSize + c.MaxOverflow
}

type Stats struct {
	Acquired        int32
	Idle            int32
	Total           int32
	Max             int32
	AcquireTimeouts int64
}

type pooledConn struct {
	conn Conn
	// reused is set once the connection has been handed out and returned.
	reused bool
}

// Provider hands out pooled database sessions. Configure it before the first
// Acquire; after that its configuration is fixed.
type Provider struct {
	connect Connector
	logger  *slog.Logger

	mu     sync.Mutex
	cfg    Config
	pool   *puddle.Pool[*pooledConn]
	closed bool
	stop   chan struct{}
	done   chan struct{}

	// releaseMu serializes the idle-count check with the hand-back so
	// concurrent releases cannot push idle above the base size.
	releaseMu sync.Mutex

	timeouts atomic.Int64
}

func New(connect Connector, logger *slog.Logger) *Provider {
	return &Provider{
		connect: connect,
		logger:  logger,
		cfg:     DefaultConfig(),
	}
}

func (p *Provider) Configure(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool != nil || p.closed {
		return fmt.Errorf("%w: provider already in use", ErrConfiguration)
	}
	p.cfg = cfg
	return nil
}

func (p *Provider) ensurePool() (*puddle.Pool[*pooledConn], Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, p.cfg, ErrClosed
	}
	if p.pool != nil {
		return p.pool, p.cfg, nil
	}

	pool, err := puddle.NewPool(&puddle.Config[*pooledConn]{
		Constructor: p.construct,
		Destructor:  p.destruct,
		MaxSize:     int32(p.cfg.maxSize()),
	})
	if err != nil {
		return nil, p.cfg, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	p.pool = pool

	if p.cfg.IdleTimeout > 0 && p.cfg.HealthCheckPeriod > 0 {
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		go p.evictLoop(pool, p.cfg, p.stop, p.done)
	}

	p.logger.Info("session pool initialized",
		slog.Int("base_size", p.cfg.BaseSize),
		slog.Int("max_overflow", p.cfg.MaxOverflow),
		slog.Bool("validate_on_checkout", p.cfg.ValidateOnCheckout))

	return pool, p.cfg, nil
}

func (p *Provider) construct(ctx context.Context) (*pooledConn, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionBroken, err)
	}
	return &pooledConn{conn: conn}, nil
}

func (p *Provider) destruct(pc *pooledConn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pc.conn.Close(ctx); err != nil {
		p.logger.Debug("failed to close connection", slog.String("error", err.Error()))
	}
}

// Acquire leases a session. The caller must hand it back with Release exactly
// once; WithSession does that automatically.
func (p *Provider) Acquire(ctx context.Context) (*Session, error) {
	pool, cfg, err := p.ensurePool()
	if err != nil {
		return nil, err
	}

	acquireCtx := ctx
	if cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, cfg.AcquireTimeout)
		defer cancel()
	}

	for {
		res, err := pool.Acquire(acquireCtx)
		if err != nil {
			return nil, p.acquireError(err)
		}

		pc := res.Value()
		if cfg.ValidateOnCheckout && pc.reused {
			if err := pc.conn.Ping(acquireCtx); err != nil {
				p.logger.Warn("discarding connection that failed liveness probe",
					slog.String("error", err.Error()))
				res.Destroy()
				continue
			}
		}

		return &Session{res: res, pool: pool, baseSize: int32(cfg.BaseSize)}, nil
	}
}

func (p *Provider) acquireError(err error) error {
	switch {
	case errors.Is(err, puddle.ErrClosedPool):
		return ErrClosed
	case errors.Is(err, context.DeadlineExceeded):
		p.timeouts.Add(1)
		return fmt.Errorf("%w: %w", ErrPoolExhausted, err)
	default:
		return err
	}
}

// Release returns s to the pool. A broken session, a closed connection, or a
// connection beyond the base size is torn down instead. Releasing the same
// session twice is a no-op.
func (p *Provider) Release(s *Session, broken bool) {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}

	pc := s.res.Value()
	pc.reused = true

	if broken || pc.conn.IsClosed() {
		s.res.Destroy()
		return
	}

	p.releaseMu.Lock()
	defer p.releaseMu.Unlock()
	if s.pool.Stat().IdleResources() >= s.baseSize {
		s.res.Destroy()
		return
	}
	s.res.Release()
}

// WithSession runs fn with a leased session and releases it on every exit path.
// The session is treated as broken when fn panics, when fn returns a connection
// error, or when the connection closed during use. fn is never retried.
func (p *Provider) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) (err error) {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}

	panicked := true
	defer func() {
		broken := panicked || IsConnectionError(err) || s.Conn().IsClosed()
		p.Release(s, broken)
	}()

	err = fn(ctx, s)
	panicked = false
	return err
}

func (p *Provider) Stats() Stats {
	p.mu.Lock()
	pool, cfg := p.pool, p.cfg
	p.mu.Unlock()

	st := Stats{
		Max:             int32(cfg.maxSize()),
		AcquireTimeouts: p.timeouts.Load(),
	}
	if pool == nil {
		return st
	}

	ps := pool.Stat()
	st.Acquired = ps.AcquiredResources()
	st.Idle = ps.IdleResources()
	st.Total = ps.TotalResources()
	return st
}

// Close stops idle eviction and closes every connection. It blocks until
// leased sessions have been released.
func (p *Provider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	pool, stop, done := p.pool, p.stop, p.done
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if pool != nil {
		pool.Close()
	}
}

func (p *Provider) evictLoop(pool *puddle.Pool[*pooledConn], cfg Config, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(cfg.HealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := p.evictIdle(pool, cfg.IdleTimeout); n > 0 {
				p.logger.Debug("evicted idle connections", slog.Int("count", n))
			}
		}
	}
}

func (p *Provider) evictIdle(pool *puddle.Pool[*pooledConn], idleTimeout time.Duration) int {
	evicted := 0
	for _, res := range pool.AcquireAllIdle() {
		if res.IdleDuration() > idleTimeout {
			res.Destroy()
			evicted++
			continue
		}
		res.ReleaseUnused()
	}
	return evicted
}
