// Package browserpool bounds and reuses headless browser execution
// contexts over a single shared Chrome engine.
package browserpool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls pool behavior.
type Config struct {
	// MaxContexts caps concurrently held browser contexts system-wide.
	MaxContexts int
	UserAgent   string
}

// Handle is one acquired browser execution context. It is owned by exactly
// one in-flight fetch at a time and returned to the pool via Release.
type Handle struct {
	Ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	// damaged marks a handle whose tab can no longer be reused, e.g.
	// after a navigation timeout killed the CDP session.
	damaged bool
}

// MarkDamaged tells the pool to close this handle instead of reusing it.
func (h *Handle) MarkDamaged() {
	h.damaged = true
}

// Pool hands out reusable chromedp contexts bounded by a counting
// semaphore. The underlying browser engine is a lazily started singleton
// shared by every crawl; concurrent first acquisitions await the same
// start rather than racing.
type Pool struct {
	cfg    Config
	logger *zap.Logger

	slots chan struct{}

	mu          sync.Mutex
	started     bool
	gen         uint64
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	idle        []*Handle

	// indirection points for tests
	startEngine func() (context.Context, context.CancelFunc, context.CancelFunc, error)
	newTab      func(parent context.Context) (context.Context, context.CancelFunc)
}

// New builds a Pool. The engine is not started until the first Acquire.
func New(cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.MaxContexts <= 0 {
		return nil, fmt.Errorf("browserpool: max contexts must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		cfg:    cfg,
		logger: logger,
		slots:  make(chan struct{}, cfg.MaxContexts),
	}
	p.startEngine = p.startChrome
	p.newTab = func(parent context.Context) (context.Context, context.CancelFunc) {
		return chromedp.NewContext(parent)
	}
	return p, nil
}

func (p *Pool) startChrome() (context.Context, context.CancelFunc, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-extensions", true),
	)
	if p.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, nil, fmt.Errorf("chrome warmup: %w", err)
	}
	return browserCtx, browserCancel, allocCancel, nil
}

// Acquire blocks until a context slot frees up, lazily starting the shared
// engine on first use, and returns an idle handle or a fresh one.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire browser context: %w", ctx.Err())
	}

	h, err := p.takeOrCreate()
	if err != nil {
		<-p.slots
		return nil, err
	}
	return h, nil
}

func (p *Pool) takeOrCreate() (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureEngineLocked(); err != nil {
		return nil, err
	}
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return h, nil
	}
	tabCtx, tabCancel := p.newTab(p.browserCtx)
	return &Handle{Ctx: tabCtx, cancel: tabCancel, gen: p.gen}, nil
}

// ensureEngineLocked lazily starts the engine. Callers hold p.mu, so a
// concurrent first acquisition waits here instead of starting a second
// engine.
func (p *Pool) ensureEngineLocked() error {
	if p.started {
		return nil
	}
	browserCtx, browserStop, allocCancel, err := p.startEngine()
	if err != nil {
		return fmt.Errorf("start browser engine: %w", err)
	}
	p.browserCtx = browserCtx
	p.browserStop = browserStop
	p.allocCancel = allocCancel
	p.started = true
	p.logger.Info("browser engine started", zap.Int("max_contexts", p.cfg.MaxContexts))
	return nil
}

// Release returns the handle to the idle pool, or closes it when it is
// damaged or predates the current engine generation. It must be called on
// every exit path of a fetch.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	reusable := p.started && !h.damaged && h.gen == p.gen && len(p.idle) < p.cfg.MaxContexts
	if reusable {
		p.idle = append(p.idle, h)
	}
	p.mu.Unlock()

	if !reusable {
		h.cancel()
	}

	select {
	case <-p.slots:
	default:
	}
}

// Invalidate closes every pooled context and the shared engine. The next
// Acquire starts a fresh engine. Called on shutdown or after a detected
// engine disconnect.
func (p *Pool) Invalidate() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	browserStop := p.browserStop
	allocCancel := p.allocCancel
	p.browserCtx = nil
	p.browserStop = nil
	p.allocCancel = nil
	wasStarted := p.started
	p.started = false
	p.gen++
	p.mu.Unlock()

	for _, h := range idle {
		h.cancel()
	}
	if browserStop != nil {
		browserStop()
	}
	if allocCancel != nil {
		allocCancel()
	}
	if wasStarted {
		p.logger.Warn("browser engine invalidated")
	}
}

// IsDisconnect reports whether an error from a chromedp run indicates the
// shared engine itself went away, warranting a full pool invalidation.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"websocket: close",
		"use of closed network connection",
		"chrome failed to start",
		"browser process",
		"connection refused",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
