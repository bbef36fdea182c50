// Package shutdown drains in-flight work when the process is interrupted.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout is how long a shutdown waits for tracked work.
const DefaultTimeout = 10 * time.Second

// ExitCode is used when a signal terminates the process.
const ExitCode = 130

// ErrShuttingDown is returned by Track once shutdown has begun.
var ErrShuttingDown = errors.New("shutdown in progress")

// Coordinator owns the set of in-flight top-level operations. On the first
// signal it stops accepting new operations, waits up to its timeout for the
// tracked ones to settle and then calls its exit function. It never cancels
// the operations themselves.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[uint64]string
	nextID   uint64
	closing  bool
	wg       sync.WaitGroup

	timeout    time.Duration
	exit       func(code int)
	onShutdown func(sig os.Signal)
	exited     chan struct{}
	logger     *slog.Logger
}

type Option func(*Coordinator)

// WithExit replaces os.Exit.
func WithExit(fn func(code int)) Option {
	return func(c *Coordinator) { c.exit = fn }
}

// OnShutdown registers fn to run once shutdown has begun, before draining.
func OnShutdown(fn func(sig os.Signal)) Option {
	return func(c *Coordinator) { c.onShutdown = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(timeout time.Duration, opts ...Option) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Coordinator{
		inflight: make(map[uint64]string),
		timeout:  timeout,
		exit:     os.Exit,
		exited:   make(chan struct{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Track runs fn as a tracked operation. It refuses to start once shutdown has
// begun.
func (c *Coordinator) Track(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrShuttingDown
	}
	id := c.nextID
	c.nextID++
	c.inflight[id] = name
	c.wg.Add(1)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		c.wg.Done()
	}()

	return fn(ctx)
}

// InFlight lists the names of tracked operations that have not settled.
func (c *Coordinator) InFlight() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.inflight))
	for _, n := range c.inflight {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ShuttingDown reports whether shutdown has begun.
func (c *Coordinator) ShuttingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return false
	}
	c.closing = true
	return true
}

// Drain waits up to the timeout for tracked operations and reports whether
// they all settled.
func (c *Coordinator) Drain() bool {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	t := time.NewTimer(c.timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// Shutdown begins shutdown, drains and exits. It returns false without doing
// anything when shutdown is already under way.
func (c *Coordinator) Shutdown(sig os.Signal) bool {
	if !c.begin() {
		c.logger.Info("Shutdown already in progress", "signal", sig)
		return false
	}

	c.logger.Info("Shutting down, waiting for in-flight work", "signal", sig, "in_flight", c.InFlight(), "timeout", c.timeout)
	if c.onShutdown != nil {
		c.onShutdown(sig)
	}
	if c.Drain() {
		c.logger.Info("In-flight work finished")
	} else {
		c.logger.Warn("Timed out waiting for in-flight work", "still_running", c.InFlight())
	}
	c.exit(ExitCode)
	close(c.exited)
	return true
}

// Exited is closed once the exit func returns. With os.Exit that never
// happens.
func (c *Coordinator) Exited() <-chan struct{} {
	return c.exited
}

// Watch starts handling sigs. The returned func stops watching.
func (c *Coordinator) Watch(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)
	quit := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-ch:
				go c.Shutdown(sig)
			case <-quit:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}
