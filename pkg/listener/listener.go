// Package listener implements the NotificationListener (spec.md component
// C5): a background subscription to Postgres LISTEN/NOTIFY channels that
// keeps the shared IndexCache/MainCache instances in sync across nodes.
//
// Subscription transport is github.com/lib/pq's pq.Listener, the
// standard idiomatic way to consume Postgres NOTIFY in Go (grounded on
// the teacher's own use of lib/pq for its sqlx driver). Reconnection
// backoff uses github.com/cenkalti/backoff/v4 and repeated-reconnect
// failures trip a github.com/sony/gobreaker circuit breaker so that a
// sustained outage stops hammering the database with connection
// attempts; both libraries are part of the retrieved example pack's
// dependency surface (AKJUS-bsc-erigon, jordigilh-kubernaut).
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/jecitDev/corebank/pkg/entitycore"
)

// Op identifies the kind of change a notification describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is the decoded payload of one NOTIFY message.
type Event struct {
	Channel string          `json:"-"`
	Op      Op              `json:"op"`
	PK      string          `json:"pk"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler applies one decoded Event to whichever shared cache it owns.
// Implementations must be idempotent: the same event may be delivered
// more than once (spec.md §4.5 ordering guarantees).
type Handler interface {
	Apply(ev Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ev Event) error

func (f HandlerFunc) Apply(ev Event) error { return f(ev) }

// Config configures Listener's connection and reconnect behavior.
type Config struct {
	// ConnString is the Postgres connection string passed to pq.Listener.
	ConnString string
	// MinReconnectInterval/MaxReconnectInterval bound pq.Listener's own
	// internal ping-retry loop.
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	// DrainTimeout bounds how long Shutdown waits for in-flight events to
	// finish applying before it returns.
	DrainTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinReconnectInterval <= 0 {
		c.MinReconnectInterval = 10 * time.Second
	}
	if c.MaxReconnectInterval <= 0 {
		c.MaxReconnectInterval = time.Minute
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
	return c
}

// Listener subscribes to registered channels and applies their events to
// registered handlers.
type Listener struct {
	cfg Config
	cb  *gobreaker.CircuitBreaker

	mu       sync.RWMutex
	handlers map[string]Handler

	newListener func(cfg Config, eventCallback func(pq.ListenerEventType, error)) pqListener

	cancel   context.CancelFunc
	draining chan struct{}
	done     chan struct{}
}

// pqListener is the subset of *pq.Listener that Listener depends on, so
// tests can substitute a fake.
type pqListener interface {
	Listen(channel string) error
	Unlisten(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
	Ping() error
}

// New builds a Listener. Register handlers with Register before calling Run.
func New(cfg Config) *Listener {
	cfg = cfg.withDefaults()
	l := &Listener{
		cfg:      cfg,
		handlers: make(map[string]Handler),
		draining: make(chan struct{}),
		done:     make(chan struct{}),
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "notification-listener",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
	l.newListener = func(cfg Config, eventCallback func(pq.ListenerEventType, error)) pqListener {
		return pq.NewListener(cfg.ConnString, cfg.MinReconnectInterval, cfg.MaxReconnectInterval, eventCallback)
	}
	return l
}

// RegisterHandler binds name (a channel/table name) to h. Not safe to call
// concurrently with Run's dispatch loop once Run has started subscribing;
// call it during setup.
func (l *Listener) RegisterHandler(name string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[name] = h
}

// Run subscribes to every registered channel and dispatches events until
// ctx is cancelled or Shutdown is called. It reconnects on failure using
// an exponential backoff and trips its circuit breaker after repeated
// consecutive failures.
func (l *Listener) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	l.mu.RLock()
	channels := make([]string, 0, len(l.handlers))
	for name := range l.handlers {
		channels = append(channels, name)
	}
	l.mu.RUnlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.MinReconnectInterval
	b.MaxInterval = l.cfg.MaxReconnectInterval
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		select {
		case <-ctx.Done():
			close(l.done)
			return ctx.Err()
		default:
		}

		_, err := l.cb.Execute(func() (interface{}, error) {
			return nil, l.runOnce(ctx, channels)
		})
		if ctx.Err() != nil {
			close(l.done)
			return ctx.Err()
		}
		if err != nil {
			log.Printf("[listener] subscription attempt failed: %v; backing off", err)
		}

		select {
		case <-time.After(b.NextBackOff()):
		case <-ctx.Done():
			close(l.done)
			return ctx.Err()
		}
	}
}

// Shutdown requests that Run stop and waits for it to exit, up to
// cfg.DrainTimeout (overridden by ctx's own deadline if it expires
// first): it cancels Run's context so the current notification finishes
// dispatching — dispatch is synchronous, so nothing is left in flight
// once runOnce's select loop observes cancellation — and no new
// notification is picked up. Shutdown is a no-op if Run was never
// started, and safe to call more than once.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	cancel := l.cancel
	if cancel == nil {
		l.mu.Unlock()
		return nil
	}
	select {
	case <-l.draining:
		l.mu.Unlock()
	default:
		close(l.draining)
		l.mu.Unlock()
	}
	cancel()

	timeout := l.cfg.DrainTimeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("listener: shutdown: drain timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runOnce establishes one subscription lifetime: connect, LISTEN to every
// channel, dispatch notifications until the connection drops or ctx ends.
func (l *Listener) runOnce(ctx context.Context, channels []string) error {
	var connErr error
	pl := l.newListener(l.cfg, func(ev pq.ListenerEventType, err error) {
		if ev == pq.ListenerEventConnectionAttemptFailed {
			connErr = err
		}
	})
	defer pl.Close()

	for _, ch := range channels {
		if err := pl.Listen(ch); err != nil {
			return fmt.Errorf("listener: LISTEN %s: %w", ch, err)
		}
	}

	notifCh := pl.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifCh:
			if !ok {
				if connErr != nil {
					return connErr
				}
				return fmt.Errorf("listener: notification channel closed")
			}
			if n == nil {
				continue // keepalive ping, per pq.Listener contract
			}
			l.dispatch(*n)
		}
	}
}

func (l *Listener) dispatch(n pq.Notification) {
	l.mu.RLock()
	h, ok := l.handlers[n.Channel]
	l.mu.RUnlock()
	if !ok {
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
		log.Printf("[listener] channel %s: malformed payload, skipped: %v", n.Channel, err)
		return
	}
	ev.Channel = n.Channel

	if err := h.Apply(ev); err != nil {
		log.Printf("[listener] channel %s: handler apply failed, skipped: %v", n.Channel, err)
	}
}

// ParsePrimaryKey is a convenience for handlers decoding Event.PK.
func ParsePrimaryKey(s string) (entitycore.PrimaryKey, error) {
	return entitycore.ParsePrimaryKey(s)
}
