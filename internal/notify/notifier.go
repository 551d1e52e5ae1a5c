// Package notify pushes best-effort staff notifications about inquiries.
// Delivery never blocks or fails the request that triggered it.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hazacheck/internal/domain"
	"hazacheck/internal/metrics"

	"go.uber.org/zap"
)

// EventKind identifies what happened to an inquiry
type EventKind string

const (
	EventInquiryCreated EventKind = "inquiry_created"
	EventStatusChanged  EventKind = "status_changed"
)

// Event is a single notification about an inquiry
type Event struct {
	Kind EventKind

	// Inquiry is set for EventInquiryCreated
	Inquiry domain.Inquiry

	// Status change details, set for EventStatusChanged
	InquiryID uint
	OldStatus domain.Status
	NewStatus domain.Status
	Note      string

	At time.Time
}

// Notifier accepts events without blocking the caller
type Notifier interface {
	Notify(Event)
}

// Sender delivers an event over one channel
type Sender interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, e Event) error
}

// Nop discards every event
type Nop struct{}

func (Nop) Notify(Event) {}

// Dispatcher fans events out to every enabled sender on its own goroutine.
// Each send is bounded by timeout; failures are logged and counted, never retried.
type Dispatcher struct {
	senders []Sender
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the enabled senders
func NewDispatcher(log *zap.Logger, timeout time.Duration, senders ...Sender) *Dispatcher {
	d := &Dispatcher{timeout: timeout, log: log}
	for _, s := range senders {
		if s == nil || !s.Enabled() {
			log.Info("notification channel disabled", zap.String("channel", channelName(s)))
			continue
		}
		log.Info("notification channel enabled", zap.String("channel", s.Name()))
		d.senders = append(d.senders, s)
	}
	return d
}

// Channels returns the names of the enabled senders
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.senders))
	for _, s := range d.senders {
		names = append(names, s.Name())
	}
	return names
}

// Notify schedules delivery of e and returns immediately
func (d *Dispatcher) Notify(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	for _, s := range d.senders {
		d.wg.Add(1)
		go d.deliver(s, e)
	}
}

func (d *Dispatcher) deliver(s Sender, e Event) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return s.Send(ctx, e)
	}()

	metrics.RecordNotification(s.Name(), err)
	fields := []zap.Field{
		zap.String("channel", s.Name()),
		zap.String("event", string(e.Kind)),
		zap.Uint("inquiry_id", e.subjectID()),
	}
	if err != nil {
		d.log.Warn("notification failed", append(fields, zap.Error(err))...)
		return
	}
	d.log.Info("notification sent", fields...)
}

// Wait blocks until in-flight deliveries finish or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e Event) subjectID() uint {
	if e.Kind == EventInquiryCreated {
		return e.Inquiry.ID
	}
	return e.InquiryID
}

func channelName(s Sender) string {
	if s == nil {
		return "unknown"
	}
	return s.Name()
}
