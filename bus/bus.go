// Package bus provides the NATS-backed bus.Publisher/bus.Subscriber
// adapters (§6) that satisfy the du/supervisor packages' consumer-defined
// Publisher/Subscriber contracts, plus best-effort publish retry.
package bus

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/iascore/alarmcore/codec"
	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/pkg/retry"
	"github.com/iascore/alarmcore/value"
)

// publishRetry matches §7's "publish is best-effort" policy: a handful of
// quick attempts, then give up and let the DU's own auto-refresh re-send.
var publishRetry = retry.Config{
	MaxAttempts:  3,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     500 * time.Millisecond,
	Multiplier:   2.0,
	AddJitter:    true,
}

// Publisher publishes encoded Values to one outbound NATS subject (§6:
// "exactly one outbound topic aggregates all Values produced by all
// Supervisors").
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher returns a Publisher that publishes to subject over conn.
func NewPublisher(conn *nats.Conn, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// Publish encodes v and publishes it, retrying transient NATS errors with
// backoff before giving up (§7: "Bus I/O error on publish: ... best-effort").
func (p *Publisher) Publish(v value.Value) error {
	data, err := codec.Encode(v)
	if err != nil {
		return errors.WrapInvalid(err, "bus", "Publish", "encode value")
	}

	err = retry.Do(context.Background(), publishRetry, func() error {
		return p.conn.Publish(p.subject, data)
	})
	if err != nil {
		return errors.WrapTransient(err, "bus", "Publish", "publish to subject "+p.subject)
	}
	return nil
}

// Subscriber delivers decoded Values restricted to a requested id set on
// one NATS subject (the converter→core "inbound" topic, §6).
type Subscriber struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger

	sub *nats.Subscription
}

// NewSubscriber returns a Subscriber reading subject over conn.
func NewSubscriber(conn *nats.Conn, subject string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{conn: conn, subject: subject, logger: logger}
}

// Start subscribes to the configured subject, decoding each message and
// invoking handler only with Values whose id is in ids. Malformed messages
// are logged and dropped rather than killing the subscription.
func (s *Subscriber) Start(ids []string, handler func([]value.Value)) error {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		v, err := codec.Decode(msg.Data)
		if err != nil {
			s.logger.Warn("dropping malformed bus message", "subject", s.subject, "err", err)
			return
		}
		if _, ok := wanted[v.ID().Local()]; !ok {
			return
		}
		handler([]value.Value{v})
	})
	if err != nil {
		return errors.WrapFatal(err, "bus", "Start", "subscribe to subject "+s.subject)
	}
	s.sub = sub
	return nil
}

// Stop unsubscribes. Idempotent.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Unsubscribe()
	s.sub = nil
	if err != nil {
		return errors.WrapTransient(err, "bus", "Stop", "unsubscribe from subject "+s.subject)
	}
	return nil
}

// HeartbeatPublisher publishes codec.Heartbeat messages to the dedicated
// heartbeat subject (§6: Supervisor liveness, separate from the Value
// topics).
type HeartbeatPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewHeartbeatPublisher returns a HeartbeatPublisher publishing to subject.
func NewHeartbeatPublisher(conn *nats.Conn, subject string, logger *slog.Logger) *HeartbeatPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatPublisher{conn: conn, subject: subject, logger: logger}
}

// Publish encodes and publishes beat, best-effort (same retry policy as
// Publisher.Publish).
func (h *HeartbeatPublisher) Publish(beat codec.Heartbeat) error {
	data, err := codec.EncodeHeartbeat(beat)
	if err != nil {
		return errors.WrapInvalid(err, "bus", "HeartbeatPublisher.Publish", "encode heartbeat")
	}

	err = retry.Do(context.Background(), publishRetry, func() error {
		return h.conn.Publish(h.subject, data)
	})
	if err != nil {
		h.logger.Error("heartbeat publish failed", "subject", h.subject, "err", err)
		return errors.WrapTransient(err, "bus", "HeartbeatPublisher.Publish", "publish to subject "+h.subject)
	}
	return nil
}

// HeartbeatLoop drives a HeartbeatPublisher on a ticker, satisfying the
// supervisor package's HeartbeatEmitter contract (§4.7a): Start, SetStatus,
// Stop.
type HeartbeatLoop struct {
	publisher *HeartbeatPublisher
	id        string

	status atomic.Int32 // codec.Status

	stop chan struct{}
	done chan struct{}
}

// NewHeartbeatLoop returns a HeartbeatLoop publishing through publisher
// under the given Supervisor id, initially at codec.StartingUp.
func NewHeartbeatLoop(publisher *HeartbeatPublisher, id string) *HeartbeatLoop {
	h := &HeartbeatLoop{publisher: publisher, id: id}
	h.status.Store(int32(codec.StartingUp))
	return h
}

// SetStatus changes the status reported on the next and subsequent beats.
func (h *HeartbeatLoop) SetStatus(status codec.Status) {
	h.status.Store(int32(status))
}

// Start begins publishing a Heartbeat immediately and then every interval.
func (h *HeartbeatLoop) Start(interval time.Duration) error {
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		emit := func() {
			status := codec.Status(h.status.Load())
			_ = h.publisher.Publish(codec.Heartbeat{ID: h.id, Timestamp: time.Now(), Status: status})
		}
		emit()
		for {
			select {
			case <-ticker.C:
				emit()
			case <-h.stop:
				return
			}
		}
	}()
	return nil
}

// Stop ends the heartbeat loop and waits for the goroutine to exit.
// Idempotent.
func (h *HeartbeatLoop) Stop() {
	if h.stop == nil {
		return
	}
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
	<-h.done
}

// Connect dials url with reconnect behavior matching the teacher's
// natsclient defaults, returning a ready-to-use *nats.Conn.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("bus disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("bus reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.WrapFatal(err, "bus", "Connect", "connect to "+url)
	}
	return conn, nil
}
