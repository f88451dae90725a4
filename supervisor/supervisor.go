// Package supervisor implements the Supervisor (§4.7): a process container
// for several Distributed Units that fan one inbound bus subscription out
// to its DUs, pass each DU's published output straight through to the
// outbound bus, and emit a periodic liveness heartbeat. Grounded on the
// du package's own exec-goroutine/post idiom, generalized to a pool of
// DUs plus a bounded dispatch pool so one slow DU can't stall ingestion.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iascore/alarmcore/codec"
	"github.com/iascore/alarmcore/config"
	"github.com/iascore/alarmcore/du"
	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/pkg/worker"
	"github.com/iascore/alarmcore/value"
)

// Publisher delivers one published Value to the outbound bus. Implemented
// by bus.Publisher.
type Publisher interface {
	Publish(v value.Value) error
}

// Subscriber delivers batches of Values restricted to a requested id set,
// exactly like du.Subscriber — the Supervisor opens exactly one of these
// for the union of every owned DU's inputs.
type Subscriber interface {
	Start(ids []string, handler func([]value.Value)) error
	Stop() error
}

// HeartbeatEmitter periodically announces Supervisor liveness (§4.7a).
// Implemented by bus.HeartbeatLoop.
type HeartbeatEmitter interface {
	Start(interval time.Duration) error
	SetStatus(status codec.Status)
	Stop()
}

// DUFactory builds one DU from its resolved configuration, the Supervisor
// acting as its Publisher, and a per-DU Subscriber the Supervisor controls.
// cmd/supervisor supplies a factory that also wires a
// metrics.PrometheusStatsSink per DU id.
type DUFactory func(id *identifier.Identifier, resolved config.ResolvedDU, publisher du.Publisher, subscriber du.Subscriber, logger *slog.Logger) (*du.DU, error)

func defaultFactory(id *identifier.Identifier, resolved config.ResolvedDU, publisher du.Publisher, subscriber du.Subscriber, logger *slog.Logger) (*du.DU, error) {
	return du.New(id, resolved.Definition, resolved.AutoSendPeriod, resolved.Tolerance, publisher, subscriber, nil, resolved.ThrottleMinInterval, logger)
}

const defaultDispatchWorkers = 8
const defaultDispatchQueue = 1024

// livenessMultiple is the N in the "older than N x refresh period" warning
// thresholds (§4.7, scenario S5): dispatchAll applies it to each inbound
// value's sent-to-bus timestamp, checkLiveness to each DU's last publish.
const livenessMultiple = 2

// Supervisor owns a set of DUs built from a config.Reader, fans one bus
// subscription out to them, passes their output straight through to the
// bus, and emits a periodic heartbeat (§4.7).
type Supervisor struct {
	id         *identifier.Identifier
	reader     config.Reader
	publisher  Publisher
	subscriber Subscriber
	heartbeat  HeartbeatEmitter
	factory    DUFactory
	logger     *slog.Logger

	dispatch *worker.Pool[dispatchJob]

	heartbeatInterval time.Duration

	mu        sync.Mutex
	started   bool
	closeOnce sync.Once
	entries   map[string]*duEntry // keyed by resolved DU id

	livenessStop chan struct{}
	livenessWG   sync.WaitGroup
}

type duEntry struct {
	du             *du.DU
	inputs         map[string]struct{}
	autoSendPeriod time.Duration
	lastPublishAt  atomicTime
}

type dispatchJob struct {
	entry  *duEntry
	values []value.Value
}

// Option configures a Supervisor at construction.
type Option func(*Supervisor)

// WithDUFactory overrides how each DU is constructed, e.g. to wire a
// metrics.PrometheusStatsSink keyed by DU id.
func WithDUFactory(factory DUFactory) Option {
	return func(s *Supervisor) { s.factory = factory }
}

// WithDispatchPool overrides the bounded fan-out pool's size.
func WithDispatchPool(workers, queueSize int) Option {
	return func(s *Supervisor) {
		s.dispatch = worker.NewPool(workers, queueSize, s.runDispatchJob)
	}
}

// WithHeartbeatInterval overrides the default heartbeat/liveness-check
// period, normally taken from the configuration document.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(s *Supervisor) {
		if interval > 0 {
			s.heartbeatInterval = interval
		}
	}
}

// New constructs a Supervisor. Call Setup then Start to deploy and run it.
func New(id *identifier.Identifier, reader config.Reader, publisher Publisher, subscriber Subscriber, heartbeat HeartbeatEmitter, logger *slog.Logger, opts ...Option) (*Supervisor, error) {
	if id.Kind() != identifier.Supervisor {
		return nil, errors.WrapInvalid(errors.ErrUnexpectedParent, "Supervisor", "New", "id must be of kind SUPERVISOR")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Supervisor{
		id:                id,
		reader:            reader,
		publisher:         publisher,
		subscriber:        subscriber,
		heartbeat:         heartbeat,
		factory:           defaultFactory,
		logger:            logger,
		entries:           make(map[string]*duEntry),
		livenessStop:      make(chan struct{}),
		heartbeatInterval: defaultHeartbeatInterval,
	}
	s.dispatch = worker.NewPool(defaultDispatchWorkers, defaultDispatchQueue, s.runDispatchJob)

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Setup resolves every DU the configuration reader lists and builds it,
// the Supervisor standing in as each DU's Publisher and Subscriber
// (§4.7: "fan-out/fan-in"). Call once, before Start.
func (s *Supervisor) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := s.reader.DUDefinitions()
	if err != nil {
		return errors.WrapFatal(err, "Supervisor", "Setup", "resolve DU definitions")
	}

	for _, r := range resolved {
		duID, err := identifier.New(r.ID, identifier.DU, s.id)
		if err != nil {
			return errors.WrapInvalid(err, "Supervisor", "Setup", "build DU identifier "+r.ID)
		}

		entry := &duEntry{autoSendPeriod: r.AutoSendPeriod}
		perDUPublisher := &passthroughPublisher{supervisor: s, entry: entry}
		perDUSubscriber := &fanoutSubscriber{supervisor: s, duID: r.ID}

		instance, err := s.factory(duID, r, perDUPublisher, perDUSubscriber, s.logger)
		if err != nil {
			return errors.WrapFatal(err, "Supervisor", "Setup", "build DU "+r.ID)
		}
		entry.du = instance
		s.entries[r.ID] = entry
	}
	return nil
}

// Start starts the bounded dispatch pool, the heartbeat, every owned DU,
// and the one aggregate bus subscription for the union of their inputs.
// Fails if already started.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Supervisor", "Start", s.id.RunningID())
	}
	s.started = true
	entries := make(map[string]*duEntry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	s.mu.Unlock()

	if err := s.dispatch.Start(ctx); err != nil {
		return errors.WrapFatal(err, "Supervisor", "Start", "start dispatch pool")
	}

	globalInputs := make(map[string]struct{})
	for _, entry := range entries {
		if err := entry.du.Start(); err != nil {
			return errors.WrapFatal(err, "Supervisor", "Start", "start DU")
		}
		entry.du.EnableAutoRefresh(true)
		for _, in := range entry.du.DasuInputs() {
			globalInputs[in] = struct{}{}
			if entry.inputs == nil {
				entry.inputs = make(map[string]struct{})
			}
			entry.inputs[in] = struct{}{}
		}
	}

	ids := make([]string, 0, len(globalInputs))
	for id := range globalInputs {
		ids = append(ids, id)
	}
	if err := s.subscriber.Start(ids, s.dispatchAll); err != nil {
		return errors.WrapFatal(err, "Supervisor", "Start", "subscribe to global input set")
	}

	if s.heartbeat != nil {
		if err := s.heartbeat.Start(s.heartbeatInterval); err != nil {
			return errors.WrapFatal(err, "Supervisor", "Start", "start heartbeat")
		}
		s.heartbeat.SetStatus(codec.Running)
	}

	s.livenessWG.Add(1)
	go s.runLivenessCheck()

	return nil
}

const defaultHeartbeatInterval = 15 * time.Second

// dispatchAll is the Supervisor's single bus-subscriber callback. Every
// value is routed to every DU whose accepted input set contains it,
// submitted through the bounded dispatch pool so a slow DU handler cannot
// block the inbound delivery goroutine (§5).
func (s *Supervisor) dispatchAll(values []value.Value) {
	s.mu.Lock()
	entries := make([]*duEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	now := time.Now()
	for _, entry := range entries {
		var subset []value.Value
		for _, v := range values {
			if _, ok := entry.inputs[v.ID().Local()]; ok {
				subset = append(subset, v)
				if sent := v.Timestamps().SentToBus; !sent.IsZero() && now.Sub(sent) > livenessMultiple*entry.autoSendPeriod {
					s.logger.Warn("supervisor too slow: input older than the liveness threshold",
						"supervisor", s.id.RunningID(), "input", v.ID().Local(), "sentToBus", sent)
				}
			}
		}
		if len(subset) == 0 {
			continue
		}
		job := dispatchJob{entry: entry, values: subset}
		if err := s.dispatch.Submit(job); err != nil {
			s.logger.Warn("dropping dispatch job, pool saturated", "supervisor", s.id.RunningID(), "err", err)
		}
	}
}

func (s *Supervisor) runDispatchJob(_ context.Context, job dispatchJob) error {
	job.entry.du.InputsReceived(job.values)
	return nil
}

// passthroughPublisher is one DU's Publisher, implemented as a pass-through
// to the Supervisor's own outbound bus publisher, recording the publish
// time for the liveness check.
type passthroughPublisher struct {
	supervisor *Supervisor
	entry      *duEntry
}

func (p *passthroughPublisher) Publish(v value.Value) error {
	p.entry.lastPublishAt.Store(time.Now())
	return p.supervisor.publisher.Publish(v)
}

// fanoutSubscriber is one DU's Subscriber. Start is a no-op: the real bus
// subscription is the Supervisor's own, opened once in Start, which reads
// each DU's accepted input ids from DasuInputs; Stop is a no-op since there
// is nothing per-DU to release.
type fanoutSubscriber struct {
	supervisor *Supervisor
	duID       string
}

func (f *fanoutSubscriber) Start(ids []string, handler func([]value.Value)) error {
	return nil
}

func (f *fanoutSubscriber) Stop() error { return nil }

// runLivenessCheck periodically logs a warning (no metric is recorded)
// about any DU whose last publish is
// older than livenessMultiple x its own auto-send period — the auto-refresh
// task should have kept it fresh, so staleness past this means the DU's
// exec goroutine has stalled (§4.7, scenario S5).
func (s *Supervisor) runLivenessCheck() {
	defer s.livenessWG.Done()
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkLiveness()
		case <-s.livenessStop:
			return
		}
	}
}

func (s *Supervisor) checkLiveness() {
	s.mu.Lock()
	entries := make(map[string]*duEntry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	s.mu.Unlock()

	now := time.Now()
	for id, entry := range entries {
		last := entry.lastPublishAt.Load()
		if last.IsZero() {
			continue
		}
		threshold := livenessMultiple * entry.autoSendPeriod
		if now.Sub(last) > threshold {
			s.logger.Warn("DU has not published within the liveness threshold",
				"supervisor", s.id.RunningID(), "du", id, "since", last, "threshold", threshold)
		}
	}
}

// Cleanup idempotently stops the liveness check, heartbeat, every owned
// DU, the aggregate subscriber, and the dispatch pool (§4.7).
func (s *Supervisor) Cleanup() {
	s.closeOnce.Do(func() {
		close(s.livenessStop)
		s.livenessWG.Wait()

		if s.heartbeat != nil {
			s.heartbeat.SetStatus(codec.Exiting)
			s.heartbeat.Stop()
		}

		s.mu.Lock()
		entries := make([]*duEntry, 0, len(s.entries))
		for _, e := range s.entries {
			entries = append(entries, e)
		}
		s.mu.Unlock()

		for _, entry := range entries {
			entry.du.Cleanup()
		}

		if err := s.subscriber.Stop(); err != nil {
			s.logger.Warn("subscriber stop failed", "supervisor", s.id.RunningID(), "err", err)
		}
		if err := s.dispatch.Stop(5 * time.Second); err != nil {
			s.logger.Warn("dispatch pool did not drain before timeout", "supervisor", s.id.RunningID(), "err", err)
		}
	})
}
