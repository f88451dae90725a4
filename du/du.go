// Package du implements the Distributed Unit (§4.6): the owner of a
// Topology's worth of Computing Elements, driving propagation from
// received bus Values to one published output, with throttling/coalescing
// on the input path and a periodic auto-refresh liveness publish.
package du

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/iascore/alarmcore/ce"
	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/tf"
	"github.com/iascore/alarmcore/topology"
	"github.com/iascore/alarmcore/value"
)

// Publisher delivers one Value to the outbound topic. Implemented by the
// bus package; a DU is also a valid Publisher target for a Supervisor
// acting as a pass-through (§4.7).
type Publisher interface {
	Publish(v value.Value) error
}

// Subscriber delivers batches of Values restricted to the requested ids.
// Implemented by the bus package; a Supervisor acting as a fan-out
// subscriber also satisfies this for its owned DUs (§4.7).
type Subscriber interface {
	Start(ids []string, handler func([]value.Value)) error
	Stop() error
}

// StatsSink receives propagation statistics (§4.6a).
type StatsSink interface {
	ObserveEvaluation(duration time.Duration)
	ObservePublish(changed bool)
}

// noopStatsSink discards every observation; used when no sink is supplied.
type noopStatsSink struct{}

func (noopStatsSink) ObserveEvaluation(time.Duration) {}
func (noopStatsSink) ObservePublish(bool)              {}

// CEConfig describes one Computing Element to build as part of a DU.
type CEConfig struct {
	ID            string
	Inputs        []string
	Output        string
	OutputTypeTag value.TypeTag
	TF            tf.TransferFunction
	Properties    map[string]string
	Limits        ce.Limits // zero value means ce.DefaultLimits
}

// Definition is a DU's CE topology plus its own output id.
type Definition struct {
	CEs      []CEConfig
	OutputID string
}

const defaultThrottleMinInterval = 250 * time.Millisecond

// DU is a Distributed Unit (§4.6). Construct with New; all further
// interaction goes through Start/EnableAutoRefresh/InputsReceived/Cleanup.
type DU struct {
	id    *identifier.Identifier
	topo  *topology.Topology
	ces   map[string]*ce.CE // keyed by topology CE id
	outCE string            // CE id that produces topo.DUOutput()

	publisher  Publisher
	subscriber Subscriber
	stats      StatsSink
	logger     *slog.Logger

	autoSendPeriod      time.Duration
	tolerance           time.Duration
	throttleMinInterval time.Duration

	// exec serializes every state-mutating operation onto one goroutine,
	// matching §9's "no shared mutable state escapes that context" note.
	exec      chan func()
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Owned exclusively by the exec goroutine from here down.
	started              bool
	autoRefreshEnabled   bool
	pending              map[string]value.Value
	pendingFullRunningID map[string]string
	lastUpdateTime       time.Time
	throttleScheduled    bool
	lastSent             *value.Value
	autoRefreshTimer     *time.Timer
}

// New builds the Topology, instantiates and initializes every CE, and
// fails construction if any CE ends TFBroken after init (§4.6). A nil
// logger falls back to slog.Default().
func New(id *identifier.Identifier, def Definition, autoSendPeriod, tolerance time.Duration, publisher Publisher, subscriber Subscriber, stats StatsSink, throttleMinInterval time.Duration, logger *slog.Logger) (*DU, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ceDefs := make([]topology.CEDefinition, len(def.CEs))
	for i, cfg := range def.CEs {
		ceDefs[i] = topology.CEDefinition{ID: cfg.ID, Inputs: cfg.Inputs, Output: cfg.Output}
	}
	topo, err := topology.New(def.OutputID, ceDefs)
	if err != nil {
		return nil, err
	}

	validityTimeFrame := autoSendPeriod + tolerance

	ces := make(map[string]*ce.CE, len(def.CEs))
	for _, cfg := range def.CEs {
		ceNodeID, err := identifier.New(cfg.ID, identifier.CE, id)
		if err != nil {
			return nil, errors.WrapInvalid(err, "DU", "New", "build CE identifier")
		}
		limits := cfg.Limits
		if limits == (ce.Limits{}) {
			limits = ce.DefaultLimits
		}
		instance, err := ce.New(ceNodeID, cfg.Output, cfg.OutputTypeTag, cfg.Inputs, cfg.TF, validityTimeFrame, cfg.Properties, limits, logger)
		if err != nil {
			return nil, errors.WrapInvalid(err, "DU", "New", fmt.Sprintf("build CE %q", cfg.ID))
		}
		if state := instance.Initialize(); state == ce.TFBroken {
			return nil, errors.WrapFatal(errors.ErrTFInitFailed, "DU", "New", fmt.Sprintf("CE %q failed to initialize", cfg.ID))
		}
		ces[cfg.ID] = instance
	}

	outCE, ok := topo.CEProducingOutput(def.OutputID)
	if !ok {
		return nil, errors.WrapFatal(errors.ErrOutputNotFound, "DU", "New", "no CE produces the DU output")
	}

	if stats == nil {
		stats = noopStatsSink{}
	}
	if throttleMinInterval <= 0 {
		throttleMinInterval = defaultThrottleMinInterval
	}

	d := &DU{
		id:                   id,
		topo:                 topo,
		ces:                  ces,
		outCE:                outCE,
		publisher:            publisher,
		subscriber:           subscriber,
		stats:                stats,
		logger:               logger,
		autoSendPeriod:       autoSendPeriod,
		tolerance:            tolerance,
		throttleMinInterval:  throttleMinInterval,
		exec:                 make(chan func(), 256),
		quit:                 make(chan struct{}),
		pending:              make(map[string]value.Value),
		pendingFullRunningID: make(map[string]string),
	}

	d.wg.Add(1)
	go d.run()

	return d, nil
}

// run is the DU's single execution context; every closure posted to exec
// runs here, one at a time.
func (d *DU) run() {
	defer d.wg.Done()
	for {
		select {
		case fn := <-d.exec:
			fn()
		case <-d.quit:
			return
		}
	}
}

// post submits fn to the exec goroutine without waiting for it to run.
func (d *DU) post(fn func()) {
	select {
	case d.exec <- fn:
	case <-d.quit:
	}
}

// postSync submits fn and blocks until it has run.
func (d *DU) postSync(fn func()) {
	done := make(chan struct{})
	d.post(func() {
		fn()
		close(done)
	})
	<-done
}

// DasuInputs returns the ids this DU reads from the bus.
func (d *DU) DasuInputs() []string { return d.topo.DasuInputs() }

// Start starts the subscriber on dasu_inputs; the publisher needs no
// start-up step. Returns failure if already started.
func (d *DU) Start() error {
	var outErr error
	d.postSync(func() {
		if d.started {
			outErr = errors.WrapInvalid(errors.ErrAlreadyStarted, "DU", "Start", d.id.RunningID())
			return
		}
		if err := d.subscriber.Start(d.topo.DasuInputs(), d.InputsReceived); err != nil {
			// §7: "Bus I/O error on subscribe init: fatal for start()".
			outErr = errors.WrapFatal(err, "DU", "Start", "subscribe to dasu_inputs")
			d.logger.Error("subscriber start failed", "du", d.id.RunningID(), "err", outErr)
			return
		}
		d.started = true
	})
	return outErr
}

// EnableAutoRefresh toggles the periodic liveness republish.
func (d *DU) EnableAutoRefresh(enabled bool) {
	d.postSync(func() {
		d.autoRefreshEnabled = enabled
		if !enabled {
			d.cancelAutoRefreshTimer()
			return
		}
		if d.lastSent != nil {
			d.scheduleAutoRefresh()
		}
	})
}

// InputsReceived is invoked by the subscriber on every batch. It filters to
// dasu_inputs, buffers the values, and decides immediate vs throttled
// processing (§4.6).
func (d *DU) InputsReceived(values []value.Value) {
	d.post(func() {
		dasuInputs := d.dasuInputSet()
		any := false
		for _, v := range values {
			id := v.ID().Local()
			if _, ok := dasuInputs[id]; !ok {
				continue
			}
			d.pending[id] = v
			d.pendingFullRunningID[id] = v.ID().FullRunningID()
			any = true
		}
		if !any {
			return
		}

		now := time.Now()
		if d.throttleScheduled {
			return
		}
		elapsed := now.Sub(d.lastUpdateTime)
		if d.lastUpdateTime.IsZero() || elapsed >= d.throttleMinInterval {
			d.updateAndPublish()
			return
		}

		d.throttleScheduled = true
		wait := d.throttleMinInterval - elapsed
		time.AfterFunc(wait, func() {
			d.post(func() {
				d.throttleScheduled = false
				d.updateAndPublish()
			})
		})
	})
}

func (d *DU) dasuInputSet() map[string]struct{} {
	ids := d.topo.DasuInputs()
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// updateAndPublish drains the pending buffer, runs propagation, and
// publishes if the result changed (§4.6). Must run on the exec goroutine.
func (d *DU) updateAndPublish() {
	if len(d.pending) == 0 {
		return
	}

	accumulator := d.pending
	dependentFullIDs := make([]string, 0, len(d.pendingFullRunningID))
	for _, full := range d.pendingFullRunningID {
		dependentFullIDs = append(dependentFullIDs, full)
	}
	d.pending = make(map[string]value.Value)
	d.pendingFullRunningID = make(map[string]string)
	d.lastUpdateTime = time.Now()

	start := time.Now()
	output, produced := d.propagate(accumulator)
	duration := time.Since(start)
	d.stats.ObserveEvaluation(duration)

	if !produced {
		return
	}

	now := time.Now()
	ageValidity := value.Reliable
	if now.Sub(output.Timestamps().ProductionTime()) >= d.autoSendPeriod+d.tolerance {
		ageValidity = value.Unreliable
	}
	output = output.WithValidity(value.MinValidity(output.Validity(), ageValidity)).WithDependents(dependentFullIDs...)

	changed := d.lastSent == nil || !sameForPublish(*d.lastSent, output)
	d.stats.ObservePublish(changed)
	if !changed {
		// Keep the newest evaluation so auto-refresh ages from it.
		latest := output
		d.lastSent = &latest
		return
	}

	// §7: "Bus I/O error on publish: logged; publish is best-effort; state
	// is unaffected; the auto-refresh task will re-send when it next fires."
	if err := d.publisher.Publish(output); err != nil {
		d.logger.Error("publish failed", "du", d.id.RunningID(),
			"err", errors.WrapTransient(err, "DU", "updateAndPublish", "publish output"))
	}
	sent := output
	d.lastSent = &sent
	if d.autoRefreshEnabled {
		d.scheduleAutoRefresh()
	}
}

// propagate folds over Topology.levels, invoking each level's CEs with the
// accumulator's subset matching their accepted inputs, and returns the
// Value whose id equals the DU output id (§4.6 step 2).
func (d *DU) propagate(accumulator map[string]value.Value) (value.Value, bool) {
	for _, level := range d.topo.Levels() {
		for _, ceID := range level {
			instance := d.ces[ceID]
			def, _ := d.topo.CE(ceID)

			var batch []value.Value
			for _, inputID := range def.Inputs {
				if v, ok := accumulator[inputID]; ok {
					batch = append(batch, v)
				}
			}
			if len(batch) == 0 {
				continue
			}

			output, hasOutput, _, err := instance.Update(batch)
			if err != nil || !hasOutput {
				continue
			}
			accumulator[def.Output] = output.Value
		}
	}

	out, ok := accumulator[d.topo.DUOutput()]
	if !ok {
		return value.Value{}, false
	}
	return out, true
}

// cancelAutoRefreshTimer stops the auto-refresh timer if one is pending.
func (d *DU) cancelAutoRefreshTimer() {
	if d.autoRefreshTimer != nil {
		d.autoRefreshTimer.Stop()
		d.autoRefreshTimer = nil
	}
}

// scheduleAutoRefresh (re)arms the periodic liveness republish, cancelling
// any timer already running.
func (d *DU) scheduleAutoRefresh() {
	d.cancelAutoRefreshTimer()
	d.autoRefreshTimer = time.AfterFunc(d.autoSendPeriod, func() {
		d.post(func() {
			d.autoRefresh()
		})
	})
}

// autoRefresh republishes the last known output with recomputed age
// validity (§4.6 "Auto-refresh task"). A no-op if nothing has ever been
// published, or if auto-refresh was disabled since the timer fired.
func (d *DU) autoRefresh() {
	if !d.autoRefreshEnabled || d.lastSent == nil {
		return
	}

	now := time.Now()
	last := *d.lastSent
	ageValidity := value.Reliable
	if now.Sub(last.Timestamps().ProductionTime()) >= d.autoSendPeriod+d.tolerance {
		ageValidity = value.Unreliable
	}
	refreshed := last.WithValidity(value.MinValidity(last.Validity(), ageValidity))

	if err := d.publisher.Publish(refreshed); err != nil {
		d.logger.Error("auto-refresh publish failed", "du", d.id.RunningID(),
			"err", errors.WrapTransient(err, "DU", "autoRefresh", "publish refresh"))
	}
	d.lastSent = &refreshed
	d.scheduleAutoRefresh()
}

// Cleanup idempotently disables auto-refresh, stops the subscriber, and
// shuts down every CE. The publisher is not stopped here.
func (d *DU) Cleanup() {
	d.closeOnce.Do(func() {
		d.postSync(func() {
			d.autoRefreshEnabled = false
			d.cancelAutoRefreshTimer()
			if d.started {
				_ = d.subscriber.Stop()
				d.started = false
			}
			for _, instance := range d.ces {
				_ = instance.Shutdown()
			}
		})
		close(d.quit)
		d.wg.Wait()
	})
}

// sameForPublish reports whether a and b are equal in every field the
// publish-if-changed comparison (§4.6 step 4) considers: value, mode,
// validity, properties, dependents. Timestamps are not compared, since every
// evaluation stamps a fresh DU-production time; dependents compare as a set.
func sameForPublish(a, b value.Value) bool {
	if a.TypeTag() != b.TypeTag() || a.Mode() != b.Mode() || a.Validity() != b.Validity() {
		return false
	}
	if !reflect.DeepEqual(a.Payload(), b.Payload()) || !reflect.DeepEqual(a.Properties(), b.Properties()) {
		return false
	}
	da, db := a.Dependents(), b.Dependents()
	sort.Strings(da)
	sort.Strings(db)
	return reflect.DeepEqual(da, db)
}
