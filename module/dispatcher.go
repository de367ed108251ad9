package module

import (
	"context"
	"time"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/metrics"
	"golang.org/x/sync/errgroup"
)

/*
	The Dispatcher runs the two-stage fan-out:

	1) every Subscriber, in registration order, receives the batch filtered to its consumed kinds and emits Actions
	2) every Plugin, in registration order, receives the concatenated actions filtered to its consumed kinds and emits Results

	A module whose filtered input is empty is skipped. Outputs are concatenated in module order without dedup or re-sort.
	A module that errors, panics or outlives its own deadline contributes nothing and never stops its siblings.
	Each call gets a fresh per-module deadline derived from the caller's context, so a hung module only
	consumes its own budget. The call is abandoned, not stopped: modules must honour ctx and give up
	side effects once it is done.
*/

// CallStatus is the outcome of one module call
type CallStatus int

const (
	CallOk CallStatus = iota
	CallSkipped
	CallFailed
)

// String() returns the metric label of the status
func (s CallStatus) String() string {
	switch s {
	case CallOk:
		return metrics.OutcomeOk
	case CallSkipped:
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}

// CallOutcome records what happened to a single module during a stage
type CallOutcome struct {
	Module   string
	Status   CallStatus
	Err      lib.ErrorI // set when Status is CallFailed
	Duration time.Duration
}

// StageReport lists the outcome of every module of a stage in registration order
type StageReport struct {
	Stage    string
	Outcomes []CallOutcome
}

// Failed() returns the failed calls
func (r StageReport) Failed() (failed []CallOutcome) {
	for _, o := range r.Outcomes {
		if o.Status == CallFailed {
			failed = append(failed, o)
		}
	}
	return
}

// Invoked() is the number of modules that were called
func (r StageReport) Invoked() (n int) {
	for _, o := range r.Outcomes {
		if o.Status != CallSkipped {
			n++
		}
	}
	return
}

// Report is the complete outcome of dispatching one batch
type Report struct {
	Actions     []lib.Action
	Results     []lib.Result
	Subscribers StageReport
	Plugins     StageReport
}

// Dispatcher routes batches through the registered modules; it holds no per-call state
type Dispatcher struct {
	modules  *Modules
	parallel bool
	timeout  time.Duration // per module call; 0 means only the caller's context applies
	log      lib.LoggerI
}

// NewDispatcher() creates a dispatcher over the registered modules
func NewDispatcher(modules *Modules, config lib.DispatchConfig, log lib.LoggerI) *Dispatcher {
	if modules == nil {
		modules = new(Modules)
	}
	return &Dispatcher{
		modules:  modules,
		parallel: config.Parallel,
		timeout:  time.Duration(config.ModuleTimeoutMS) * time.Millisecond,
		log:      log,
	}
}

// Dispatch() runs both stages for the batch
func (d *Dispatcher) Dispatch(ctx context.Context, batch *lib.Batch) Report {
	actions, subscribers := d.RunSubscriberStage(ctx, batch)
	results, plugins := d.RunPluginStage(ctx, actions)
	metrics.UpdateStageOutput(len(actions), len(results))
	return Report{Actions: actions, Results: results, Subscribers: subscribers, Plugins: plugins}
}

// RunSubscriberStage() executes stage 1
func (d *Dispatcher) RunSubscriberStage(ctx context.Context, batch *lib.Batch) ([]lib.Action, StageReport) {
	handles := d.modules.Subscribers
	outputs, report := make([][]lib.Action, len(handles)), StageReport{Stage: metrics.StageSubscriber, Outcomes: make([]CallOutcome, len(handles))}
	d.run(len(handles), func(i int) {
		h := handles[i]
		filtered := batch.Filter(h.Kinds)
		if filtered.Empty() {
			report.Outcomes[i] = d.record(report.Stage, CallOutcome{Module: h.Name, Status: CallSkipped})
			return
		}
		start := time.Now()
		out, err := call(ctx, h.Name, d.timeout, func(ctx context.Context) ([]lib.Action, lib.ErrorI) {
			return h.ConsumeBatch(ctx, filtered)
		})
		report.Outcomes[i] = d.record(report.Stage, outcome(h.Name, err, time.Since(start)))
		if err == nil {
			outputs[i] = out
		}
	})
	return concat(outputs), report
}

// RunPluginStage() executes stage 2
func (d *Dispatcher) RunPluginStage(ctx context.Context, actions []lib.Action) ([]lib.Result, StageReport) {
	handles := d.modules.Plugins
	outputs, report := make([][]lib.Result, len(handles)), StageReport{Stage: metrics.StagePlugin, Outcomes: make([]CallOutcome, len(handles))}
	d.run(len(handles), func(i int) {
		h := handles[i]
		filtered := lib.FilterActions(actions, h.Kinds)
		if len(filtered) == 0 {
			report.Outcomes[i] = d.record(report.Stage, CallOutcome{Module: h.Name, Status: CallSkipped})
			return
		}
		start := time.Now()
		out, err := call(ctx, h.Name, d.timeout, func(ctx context.Context) ([]lib.Result, lib.ErrorI) {
			return h.ConsumeActions(ctx, filtered)
		})
		report.Outcomes[i] = d.record(report.Stage, outcome(h.Name, err, time.Since(start)))
		if err == nil {
			outputs[i] = out
		}
	})
	return concat(outputs), report
}

// run() executes fn for every module index, sequentially or concurrently
// each invocation writes only to its own index so no further synchronization is needed
func (d *Dispatcher) run(n int, fn func(i int)) {
	if !d.parallel || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// record() logs and counts a module call
func (d *Dispatcher) record(stage string, o CallOutcome) CallOutcome {
	if o.Status == CallFailed {
		d.log.Errorf("%s %s failed: %s", stage, o.Module, o.Err.Error())
	}
	metrics.UpdateModuleCall(stage, o.Module, o.Status.String(), o.Duration)
	return o
}

func outcome(name string, err lib.ErrorI, duration time.Duration) CallOutcome {
	if err != nil {
		return CallOutcome{Module: name, Status: CallFailed, Err: err, Duration: duration}
	}
	return CallOutcome{Module: name, Status: CallOk, Duration: duration}
}

// call() invokes a module under its own deadline, converting panics and context expiry into failures
func call[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) ([]T, lib.ErrorI)) ([]T, lib.ErrorI) {
	if err := ctx.Err(); err != nil {
		return nil, ErrConsumeTimeout(name, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type ret struct {
		out []T
		err lib.ErrorI
	}
	done := make(chan ret, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- ret{err: ErrConsumePanic(name, r)}
			}
		}()
		out, err := fn(ctx)
		done <- ret{out: out, err: err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ErrConsumeTimeout(name, ctx.Err())
	}
}

func concat[T any](outputs [][]T) (all []T) {
	for _, out := range outputs {
		all = append(all, out...)
	}
	return
}
