package metrics

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Dispatch stage labels
const (
	StageSubscriber = "subscriber"
	StagePlugin     = "plugin"
)

// Module call outcome labels
const (
	OutcomeOk      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// UpdateBatchDispatched counts a batch entering the pipeline from the driver
func UpdateBatchDispatched(driver string) {
	DispatchMetrics.Batches.WithLabelValues(driver).Inc()
}

// UpdateModuleCall records the outcome and latency of one module call
func UpdateModuleCall(stage, module, outcome string, duration time.Duration) {
	DispatchMetrics.ModuleCalls.WithLabelValues(stage, module, outcome).Inc()
	if outcome != OutcomeSkipped {
		DispatchMetrics.ModuleLatency.WithLabelValues(stage, module).Observe(duration.Seconds())
	}
}

// UpdateStageOutput counts the actions and results produced by a dispatch
func UpdateStageOutput(actions, results int) {
	DispatchMetrics.Actions.Add(float64(actions))
	DispatchMetrics.Results.Add(float64(results))
}

// UpdateWatchList updates the watch-list gauges
func UpdateWatchList(size int, misses uint64) {
	WatchListMetrics.Size.Set(float64(size))
	WatchListMetrics.Misses.Set(float64(misses))
}

// UpdateStreamConnected updates the stream connection status
func UpdateStreamConnected(connected bool) {
	if connected {
		StreamMetrics.Connected.Set(1)
	} else {
		StreamMetrics.Connected.Set(0)
	}
}

// UpdateStreamMessage counts a received stream message
func UpdateStreamMessage() { StreamMetrics.Messages.Inc() }

// UpdateStreamReconnect counts a reconnect attempt
func UpdateStreamReconnect() { StreamMetrics.Reconnects.Inc() }

// UpdateCommand counts a handled command
func UpdateCommand(request string) {
	CommandMetrics.Requests.WithLabelValues(request).Inc()
}

// UpdateMemoryUsage updates the memory usage metric
func UpdateMemoryUsage(bytes uint64) {
	MemoryUsage.Set(float64(bytes))
}

// SampleResources periodically records the process memory until the context is cancelled
func SampleResources(ctx context.Context, every time.Duration) error {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if info, e := p.MemoryInfoWithContext(ctx); e == nil {
			UpdateMemoryUsage(info.RSS)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
