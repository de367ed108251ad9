package rpc

import (
	"context"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/metrics"
	"github.com/canopy-network/spectroscope/module"
	"github.com/google/uuid"
)

// Default statuses attached to the database update of each command kind
// 'up' carries the status supplied by the caller
var (
	DefaultAddStatus = lib.StatusDeposited
	DefaultDelStatus = lib.StatusActive
	DefaultGetStatus = lib.StatusUnknown
)

const driverName = "command"

// BatchDispatcher runs both dispatch stages for a batch
type BatchDispatcher interface {
	Dispatch(ctx context.Context, batch *lib.Batch) module.Report
}

// BuildBatch() converts a command into a batch holding a single database update without identity or timestamp
func BuildBatch(kind lib.RequestType, keys []lib.HexBytes, status lib.ValidatorStatus) *lib.Batch {
	return lib.NewBatch(nil, nil, lib.DatabaseUpdate{
		RequestType:   kind,
		Status:        status,
		ValidatorKeys: append([]lib.HexBytes(nil), keys...),
	})
}

/*
	Responder executes commands independent of the transport.

	Each command becomes one batch that runs through both dispatch stages before the call returns.
	Successful add and del commands also update the watch-list so the stream follows the persisted set.
*/

// Responder maps commands to dispatches and dispatch results to responses
type Responder struct {
	dispatcher BatchDispatcher
	watch      *lib.WatchList
	sync       bool
	log        lib.LoggerI
}

// NewResponder() creates a responder; a nil watch-list disables syncing
// Module deadlines are owned by the dispatcher; the responder only forwards the request context
func NewResponder(config lib.RPCConfig, dispatcher BatchDispatcher, watch *lib.WatchList, log lib.LoggerI) *Responder {
	return &Responder{
		dispatcher: dispatcher,
		watch:      watch,
		sync:       config.SyncWatchList && watch != nil,
		log:        log,
	}
}

// Execute() runs the named command ('add', 'up', 'del' or 'get')
// Mutating commands answer a NodesResponse, queries a KeysResponse
func (r *Responder) Execute(ctx context.Context, request string, keys []lib.HexBytes, status *lib.ValidatorStatus) (any, lib.ErrorI) {
	kind, err := lib.ParseRequestType(request)
	if err != nil {
		return nil, err
	}
	if !kind.Mutating() {
		return r.GetNodes(ctx, keys), nil
	}
	s := defaultStatus(kind)
	if kind == lib.RequestUp {
		if status == nil {
			return nil, ErrMissingStatus()
		}
		s = *status
	}
	return r.mutate(ctx, kind, keys, s), nil
}

// AddNodes() persists new validators
func (r *Responder) AddNodes(ctx context.Context, keys []lib.HexBytes) NodesResponse {
	return r.mutate(ctx, lib.RequestAdd, keys, DefaultAddStatus)
}

// UpNodes() changes the status of persisted validators
func (r *Responder) UpNodes(ctx context.Context, keys []lib.HexBytes, status lib.ValidatorStatus) NodesResponse {
	return r.mutate(ctx, lib.RequestUp, keys, status)
}

// DelNodes() removes persisted validators
func (r *Responder) DelNodes(ctx context.Context, keys []lib.HexBytes) NodesResponse {
	return r.mutate(ctx, lib.RequestDel, keys, DefaultDelStatus)
}

// GetNodes() returns the persisted validators; an empty key list returns all of them
func (r *Responder) GetNodes(ctx context.Context, keys []lib.HexBytes) KeysResponse {
	return KeysFromResults(r.execute(ctx, lib.RequestGet, keys, DefaultGetStatus).Results)
}

// mutate() runs a mutating command and keeps the watch-list in step with successful adds and deletes
func (r *Responder) mutate(ctx context.Context, kind lib.RequestType, keys []lib.HexBytes, status lib.ValidatorStatus) NodesResponse {
	resp := CountResponse(r.execute(ctx, kind, keys, status).Results)
	if !r.sync || resp.Count == 0 {
		return resp
	}
	switch kind {
	case lib.RequestAdd:
		r.watch.Add(keys...)
	case lib.RequestDel:
		r.watch.Remove(keys...)
	}
	return resp
}

// WatchList() describes the streamed validators
func (r *Responder) WatchList() WatchListResponse {
	if r.watch == nil {
		return WatchListResponse{ValidatorKeys: []lib.HexBytes{}}
	}
	keys := r.watch.Snapshot()
	return WatchListResponse{Count: len(keys), Misses: r.watch.Misses(), ValidatorKeys: keys}
}

// SeedWatchList() replaces the watch-list with every persisted validator
func (r *Responder) SeedWatchList(ctx context.Context) int {
	if r.watch == nil {
		return 0
	}
	keys := r.GetNodes(ctx, nil).ValidatorKeys
	r.watch.Replace(keys...)
	metrics.UpdateWatchList(len(keys), r.watch.Misses())
	return len(keys)
}

// execute() dispatches one command
func (r *Responder) execute(ctx context.Context, kind lib.RequestType, keys []lib.HexBytes, status lib.ValidatorStatus) module.Report {
	id := uuid.New()
	metrics.UpdateCommand(kind.String())
	metrics.UpdateBatchDispatched(driverName)
	r.log.Debugf("Command %s %s for %d keys", id, kind, len(keys))
	report := r.dispatcher.Dispatch(ctx, BuildBatch(kind, keys, status))
	for _, o := range append(report.Subscribers.Failed(), report.Plugins.Failed()...) {
		r.log.Warnf("Command %s %s: module %s failed: %s", id, kind, o.Module, o.Err.Error())
	}
	return report
}

// defaultStatus() is the status attached to a command that doesn't carry one
func defaultStatus(kind lib.RequestType) lib.ValidatorStatus {
	switch kind {
	case lib.RequestAdd:
		return DefaultAddStatus
	case lib.RequestDel:
		return DefaultDelStatus
	default:
		return DefaultGetStatus
	}
}

// CountResponse() sums the numeric results
// Without any numeric result the response is {status:0, count:0}; otherwise 201 when something changed and 200 when not
func CountResponse(results []lib.Result) (resp NodesResponse) {
	numeric := false
	for _, result := range results {
		if c, ok := result.(lib.CountResult); ok {
			numeric = true
			resp.Count += c.Count
		}
	}
	switch {
	case !numeric:
		return NodesResponse{}
	case resp.Count > 0:
		resp.Status = 201
	default:
		resp.Status = 200
	}
	return
}

// KeysFromResults() concatenates every key list in result order
func KeysFromResults(results []lib.Result) KeysResponse {
	resp := KeysResponse{ValidatorKeys: []lib.HexBytes{}}
	for _, result := range results {
		if k, ok := result.(lib.KeysResult); ok {
			resp.ValidatorKeys = append(resp.ValidatorKeys, k.Keys...)
		}
	}
	return resp
}
