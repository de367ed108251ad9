// Package stream implements the driver that turns a remote validator stream into dispatched batches.
package stream

import (
	"context"
	"errors"
	"time"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/metrics"
	"github.com/canopy-network/spectroscope/module"
	"github.com/cenkalti/backoff/v4"
)

const driverName = "stream"

// BatchDispatcher runs both dispatch stages for a batch
type BatchDispatcher interface {
	Dispatch(ctx context.Context, batch *lib.Batch) module.Report
}

/*
	Driver owns one connection at a time. A reader goroutine only receives and hands messages over;
	the driver goroutine dispatches each message to completion before taking the next, and is the only writer.
	The watch request is sent on every (re)connect and again whenever the watch-list changes.
*/

// Driver streams the watched validators into the dispatcher
type Driver struct {
	config         lib.StreamConfig
	dispatcher     BatchDispatcher
	watch          *lib.WatchList
	dial           Dialer
	initialBackoff time.Duration
	log            lib.LoggerI
}

// NewDriver() creates a streaming driver; a nil dialer connects over websocket
func NewDriver(config lib.StreamConfig, dispatcher BatchDispatcher, watch *lib.WatchList, dial Dialer, log lib.LoggerI) *Driver {
	if dial == nil {
		dial = DialWebsocket
	}
	return &Driver{
		config:         config,
		dispatcher:     dispatcher,
		watch:          watch,
		dial:           dial,
		initialBackoff: backoff.DefaultInitialInterval,
		log:            log,
	}
}

// Run() keeps a session open until the context is cancelled, reconnecting with exponential backoff
// It returns nil on cancellation and the last error if the backoff gives up
func (d *Driver) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initialBackoff
	if d.config.MaxBackoffS > 0 {
		b.MaxInterval = time.Duration(d.config.MaxBackoffS) * time.Second
	}
	b.MaxElapsedTime = time.Duration(d.config.MaxElapsedS) * time.Second
	err := backoff.RetryNotify(func() error {
		err := d.session(ctx, b)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		metrics.UpdateStreamReconnect()
		d.log.Warnf("Stream session ended: %s; reconnecting in %s", err.Error(), wait)
	})
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// session() connects, sends the watch request and processes messages until the connection fails
func (d *Driver) session(ctx context.Context, b backoff.BackOff) lib.ErrorI {
	d.log.Infof("Connecting to validator stream @ %s", d.config.StreamURL)
	src, err := d.dial(ctx, d.config.StreamURL)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	defer func() {
		close(done)
		_ = src.Close()
		metrics.UpdateStreamConnected(false)
	}()
	metrics.UpdateStreamConnected(true)
	b.Reset()
	// a change recorded while disconnected is covered by the initial request
	select {
	case <-d.watch.Changed():
	default:
	}
	if err = d.sendWatch(src); err != nil {
		return err
	}
	messages, failure := make(chan *ValidatorInfo), make(chan error, 1)
	go func() {
		// a panicking reader still ends the session
		defer func() {
			select {
			case failure <- ErrStreamClosed():
			default:
			}
		}()
		defer lib.CatchPanic(d.log)
		for {
			msg, e := src.Recv()
			if e != nil {
				if lib.IsCode(e, lib.MainModule, lib.CodeJSONUnmarshal) {
					d.log.Warnf("Dropping malformed stream message: %s", e.Error())
					continue
				}
				failure <- e
				return
			}
			select {
			case messages <- msg:
			case <-done:
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.watch.Changed():
			if err = d.sendWatch(src); err != nil {
				return err
			}
		case msg := <-messages:
			d.handle(ctx, msg)
		case e := <-failure:
			var closed lib.ErrorI
			if errors.As(e, &closed) && closed.Module() == lib.StreamModule {
				return closed
			}
			return ErrRecvMessage(e)
		}
	}
}

// sendWatch() sends the current watch-list snapshot
func (d *Driver) sendWatch(src Source) lib.ErrorI {
	keys := d.watch.Snapshot()
	if err := src.SendWatch(NewWatchRequest(keys)); err != nil {
		return ErrSendWatch(err)
	}
	metrics.UpdateWatchList(len(keys), d.watch.Misses())
	d.log.Infof("Watching %d validators", len(keys))
	return nil
}

// handle() dispatches one message; results are discarded
func (d *Driver) handle(ctx context.Context, msg *ValidatorInfo) {
	metrics.UpdateStreamMessage()
	if !d.watch.Contains(msg.PublicKey) {
		d.log.Debugf("Ignoring message for unwatched validator %s", msg.PublicKey)
		return
	}
	metrics.UpdateBatchDispatched(driverName)
	report := d.dispatcher.Dispatch(ctx, BuildBatch(msg))
	if failed := len(report.Subscribers.Failed()) + len(report.Plugins.Failed()); failed != 0 {
		d.log.Warnf("%d modules failed for validator %d", failed, msg.Index)
	}
	d.log.Debugf("Validator %d at epoch %d produced %d actions and %d results", msg.Index, msg.Epoch, len(report.Actions), len(report.Results))
}
