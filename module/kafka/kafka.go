// Package kafka publishes raised and cleared alerts to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	ckafka "github.com/confluentinc/confluent-kafka-go/kafka"
)

const (
	Type = "kafka"

	OptionBrokers        = "brokers"
	OptionTopic          = "topic"
	OptionFlushTimeoutMS = "flush_timeout_ms"

	DefaultTopic = "spectroscope-alerts"
)

var _ module.Plugin = &Plugin{}

// Producer is the subset of the confluent producer used by the plugin
type Producer interface {
	Produce(msg *ckafka.Message, deliveryChan chan ckafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// Event is the record published for every alert transition
type Event struct {
	Action    string  `json:"action"` // raise or clear
	Event     string  `json:"event"`
	PublicKey string  `json:"pubkey"`
	Index     uint64  `json:"idx"`
	Value     *uint64 `json:"value"`
	Detail    string  `json:"detail,omitempty"`
	Epoch     *uint64 `json:"epoch,omitempty"`
}

// NewEvent() converts an alert action into its published record
func NewEvent(a lib.Action) (Event, bool) {
	var (
		alert  lib.Alert
		action string
	)
	switch x := a.(type) {
	case lib.RaiseAlert:
		alert, action = x.Alert, "raise"
	case lib.ClearAlert:
		alert, action = x.Alert, "clear"
	default:
		return Event{}, false
	}
	e := Event{
		Action:    action,
		Event:     string(alert.Type),
		PublicKey: alert.Validator.PublicKey.String(),
		Index:     alert.Validator.Index,
		Value:     alert.Value,
		Detail:    alert.Detail,
	}
	if alert.Timestamp != nil {
		epoch := alert.Timestamp.Epoch
		e.Epoch = &epoch
	}
	return e, true
}

// Plugin publishes alert events keyed by validator public key
type Plugin struct {
	name         string
	topic        string
	flushTimeout int
	producer     Producer
	log          lib.LoggerI
}

// Factory() describes the kafka module type
func Factory() module.Factory {
	return module.Factory{
		Type: Type,
		Role: module.RolePlugin,
		Options: []module.ConfigOption{
			{Name: OptionBrokers, Type: module.OptionString, Description: "comma separated bootstrap servers", Required: true},
			{Name: OptionTopic, Type: module.OptionString, Description: "topic the alert events are published to", Default: DefaultTopic},
			{Name: OptionFlushTimeoutMS, Type: module.OptionInt, Description: "time allowed to flush pending messages on close", Default: int64(5000)},
		},
		New: func(name string, opts module.Options, deps module.Deps) (module.Module, lib.ErrorI) {
			p, err := ckafka.NewProducer(&ckafka.ConfigMap{
				"bootstrap.servers": opts.String(OptionBrokers),
				"client.id":         name,
			})
			if err != nil {
				return nil, module.ErrConnect(name, err)
			}
			return New(name, opts.String(OptionTopic), int(opts.Int(OptionFlushTimeoutMS)), p, deps.Logger), nil
		},
	}
}

// New() creates the plugin over a producer; the plugin owns the producer from now on
func New(name, topic string, flushTimeoutMS int, producer Producer, log lib.LoggerI) *Plugin {
	return &Plugin{name: name, topic: topic, flushTimeout: flushTimeoutMS, producer: producer, log: log}
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) ConsumedKinds() lib.KindSet {
	return lib.NewKindSet(lib.KindRaiseAlert, lib.KindClearAlert)
}

// Consume() produces one message per alert and waits for every delivery report
// The result counts the messages acknowledged by the brokers
func (p *Plugin) Consume(ctx context.Context, actions []lib.Action) ([]lib.Result, lib.ErrorI) {
	deliveries := make(chan ckafka.Event, len(actions))
	produced := 0
	for _, a := range actions {
		e, ok := NewEvent(a)
		if !ok {
			return nil, module.ErrUnhandledKind(p.name, a.Kind())
		}
		value, err := json.Marshal(e)
		if err != nil {
			return nil, lib.ErrJSONMarshal(err)
		}
		msg := &ckafka.Message{
			TopicPartition: ckafka.TopicPartition{Topic: &p.topic, Partition: ckafka.PartitionAny},
			Key:            []byte(e.PublicKey),
			Value:          value,
		}
		if err = p.producer.Produce(msg, deliveries); err != nil {
			p.log.Errorf("Failed to produce %s alert for %s: %s", e.Action, e.PublicKey, err.Error())
			continue
		}
		produced++
	}
	delivered, failed := 0, 0
	for i := 0; i < produced; i++ {
		select {
		case ev := <-deliveries:
			if m, ok := ev.(*ckafka.Message); ok && m.TopicPartition.Error == nil {
				delivered++
			} else {
				failed++
				p.log.Errorf("Delivery failed: %v", ev)
			}
		case <-ctx.Done():
			return nil, ErrPublish(fmt.Errorf("%d of %d deliveries pending: %w", produced-i, produced, ctx.Err()))
		}
	}
	if delivered == 0 && len(actions) != 0 {
		return nil, ErrPublish(fmt.Errorf("none of %d alerts were delivered (%d failed)", len(actions), failed))
	}
	return []lib.Result{lib.CountResult{Count: delivered}}, nil
}

// Close() flushes pending messages and closes the producer
func (p *Plugin) Close() error {
	if pending := p.producer.Flush(p.flushTimeout); pending != 0 {
		p.log.Warnf("Closing with %d undelivered alert messages", pending)
	}
	p.producer.Close()
	return nil
}
