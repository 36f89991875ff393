package device

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model/messages"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/dedup"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/rabbitmq"
)

// Topics returns the request and reply topics of a device.
func Topics(deviceID string) (fromClients, fromDevice string) {
	return fmt.Sprintf("bot/%s/from_clients", deviceID), fmt.Sprintf("bot/%s/from_device", deviceID)
}

// Observer is told about every completed RPC.
type Observer func(kind string, elapsed time.Duration, err error)

type Config struct {
	Speed   int           // move speed percentage, default 100
	Timeout time.Duration // per RPC, default 2m
	Observe Observer
}

// MQTTDevice sends one RPC at a time and waits for its reply before the
// next one is issued.
type MQTTDevice struct {
	client    mqtt.Client
	publisher rabbitmq.IPublisher
	consumer  rabbitmq.IConsumer
	speed     int
	timeout   time.Duration
	observe   Observer

	cmdMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan model.RPCReply

	deduper *dedup.Deduper
}

var _ Device = (*MQTTDevice)(nil)

func NewMQTTDevice(client mqtt.Client, deviceID string, cfg Config) *MQTTDevice {
	fromClients, fromDevice := Topics(deviceID)
	d := &MQTTDevice{
		client:    client,
		publisher: rabbitmq.NewPublisher(client, fromClients),
		speed:     cfg.Speed,
		timeout:   cfg.Timeout,
		observe:   cfg.Observe,
		pending:   make(map[string]chan model.RPCReply),
		deduper:   dedup.New(10*time.Minute, 1000),
	}
	if d.speed <= 0 || d.speed > 100 {
		d.speed = 100
	}
	if d.timeout <= 0 {
		d.timeout = 2 * time.Minute
	}
	d.consumer = rabbitmq.NewConsumer(client, fromDevice, 1, d.handleReply)
	return d
}

// Start subscribes to the reply topic and returns once the subscription is
// active. It unsubscribes when ctx is done.
func (d *MQTTDevice) Start(ctx context.Context) error {
	if err := d.consumer.Subscribe(); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		if err := d.consumer.Unsubscribe(); err != nil {
			L.Warn("device unsubscribe", "err", err)
		}
	}()
	return nil
}

// Connected reports whether the broker connection is up.
func (d *MQTTDevice) Connected() bool {
	return d.client.IsConnected()
}

func (d *MQTTDevice) MoveAbsolute(ctx context.Context, x, y, z float64) error {
	return d.rpc(ctx, messages.MoveAbsolute(x, y, z, d.speed))
}

func (d *MQTTDevice) WritePin(ctx context.Context, pin, mode, value int) error {
	return d.rpc(ctx, messages.WritePin(pin, mode, value))
}

// ReadPin asks the device to read pin. The value is not part of the reply:
// the device stores it as a sensor reading on the web app.
func (d *MQTTDevice) ReadPin(ctx context.Context, pin, mode int) error {
	return d.rpc(ctx, messages.ReadPin(pin, mode, fmt.Sprintf("pin%d", pin)))
}

func (d *MQTTDevice) ExecSequence(ctx context.Context, sequenceID, toolID int) error {
	return d.rpc(ctx, messages.Execute(sequenceID, toolID))
}

// Wait sleeps on the client side; the device has nothing to do meanwhile.
func (d *MQTTDevice) Wait(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MQTTDevice) rpc(ctx context.Context, step model.CeleryNode) error {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()

	label := uuid.NewString()
	reply := make(chan model.RPCReply, 1)
	d.pendingMu.Lock()
	d.pending[label] = reply
	d.pendingMu.Unlock()
	defer func() {
		d.pendingMu.Lock()
		delete(d.pending, label)
		d.pendingMu.Unlock()
	}()

	b, err := json.Marshal(messages.NewRPCRequest(label, step))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", step.Kind, err)
	}

	start := time.Now()
	err = d.await(ctx, step.Kind, label, b, reply)
	if d.observe != nil {
		d.observe(step.Kind, time.Since(start), err)
	}
	return err
}

func (d *MQTTDevice) await(ctx context.Context, kind, label string, payload []byte, reply <-chan model.RPCReply) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	L.Debug("rpc request", "kind", kind, "label", label)
	if err := d.publisher.PublishMessageQos(1, false, payload); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}

	select {
	case r := <-reply:
		if !r.OK() {
			return fmt.Errorf("%s: %w: %s", kind, ErrRPC, r.Explanation())
		}
		L.Debug("rpc ok", "kind", kind, "label", label)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s %s: waiting for reply: %w", kind, label, ctx.Err())
	}
}

// handleReply routes rpc_ok/rpc_error to the waiting request. Anything else
// on from_device (logs, status) is not for us.
func (d *MQTTDevice) handleReply(_ string, msg mqtt.Message) error {
	var r model.RPCReply
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		return fmt.Errorf("bad reply payload: %w", err)
	}
	if r.Kind != messages.KindRPCOk && r.Kind != messages.KindRPCError {
		return nil
	}
	if !d.deduper.ShouldProcess(r.Kind + "|" + r.Args.Label) {
		L.Debug("duplicate reply dropped", "label", r.Args.Label)
		return nil
	}

	d.pendingMu.Lock()
	ch, ok := d.pending[r.Args.Label]
	d.pendingMu.Unlock()
	if !ok {
		L.Debug("reply for unknown label", "label", r.Args.Label, "kind", r.Kind)
		return nil
	}
	select {
	case ch <- r:
	default:
	}
	return nil
}
