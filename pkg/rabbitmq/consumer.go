package rabbitmq

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message received on topic.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes a handler to a topic.
type IConsumer interface {
	Subscribe() error
	Unsubscribe() error
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer holds the client, topic and qos of one subscription.
type Consumer struct {
	client  mqtt.Client
	handler Handler
	topic   string
	qos     byte
}

func NewConsumer(client mqtt.Client, topic string, qos byte, handler Handler) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// Subscribe registers the handler and returns once the broker acknowledged.
func (c *Consumer) Subscribe() error {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, message mqtt.Message) {
		if c.handler == nil {
			L.Warn("no handler set", "topic", c.topic)
			return
		}
		if err := c.handler(c.topic, message); err != nil {
			L.Error("handling message", "topic", message.Topic(), "err", err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, token.Error())
	}
	L.Info("subscribed", "topic", c.topic, "qos", c.qos)
	return nil
}

// ConsumeMessage subscribes and blocks until ctx is done, then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	if err := c.Subscribe(); err != nil {
		L.Error("consume", "err", err)
		return
	}
	<-ctx.Done()
	if err := c.Unsubscribe(); err != nil {
		L.Warn("unsubscribe", "topic", c.topic, "err", err)
	}
}

func (c *Consumer) Unsubscribe() error {
	token := c.client.Unsubscribe(c.topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("unsubscribe %s: %w", c.topic, token.Error())
	}
	return nil
}
