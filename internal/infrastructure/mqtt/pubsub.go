package mqtt

import (
	"fmt"
	"slices"
)

func validate(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}

// Publish sends payload to topic and waits for the broker's acknowledgement.
// Commands and events are published with retained=false; presence and
// directory snapshots are retained.
//
//	err := client.Publish(mqtt.Topics{}.Command("esp-kitchen", "led"), []byte("on"), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return wait(c.paho.Publish(topic, qos, retained, payload), ackTimeout, ErrPublishFailed)
}

// Subscribe routes messages matching topic (wildcards allowed) to handler.
// The route is replayed on every reconnect until Unsubscribe.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.routes[topic] = route{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := wait(c.paho.Subscribe(topic, qos, c.deliver(handler)), ackTimeout, ErrSubscribeFailed); err != nil {
		c.mu.Lock()
		delete(c.routes, topic)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Unsubscribe drops the route for topic. Messages already in flight may
// still reach the old handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	delete(c.routes, topic)
	c.mu.Unlock()

	return wait(c.paho.Unsubscribe(topic), ackTimeout, ErrSubscribeFailed)
}

// Subscriptions returns the routed topic patterns, sorted.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := make([]string, 0, len(c.routes))
	for t := range c.routes {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}
