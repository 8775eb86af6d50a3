package natsx

import (
	"github.com/nats-io/nats.go"
)

// Each gateway subscribes to its own deliver subject; peers publish push
// payloads there for users registered elsewhere.
const deliverSubjectPrefix = "im.deliver."

func DeliverSubject(gatewayID string) string {
	return deliverSubjectPrefix + gatewayID
}

// Relay satisfies the gateway's Relay interface.
func (c *NatsxClient) Relay(gatewayID string, data []byte) error {
	return c.sendCore(DeliverSubject(gatewayID), data, nil)
}

// SubscribeDeliver installs the handler for payloads relayed to this gateway.
func (c *NatsxClient) SubscribeDeliver(gatewayID string, handler func(data []byte)) (*nats.Subscription, error) {
	return c.nc.Subscribe(DeliverSubject(gatewayID), func(m *nats.Msg) {
		handler(m.Data)
	})
}
