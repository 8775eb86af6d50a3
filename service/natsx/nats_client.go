package natsx

import (
	"time"

	"LinkupIM/logger"

	"github.com/nats-io/nats.go"
)

type Config struct {
	URL  string
	Name string // client name shown in monitoring
}

type NatsxClient struct {
	nc *nats.Conn
}

func Init(cfg Config) (*NatsxClient, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Infof("[natsx] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[natsx] reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NatsxClient{nc: nc}, nil
}

func (c *NatsxClient) Close() {
	if c != nil && c.nc != nil {
		c.nc.Close()
	}
}

func (c *NatsxClient) sendCore(subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	return c.nc.PublishMsg(msg)
}
