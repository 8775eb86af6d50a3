package kafka

import (
	"encoding/json"

	"LinkupIM/logger"
	chatsvc "LinkupIM/module/chat/service"

	"github.com/Shopify/sarama"
)

type Config struct {
	Brokers []string
	Topic   string // message-created events
}

// EventProducer publishes message-created events for downstream consumers
// (notifications, analytics). Fire-and-forget through the async producer;
// messaging never blocks on the broker.
type EventProducer struct {
	prod  sarama.AsyncProducer
	topic string
}

func NewEventProducer(cfg Config) (*EventProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Partitioner = sarama.NewHashPartitioner // key keeps per-conversation order

	p, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}
	ep := &EventProducer{prod: p, topic: cfg.Topic}

	go func() {
		for err := range p.Errors() {
			logger.Infof("[kafka] event publish error: %v", err)
		}
	}()
	return ep, nil
}

func (p *EventProducer) MessageCreated(ev chatsvc.MessageCreatedEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Infof("[kafka] marshal event: %v", err)
		return
	}
	p.prod.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.ConversationID),
		Value: sarama.ByteEncoder(b),
	}
}

func (p *EventProducer) Close() error {
	return p.prod.Close()
}
