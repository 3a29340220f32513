package notify

import (
	"context"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	cb "github.com/Astemirdum/library-loan-service/pkg/circuit_breaker"
)

type kafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	breaker  cb.CircuitBreaker
	log      *zap.Logger
}

// NewKafkaNotifier publishes messages keyed by recipient. Publishing goes
// through the breaker so a dead broker fails fast.
func NewKafkaNotifier(producer sarama.SyncProducer, topic string, breaker cb.CircuitBreaker, log *zap.Logger) Notifier {
	return &kafkaNotifier{
		producer: producer,
		topic:    topic,
		breaker:  breaker,
		log:      log.Named("notify"),
	}
}

func (n *kafkaNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := jsoniter.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	pm := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(msg.Recipient),
		Value: sarama.ByteEncoder(data),
	}
	return n.breaker.Call(func() error {
		partition, offset, err := n.producer.SendMessage(pm)
		if err != nil {
			return errors.Wrap(err, "SendMessage")
		}
		n.log.Debug("notification sent",
			zap.String("template", string(msg.Template)),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset),
		)
		return nil
	})
}
