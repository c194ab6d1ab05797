package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// WorkQueuePublisher определяет интерфейс публикации работ диспетчеризации.
type WorkQueuePublisher interface {
	PublishWorkItem(ctx context.Context, item WorkItem) error
}

// rabbitMQPublisher реализует WorkQueuePublisher поверх RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ WorkQueuePublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQWorkQueuePublisher создает паблишер и объявляет очередь.
// Параметры очереди должны совпадать с параметрами консьюмера.
func NewRabbitMQWorkQueuePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (WorkQueuePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("work queue publisher: не удалось открыть канал: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("work queue publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}

	logger = logger.Named("work_queue_publisher")
	logger.Info("Work queue declared", zap.String("queue", queueName))
	return &rabbitMQPublisher{channel: ch, queueName: queueName, logger: logger}, nil
}

// PublishWorkItem публикует работу в очередь диспетчеризации.
func (p *rabbitMQPublisher) PublishWorkItem(ctx context.Context, item WorkItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid work item: %w", err)
	}

	body, err := json.Marshal(item)
	if err != nil {
		p.logger.Error("Failed to marshal work item", zap.String("kind", item.Kind), zap.Error(err))
		return fmt.Errorf("ошибка сериализации work item: %w", err)
	}

	return p.publishMessage(ctx, body)
}

// publishMessage — вспомогательный метод публикации с ограниченным таймаутом.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("канал RabbitMQ не инициализирован")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	// Попытка публикации с retry до 3 раз
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (используем default)
			p.queueName, // routing key (имя очереди)
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "easyconnect-server",
			},
		)
		if err == nil {
			break
		}
		p.logger.Warn("Publish attempt failed",
			zap.Int("attempt", attempt),
			zap.String("queue", p.queueName),
			zap.Error(err),
		)
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("ошибка публикации в очередь %s после retries: %w", p.queueName, err)
	}

	p.logger.Debug("Message published", zap.String("queue", p.queueName))
	return nil
}
