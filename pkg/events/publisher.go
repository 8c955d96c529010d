package events

import (
	"elearning_backend/pkg/logger"
	"encoding/json"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	QuizSubmitted       = "quiz.submitted"
	QuizSessionExpired  = "quiz.session.expired"
	QuizSessionStarted  = "quiz.session.started"
	EnrollmentCompleted = "enrollment.completed"
	LessonCompleted     = "lesson.completed"
)

// Publisher 领域事件发布，失败不影响主流程
type Publisher interface {
	Publish(eventType string, payload interface{}) error
	Close()
}

type Event struct {
	Type       string      `json:"type"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurredAt"`
}

type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(eventType string, payload interface{}) error {
	body, err := json.Marshal(Event{Type: eventType, Payload: payload, OccurredAt: time.Now()})
	if err != nil {
		return err
	}

	logger.L().Debug("publish event", zap.String("type", eventType))

	// amqp.Channel 不是并发安全的
	p.mu.Lock()
	defer p.mu.Unlock()

	// 事件类型作为 topic 路由键
	return p.channel.Publish(
		p.exchange,
		eventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// NopPublisher 未配置消息队列时使用
type NopPublisher struct{}

func (NopPublisher) Publish(eventType string, payload interface{}) error {
	logger.L().Debug("event dropped, publisher disabled", zap.String("type", eventType))
	return nil
}

func (NopPublisher) Close() {}

// Recorder 记录所有事件，测试用
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(eventType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Event{Type: eventType, Payload: payload, OccurredAt: time.Now()})
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}
