package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQNotifier публикует уведомления в topic exchange.
type RabbitMQNotifier struct {
	mu       sync.Mutex
	dial     func() (*amqp.Connection, error)
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *log.Logger
}

// NewRabbitMQNotifier подключается к брокеру и объявляет exchange.
func NewRabbitMQNotifier(rawURL, exchange string, logger *log.Logger) (*RabbitMQNotifier, error) {
	amqpURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	n := &RabbitMQNotifier{
		dial: func() (*amqp.Connection, error) {
			return amqp.DialConfig(amqpURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
		},
		exchange: exchange,
		logger:   logger,
	}

	n.mu.Lock()
	err = n.reconnect()
	n.mu.Unlock()
	if err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Notify реализует SettlementNotifier.
// При ошибке публикации канал переоткрывается один раз; закрытое соединение переустанавливается.
func (n *RabbitMQNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		err = n.publish(ctx, event.Type, body)
		if err == nil {
			return nil
		}
		n.logger.Printf("Publish of %s failed, reconnecting: %v", event.Type, err)
	}

	if err := n.reconnect(); err != nil {
		return err
	}
	return n.publish(ctx, event.Type, body)
}

// Close закрывает канал и соединение.
func (n *RabbitMQNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}

func (n *RabbitMQNotifier) publish(ctx context.Context, routingKey string, body []byte) error {
	return n.channel.PublishWithContext(ctx,
		n.exchange,
		routingKey,
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

// reconnect открывает новый канал, при необходимости заново подключаясь к брокеру.
func (n *RabbitMQNotifier) reconnect() error {
	if n.channel != nil {
		n.channel.Close()
		n.channel = nil
	}
	if n.conn == nil || n.conn.IsClosed() {
		conn, err := n.dial()
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		n.conn = conn
	}
	return n.openChannel()
}

func (n *RabbitMQNotifier) openChannel() error {
	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", n.exchange, err)
	}
	n.channel = ch
	return nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
