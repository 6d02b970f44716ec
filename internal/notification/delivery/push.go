// Package delivery sends rendered notifications. Push messages go to a
// Kafka topic consumed by the device gateway; email goes through an HTTP
// mail relay.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"rostersync/internal/notification/models"
	"rostersync/internal/upstream"
)

// Producer is the synchronous produce call of a franz-go client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// PushMessage is the record value published per notified user.
type PushMessage struct {
	ID     uuid.UUID            `json:"id"`
	UserID uuid.UUID            `json:"userId"`
	Type   string               `json:"type"`
	Title  string               `json:"title"`
	Body   string               `json:"body"`
	Tokens []models.DeviceToken `json:"tokens"`
	SentAt time.Time            `json:"sentAt"`
}

// KafkaPush publishes push notifications keyed by user id, so one user's
// messages stay ordered on a partition.
type KafkaPush struct {
	producer Producer
	topic    string
	now      func() time.Time
}

func NewKafkaPush(producer Producer, topic string) *KafkaPush {
	return &KafkaPush{producer: producer, topic: topic, now: time.Now}
}

func (k *KafkaPush) SendPush(ctx context.Context, r models.Recipient, c models.Copy) error {
	msg := PushMessage{
		ID:     uuid.New(),
		UserID: r.UserID,
		Type:   models.TypeShiftChange,
		Title:  c.Title,
		Body:   c.Body,
		Tokens: r.DeviceTokens,
		SentAt: k.now().UTC(),
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(r.UserID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(models.TypeShiftChange)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return upstream.New(upstream.CategoryOutage, "kafka", "publish push notification", err)
	}
	return nil
}

// LogPush stands in for push delivery when no broker is configured.
type LogPush struct {
	logger *slog.Logger
}

func NewLogPush(logger *slog.Logger) *LogPush {
	return &LogPush{logger: logger}
}

func (l *LogPush) SendPush(ctx context.Context, r models.Recipient, c models.Copy) error {
	l.logger.InfoContext(ctx, "push notification (no broker configured)",
		"user_id", r.UserID,
		"devices", len(r.DeviceTokens),
		"title", c.Title,
	)
	return nil
}
