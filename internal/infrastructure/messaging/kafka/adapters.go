package kafka

import (
	"context"
	"encoding/json"

	"github.com/caseworks/appeal-engine/internal/application/orchestrator"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// NotificationDispatcher implements orchestrator.Notifier by publishing the
// notification request for the downstream mailer to pick up.  Template
// content lives with the mailer, not here.
type NotificationDispatcher struct {
	producer *Producer
}

// NewNotificationDispatcher constructs a NotificationDispatcher.
func NewNotificationDispatcher(producer *Producer) *NotificationDispatcher {
	return &NotificationDispatcher{producer: producer}
}

var _ orchestrator.Notifier = (*NotificationDispatcher)(nil)

func (d *NotificationDispatcher) SendNotification(ctx context.Context, n orchestrator.Notification) error {
	payload, err := json.Marshal(struct {
		TemplateName    string            `json:"template_name"`
		RecipientEmail  string            `json:"recipient_email"`
		Personalisation map[string]string `json:"personalisation"`
	}{n.TemplateName, n.RecipientEmail, n.Personalisation})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode notification")
	}

	return d.producer.Publish(ctx, &common.ProducerMessage{
		Topic: TopicNotificationSend,
		Key:   []byte(n.RecipientEmail),
		Value: payload,
		Headers: map[string]string{
			HeaderEventType: n.TemplateName,
		},
	})
}

// EventBroadcaster implements orchestrator.Broadcaster by publishing change
// notifications for downstream systems.
type EventBroadcaster struct {
	producer *Producer
}

// NewEventBroadcaster constructs an EventBroadcaster.
func NewEventBroadcaster(producer *Producer) *EventBroadcaster {
	return &EventBroadcaster{producer: producer}
}

var _ orchestrator.Broadcaster = (*EventBroadcaster)(nil)

func (b *EventBroadcaster) Broadcast(ctx context.Context, msg orchestrator.Broadcast) error {
	payload, err := json.Marshal(struct {
		EntityID   string      `json:"entity_id"`
		EntityType string      `json:"entity_type"`
		ChangeKind string      `json:"change_kind"`
		Payload    interface{} `json:"payload,omitempty"`
	}{msg.EntityID.String(), msg.EntityType, msg.ChangeKind, msg.Payload})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode broadcast")
	}

	return b.producer.Publish(ctx, &common.ProducerMessage{
		Topic: TopicCaseBroadcast,
		Key:   []byte(msg.EntityID.String()),
		Value: payload,
		Headers: map[string]string{
			HeaderEventType:  msg.ChangeKind,
			HeaderEntityType: msg.EntityType,
		},
	})
}
