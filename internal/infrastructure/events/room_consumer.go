package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/contracts"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

type Consumer interface {
	ConsumeMessages(ctx context.Context, queueName string, handler messaging.MessageHandler) error
}

// RoomConsumer writes every room lifecycle event it receives to the audit log.
type RoomConsumer struct {
	consumer Consumer
	queue    string
	audit    domain.RoomAuditRepository
	logger   logging.Logger
}

func NewRoomConsumer(consumer Consumer, queue string, audit domain.RoomAuditRepository, logger logging.Logger) *RoomConsumer {
	if queue == "" {
		queue = messaging.RoomsQueue
	}
	return &RoomConsumer{
		consumer: consumer,
		queue:    queue,
		audit:    audit,
		logger:   logger,
	}
}

func (c *RoomConsumer) Listen(ctx context.Context) error {
	return c.consumer.ConsumeMessages(ctx, c.queue, c.handle)
}

func (c *RoomConsumer) handle(ctx context.Context, msg amqp091.Delivery) error {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		c.logger.Warn(logging.RabbitMQ, logging.Consume, "failed to unmarshal message", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	var payload messaging.RoomEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		c.logger.Warn(logging.RabbitMQ, logging.Consume, "failed to unmarshal room event", map[logging.ExtraKey]any{
			logging.RoomID:       message.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	entry, err := auditLogFor(msg.RoutingKey, payload)
	if err != nil {
		return err
	}

	if err := c.audit.Log(ctx, entry); err != nil {
		c.logger.Error(logging.MongoDB, logging.Consume, "failed to write audit log", map[logging.ExtraKey]any{
			logging.RoomID:       payload.RoomID,
			logging.EventType:    msg.RoutingKey,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	return nil
}

func auditLogFor(routingKey string, ev messaging.RoomEventData) (*domain.RoomAuditLog, error) {
	switch routingKey {
	case contracts.EventRoomCreated:
		return domain.NewRoomCreatedLog(ev.RoomID, ev.OccurredAt, ev.ExpiresAt.Sub(ev.CreatedAt), ev.MaxMembers), nil
	case contracts.EventRoomDeleted:
		return domain.NewRoomDeletedLog(ev.RoomID, ev.OccurredAt, ev.OccurredAt.Sub(ev.CreatedAt)), nil
	case contracts.EventRoomExpired:
		return domain.NewRoomExpiredLog(ev.RoomID, ev.OccurredAt, ev.MemberCount), nil
	case contracts.EventMemberJoined:
		return domain.NewMemberJoinedLog(ev.RoomID, ev.OccurredAt, ev.MemberCount), nil
	case contracts.EventMemberLeft:
		return domain.NewMemberLeftLog(ev.RoomID, ev.OccurredAt, ev.MemberCount), nil
	case contracts.EventRoomFullRejected:
		return domain.NewRoomFullRejectionLog(ev.RoomID, ev.OccurredAt, ev.MaxMembers), nil
	}
	return nil, fmt.Errorf("unknown routing key %q", routingKey)
}
