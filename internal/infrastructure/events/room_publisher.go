package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/contracts"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/messaging"
)

const defaultQueueSize = 256

type Publisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

type pending struct {
	routingKey string
	message    contracts.AmqpMessage
}

// RoomPublisher turns registry callbacks into lifecycle events on the rooms
// exchange. Callbacks only enqueue; Run does the network I/O.
type RoomPublisher struct {
	publisher Publisher
	logger    logging.Logger
	now       func() time.Time

	queue chan pending

	mu     sync.Mutex
	counts map[string]int // roomID -> last seen member count
}

func NewRoomPublisher(publisher Publisher, logger logging.Logger, queueSize int) *RoomPublisher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &RoomPublisher{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan pending, queueSize),
		counts:    make(map[string]int),
	}
}

var _ domain.RoomObserver = (*RoomPublisher)(nil)

// Run publishes queued events until ctx is done.
func (p *RoomPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			if err := p.publisher.PublishMessage(ctx, ev.routingKey, ev.message); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error(logging.RabbitMQ, logging.Publish, "failed to publish room event", map[logging.ExtraKey]any{
					logging.RoomID:       ev.message.RoomID,
					logging.EventType:    ev.routingKey,
					logging.ErrorMessage: err.Error(),
				})
			}
		}
	}
}

func (p *RoomPublisher) RoomCreated(room domain.Room) {
	p.mu.Lock()
	p.counts[room.ID] = len(room.Members)
	p.mu.Unlock()

	p.enqueue(contracts.EventRoomCreated, room, "")
}

// MembersChanged tells joins from leaves by comparing with the last count.
func (p *RoomPublisher) MembersChanged(room domain.Room) {
	p.mu.Lock()
	prev := p.counts[room.ID]
	p.counts[room.ID] = len(room.Members)
	p.mu.Unlock()

	switch {
	case len(room.Members) > prev:
		p.enqueue(contracts.EventMemberJoined, room, room.Members[len(room.Members)-1].ConnectionID)
	case len(room.Members) < prev:
		p.enqueue(contracts.EventMemberLeft, room, "")
	}
}

func (p *RoomPublisher) MessagePosted(domain.Room, domain.Message) {}

func (p *RoomPublisher) JoinRejected(room domain.Room, reason error) {
	if errors.Is(reason, domain.ErrRoomFull) {
		p.enqueue(contracts.EventRoomFullRejected, room, "")
	}
}

func (p *RoomPublisher) RoomDeleted(room domain.Room) {
	p.mu.Lock()
	prev := p.counts[room.ID]
	delete(p.counts, room.ID)
	p.mu.Unlock()

	if prev > 0 {
		p.enqueue(contracts.EventMemberLeft, room, "")
	}
	p.enqueue(contracts.EventRoomDeleted, room, "")
}

// RoomExpired is fed by the expiry watcher.
func (p *RoomPublisher) RoomExpired(room domain.Room) {
	p.enqueue(contracts.EventRoomExpired, room, "")
}

func (p *RoomPublisher) enqueue(routingKey string, room domain.Room, connectionID string) {
	data, err := json.Marshal(messaging.RoomEventData{
		RoomID:       room.ID,
		ConnectionID: connectionID,
		MemberCount:  len(room.Members),
		MaxMembers:   room.MaxMembers,
		CreatedAt:    room.CreatedAt,
		ExpiresAt:    room.ExpiresAt,
		OccurredAt:   p.now(),
	})
	if err != nil {
		return
	}

	select {
	case p.queue <- pending{routingKey: routingKey, message: contracts.AmqpMessage{RoomID: room.ID, Data: data}}:
	default:
		p.logger.Warn(logging.RabbitMQ, logging.Publish, "event queue full, dropping room event", map[logging.ExtraKey]any{
			logging.RoomID:    room.ID,
			logging.EventType: routingKey,
		})
	}
}
