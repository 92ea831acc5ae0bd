package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	RoomID string `json:"roomId"`
	Data   []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventRoomCreated      = "room.created"
	EventRoomDeleted      = "room.deleted"
	EventRoomExpired      = "room.expired"
	EventRoomFullRejected = "room.full_rejected"
	EventMemberJoined     = "member.joined"
	EventMemberLeft       = "member.left"
)

var RoomRoutingKeys = []string{
	EventRoomCreated,
	EventRoomDeleted,
	EventRoomExpired,
	EventRoomFullRejected,
	EventMemberJoined,
	EventMemberLeft,
}
