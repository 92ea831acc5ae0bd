package ws

// Inbound
const (
	JoinRoom    = "join_room"
	SendMessage = "send_message"
)

// Outbound
const (
	Connected      = "connected"
	RoomUsers      = "room_users"
	ReceiveMessage = "receive_message"

	RoomFull      = "room_full"
	RoomExpired   = "room_expired"
	AlreadyInRoom = "already_in_room"
	RateLimited   = "rate_limited"
	ErrorEvent    = "error"
)
