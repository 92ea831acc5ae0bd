package domain

// RoomObserver receives registry state changes. Calls are made while the
// room is locked, so every observer sees one room's events in the same order.
// Implementations must return quickly and must not call back into the registry.
type RoomObserver interface {
	RoomCreated(room Room)
	MembersChanged(room Room)
	MessagePosted(room Room, msg Message)
	JoinRejected(room Room, reason error)
	RoomDeleted(room Room)
}

// NopRoomObserver can be embedded to implement only the callbacks you need.
type NopRoomObserver struct{}

func (NopRoomObserver) RoomCreated(Room)            {}
func (NopRoomObserver) MembersChanged(Room)         {}
func (NopRoomObserver) MessagePosted(Room, Message) {}
func (NopRoomObserver) JoinRejected(Room, error)    {}
func (NopRoomObserver) RoomDeleted(Room)            {}

type MultiObserver []RoomObserver

func (m MultiObserver) RoomCreated(room Room) {
	for _, o := range m {
		o.RoomCreated(room)
	}
}

func (m MultiObserver) MembersChanged(room Room) {
	for _, o := range m {
		o.MembersChanged(room)
	}
}

func (m MultiObserver) MessagePosted(room Room, msg Message) {
	for _, o := range m {
		o.MessagePosted(room, msg)
	}
}

func (m MultiObserver) JoinRejected(room Room, reason error) {
	for _, o := range m {
		o.JoinRejected(room, reason)
	}
}

func (m MultiObserver) RoomDeleted(room Room) {
	for _, o := range m {
		o.RoomDeleted(room)
	}
}
