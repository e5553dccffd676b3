package channel

import "slices"

// Local lifecycle events, dispatched to listeners by the client itself.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventConnectError    = "connect_error"
	EventReconnect       = "reconnect"
	EventReconnectError  = "reconnect_error"
	EventReconnectFailed = "reconnect_failed"
)

// Domain events relayed from the server.
const (
	EventSwapRequest  = "swap_request"
	EventSwapUpdate   = "swap_update"
	EventMessage      = "message"
	EventNotification = "notification"
	EventUserOnline   = "user_online"
	EventUserOffline  = "user_offline"
)

// Outbound-only event names.
const (
	EventJoinRoom   = "join_room"
	EventLeaveRoom  = "leave_room"
	EventUserStatus = "user_status"
	EventPing       = "ping"
)

// Disconnect reasons reported with EventDisconnect.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonTransportClose   = "transport close"
	ReasonTokenChange      = "token change"
)

// DomainEvents are the inbound server events relayed to local listeners.
var DomainEvents = []string{
	EventSwapRequest,
	EventSwapUpdate,
	EventMessage,
	EventNotification,
	EventUserOnline,
	EventUserOffline,
}

// IsDomainEvent reports whether name is relayed from the server.
func IsDomainEvent(name string) bool {
	return slices.Contains(DomainEvents, name)
}
