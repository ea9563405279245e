package domain

// Inbound chat events sent by browser clients.
const (
	EventUserConnection    = "user-connection"
	EventSendMessage       = "send-message"
	EventUserDisconnection = "user-disconnection"
)

// Outbound chat events delivered to every other connected client.
const (
	EventHandleUserConnection    = "handle-user-connection"
	EventHandleSendMessage       = "handle-send-message"
	EventHandleUserDisconnection = "handle-user-disconnection"
)

// ChatEvent is one JSON text frame on the chat socket.
type ChatEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ChatMessage struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}
