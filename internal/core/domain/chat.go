package domain

type ChatEventType string

const (
	ChatEventJoin    ChatEventType = "chat_join"
	ChatEventLeave   ChatEventType = "chat_leave"
	ChatEventMessage ChatEventType = "chat_message"
)

type ChatEvent struct {
	Type     ChatEventType `json:"type"`
	Username string        `json:"username"`
	Message  string        `json:"message,omitempty"`
}

// ChatRoom is the pub/sub room of an order's customer service chat.
func ChatRoom(orderID string) string {
	return "customer-service_" + orderID
}
