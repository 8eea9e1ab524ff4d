package domain

// FrameNewMessage is the only inbound frame type the backend emits today.
// Unknown types are ignored by the router for forward compatibility.
const FrameNewMessage = "new_message"

// Frame is one decoded event from the push channel.
type Frame struct {
	Type    string  `json:"type"`
	ChatID  string  `json:"chat_id"`
	Message Message `json:"message"`
}
