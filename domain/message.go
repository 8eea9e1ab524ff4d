// This file defines Message entities and related wire payloads.
// Messages are immutable and identified by server-assigned ids.
package domain

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Message is an immutable chat event created by the backend.
// FileData carries the base64 payload for image and file messages.
type Message struct {
	ID             string      `json:"id"`
	ChatID         string      `json:"chat_id"`
	SenderID       string      `json:"sender_id"`
	SenderUsername string      `json:"sender_username"`
	Content        string      `json:"content"`
	Type           MessageType `json:"message_type"`
	FileData       string      `json:"file_data,omitempty"`
	FileName       string      `json:"file_name,omitempty"`
	FileType       string      `json:"file_type,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SendMessageRequest is the payload of the message creation endpoint.
type SendMessageRequest struct {
	ChatID   string      `json:"chat_id"`
	Content  string      `json:"content"`
	Type     MessageType `json:"message_type"`
	FileData string      `json:"file_data,omitempty"`
	FileName string      `json:"file_name,omitempty"`
	FileType string      `json:"file_type,omitempty"`
}

// FileUpload is the backend's answer to a multipart upload. Its fields are
// passed verbatim into the follow-up SendMessageRequest.
type FileUpload struct {
	FileData string `json:"file_data"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}
