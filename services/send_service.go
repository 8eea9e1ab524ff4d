package services

import (
	"bytes"
	"chatlink/contract"
	"chatlink/domain"
	"chatlink/errors"
	"chatlink/projection"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type ISendService interface {
	Send(ctx context.Context, chatID, content string, msgType domain.MessageType, file *domain.FileUpload) (domain.Message, error)
	SendText(ctx context.Context, chatID, content string) (domain.Message, error)
	UploadFile(ctx context.Context, path string) (domain.FileUpload, domain.MessageType, error)
	CreateChat(ctx context.Context, participants []string, isGroup bool, name string) (domain.Chat, error)
}

// SendService executes outbound mutations. Delivery is echo-confirmed: a
// sent message is never appended to the local timeline here; it lands there
// only when the push channel replays it, so the sender and every other
// participant observe the same server-assigned order. With the channel down
// a persisted send stays invisible until a reload.
type SendService struct {
	log    *slog.Logger
	api    contract.API
	roster *projection.Roster
}

func NewSendService(log *slog.Logger, api contract.API, roster *projection.Roster) *SendService {
	return &SendService{log: log, api: api, roster: roster}
}

// Send issues the message creation call. file carries upload results for
// image and file messages; it is nil for plain text.
func (s *SendService) Send(ctx context.Context, chatID, content string, msgType domain.MessageType, file *domain.FileUpload) (domain.Message, error) {
	if chatID == "" {
		return domain.Message{}, errors.ErrUnknownChat
	}
	if content == "" && file == nil {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	req := domain.SendMessageRequest{
		ChatID:  chatID,
		Content: content,
		Type:    msgType,
	}
	if file != nil {
		req.FileData = file.FileData
		req.FileName = file.FileName
		req.FileType = file.FileType
	}
	return s.api.SendMessage(ctx, req)
}

func (s *SendService) SendText(ctx context.Context, chatID, content string) (domain.Message, error) {
	return s.Send(ctx, chatID, content, domain.MessageTypeText, nil)
}

// UploadFile reads a local file, detects its content type, and pushes it
// through the upload endpoint. The returned fields feed a follow-up Send;
// images get the image message type, everything else is a file.
func (s *SendService) UploadFile(ctx context.Context, path string) (domain.FileUpload, domain.MessageType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FileUpload{}, "", err
	}
	detected := mimetype.Detect(data)
	upload, err := s.api.Upload(ctx, filepath.Base(path), detected.String(), bytes.NewReader(data))
	if err != nil {
		return domain.FileUpload{}, "", err
	}
	msgType := domain.MessageTypeFile
	if strings.HasPrefix(detected.String(), "image/") {
		msgType = domain.MessageTypeImage
	}
	return upload, msgType, nil
}

// CreateChat creates a conversation and refreshes the roster instead of
// inserting locally: the backend may return an already existing private
// chat, and it owns ids and participant lists.
func (s *SendService) CreateChat(ctx context.Context, participants []string, isGroup bool, name string) (domain.Chat, error) {
	chat, err := s.api.CreateChat(ctx, domain.CreateChatRequest{
		Name:         name,
		IsGroup:      isGroup,
		Participants: participants,
	})
	if err != nil {
		return domain.Chat{}, err
	}
	if err := s.roster.Refresh(ctx); err != nil {
		s.log.Warn("Roster refresh after chat create failed", "chat_id", chat.ID, "error", err)
	}
	return chat, nil
}
