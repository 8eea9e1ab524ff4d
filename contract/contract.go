//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatlink/domain"
	"context"
	"io"
)

// API is the consumed REST surface of the chat backend. Implementations
// carry the bearer credential as scoped state; there is no process-global
// default, so two API instances can serve two sessions independently.
type API interface {
	Login(ctx context.Context, username, password string) (domain.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (domain.AuthResult, error)
	Me(ctx context.Context) (domain.User, error)
	Chats(ctx context.Context) ([]domain.Chat, error)
	Messages(ctx context.Context, chatID string, skip, limit int) ([]domain.Message, error)
	SendMessage(ctx context.Context, req domain.SendMessageRequest) (domain.Message, error)
	CreateChat(ctx context.Context, req domain.CreateChatRequest) (domain.Chat, error)
	SearchUsers(ctx context.Context, query string) ([]domain.User, error)
	Upload(ctx context.Context, name, contentType string, r io.Reader) (domain.FileUpload, error)
	SetToken(token string)
	ClearToken()
}

// CredentialStore persists the single access token between application
// restarts. An empty token from Load means no stored credential.
type CredentialStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
}
