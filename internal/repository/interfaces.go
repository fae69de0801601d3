package repository

import (
	"context"

	"github.com/google/uuid"

	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/user"
)

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	// GetChatHistory returns every message exchanged between the two users,
	// in both directions, ordered by sent_at ascending.
	GetChatHistory(ctx context.Context, userID, companionID uuid.UUID) ([]message.Message, error)
	GetUserMessages(ctx context.Context, userID uuid.UUID) ([]message.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (message.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
