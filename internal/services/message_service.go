package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/relay"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
)

// MessageService owns the message store. It is the persistence collaborator
// behind the relay and the REST message endpoints.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo, userRepo: userRepo}
}

// CreateMessage validates the envelope, checks the referential constraints
// the wire layer cannot, and writes the message. The returned message
// carries the assigned id and sent-at timestamp.
func (s *MessageService) CreateMessage(ctx context.Context, env relay.Envelope) (message.Message, error) {
	senderID, err := uuid.Parse(env.SenderID)
	if err != nil {
		return message.Message{}, chat_errors.ErrInvalidInput
	}
	receiverID, err := uuid.Parse(env.ReceiverID)
	if err != nil {
		return message.Message{}, chat_errors.ErrInvalidInput
	}
	if strings.TrimSpace(env.Content) == "" {
		return message.Message{}, chat_errors.ErrInvalidInput
	}

	exists, err := s.userRepo.Exists(ctx, receiverID)
	if err != nil {
		return message.Message{}, chat_errors.ErrServiceUnavailable
	}
	if !exists {
		return message.Message{}, chat_errors.ErrNotFound
	}

	m := &message.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    env.Content,
		SentAt:     time.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, m); err != nil {
		return message.Message{}, err
	}
	return *m, nil
}

// GetChatHistory returns the conversation between two users, both
// directions, ascending by sent_at.
func (s *MessageService) GetChatHistory(ctx context.Context, userID, companionID uuid.UUID) ([]message.Message, error) {
	return s.messageRepo.GetChatHistory(ctx, userID, companionID)
}

func (s *MessageService) GetUserMessages(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	return s.messageRepo.GetUserMessages(ctx, userID)
}

func (s *MessageService) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

// UpdateOwnMessage edits a message's content. Only the sender may edit.
// The relay never calls this; edits exist only behind the REST surface.
func (s *MessageService) UpdateOwnMessage(ctx context.Context, id, requesterID uuid.UUID, content string) (message.Message, error) {
	if strings.TrimSpace(content) == "" {
		return message.Message{}, chat_errors.ErrInvalidInput
	}
	m, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return message.Message{}, err
	}
	if m.SenderID != requesterID {
		return message.Message{}, chat_errors.ErrForbidden
	}
	return s.messageRepo.UpdateContent(ctx, id, content)
}

// DeleteOwnMessage removes a message. Only the sender may delete.
func (s *MessageService) DeleteOwnMessage(ctx context.Context, id, requesterID uuid.UUID) error {
	m, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.SenderID != requesterID {
		return chat_errors.ErrForbidden
	}
	return s.messageRepo.Delete(ctx, id)
}
