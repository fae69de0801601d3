package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/user"
	"marketplace-chat/internal/relay"
	chat_errors "marketplace-chat/pkg/errors"
)

// --- In-memory fakes ---

type memoryMessageRepo struct {
	messages  map[uuid.UUID]message.Message
	createErr error
}

func newMemoryMessageRepo() *memoryMessageRepo {
	return &memoryMessageRepo{messages: make(map[uuid.UUID]message.Message)}
}

func (r *memoryMessageRepo) Create(_ context.Context, m *message.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.messages[m.ID] = *m
	return nil
}

func (r *memoryMessageRepo) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	m, ok := r.messages[id]
	if !ok {
		return message.Message{}, chat_errors.ErrNotFound
	}
	return m, nil
}

func (r *memoryMessageRepo) GetChatHistory(_ context.Context, userID, companionID uuid.UUID) ([]message.Message, error) {
	var out []message.Message
	for _, m := range r.messages {
		if (m.SenderID == userID && m.ReceiverID == companionID) ||
			(m.SenderID == companionID && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	sortBySentAt(out)
	return out, nil
}

func (r *memoryMessageRepo) GetUserMessages(_ context.Context, userID uuid.UUID) ([]message.Message, error) {
	var out []message.Message
	for _, m := range r.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	sortBySentAt(out)
	return out, nil
}

func (r *memoryMessageRepo) UpdateContent(_ context.Context, id uuid.UUID, content string) (message.Message, error) {
	m, ok := r.messages[id]
	if !ok {
		return message.Message{}, chat_errors.ErrNotFound
	}
	m.Content = content
	r.messages[id] = m
	return m, nil
}

func (r *memoryMessageRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.messages[id]; !ok {
		return chat_errors.ErrNotFound
	}
	delete(r.messages, id)
	return nil
}

func sortBySentAt(items []message.Message) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].SentAt.Before(items[j-1].SentAt); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

type memoryUserRepo struct {
	users map[uuid.UUID]user.User
}

func newMemoryUserRepo(users ...user.User) *memoryUserRepo {
	r := &memoryUserRepo{users: make(map[uuid.UUID]user.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return chat_errors.ErrAlreadyExists
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return user.User{}, chat_errors.ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, chat_errors.ErrNotFound
}

func (r *memoryUserRepo) List(_ context.Context) ([]user.User, error) {
	var out []user.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

// --- Tests ---

func testUsers() (user.User, user.User) {
	return user.User{ID: uuid.New(), Email: "a@example.com", Name: "A"},
		user.User{ID: uuid.New(), Email: "b@example.com", Name: "B"}
}

func TestMessageService_CreateMessage(t *testing.T) {
	sender, receiver := testUsers()
	repo := newMemoryMessageRepo()
	svc := NewMessageService(repo, newMemoryUserRepo(sender, receiver))

	msg, err := svc.CreateMessage(context.Background(), relay.Envelope{
		SenderID:   sender.ID.String(),
		ReceiverID: receiver.ID.String(),
		Content:    "hello",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, sender.ID, msg.SenderID)
	assert.Equal(t, receiver.ID, msg.ReceiverID)
	assert.WithinDuration(t, time.Now().UTC(), msg.SentAt, time.Second)

	stored, err := repo.GetByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg, stored)
}

func TestMessageService_CreateMessageValidation(t *testing.T) {
	sender, receiver := testUsers()
	svc := NewMessageService(newMemoryMessageRepo(), newMemoryUserRepo(sender, receiver))

	cases := []struct {
		name string
		env  relay.Envelope
		want error
	}{
		{
			name: "malformed sender id",
			env:  relay.Envelope{SenderID: "nope", ReceiverID: receiver.ID.String(), Content: "x"},
			want: chat_errors.ErrInvalidInput,
		},
		{
			name: "malformed receiver id",
			env:  relay.Envelope{SenderID: sender.ID.String(), ReceiverID: "nope", Content: "x"},
			want: chat_errors.ErrInvalidInput,
		},
		{
			name: "blank content",
			env:  relay.Envelope{SenderID: sender.ID.String(), ReceiverID: receiver.ID.String(), Content: "   "},
			want: chat_errors.ErrInvalidInput,
		},
		{
			name: "unknown receiver",
			env:  relay.Envelope{SenderID: sender.ID.String(), ReceiverID: uuid.New().String(), Content: "x"},
			want: chat_errors.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateMessage(context.Background(), tc.env)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMessageService_CreateMessagePropagatesStoreFailure(t *testing.T) {
	sender, receiver := testUsers()
	repo := newMemoryMessageRepo()
	repo.createErr = errors.New("connection refused")
	svc := NewMessageService(repo, newMemoryUserRepo(sender, receiver))

	_, err := svc.CreateMessage(context.Background(), relay.Envelope{
		SenderID:   sender.ID.String(),
		ReceiverID: receiver.ID.String(),
		Content:    "hello",
	})
	require.Error(t, err)
}

func TestMessageService_ChatHistoryOrdering(t *testing.T) {
	sender, receiver := testUsers()
	repo := newMemoryMessageRepo()
	svc := NewMessageService(repo, newMemoryUserRepo(sender, receiver))

	base := time.Now().UTC()
	for i, content := range []string{"first", "second", "third"} {
		from, to := sender.ID, receiver.ID
		if i%2 == 1 {
			from, to = to, from
		}
		repo.messages[uuid.New()] = message.Message{
			ID:         uuid.New(),
			SenderID:   from,
			ReceiverID: to,
			Content:    content,
			SentAt:     base.Add(time.Duration(i) * time.Second),
		}
	}

	history, err := svc.GetChatHistory(context.Background(), sender.ID, receiver.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, "third", history[2].Content)
}

func TestMessageService_UpdateOwnMessageOnly(t *testing.T) {
	sender, receiver := testUsers()
	repo := newMemoryMessageRepo()
	svc := NewMessageService(repo, newMemoryUserRepo(sender, receiver))

	msg, err := svc.CreateMessage(context.Background(), relay.Envelope{
		SenderID:   sender.ID.String(),
		ReceiverID: receiver.ID.String(),
		Content:    "typo",
	})
	require.NoError(t, err)

	_, err = svc.UpdateOwnMessage(context.Background(), msg.ID, receiver.ID, "hacked")
	assert.ErrorIs(t, err, chat_errors.ErrForbidden)

	updated, err := svc.UpdateOwnMessage(context.Background(), msg.ID, sender.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Content)
}

func TestMessageService_DeleteOwnMessageOnly(t *testing.T) {
	sender, receiver := testUsers()
	repo := newMemoryMessageRepo()
	svc := NewMessageService(repo, newMemoryUserRepo(sender, receiver))

	msg, err := svc.CreateMessage(context.Background(), relay.Envelope{
		SenderID:   sender.ID.String(),
		ReceiverID: receiver.ID.String(),
		Content:    "oops",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteOwnMessage(context.Background(), msg.ID, receiver.ID), chat_errors.ErrForbidden)
	require.NoError(t, svc.DeleteOwnMessage(context.Background(), msg.ID, sender.ID))

	_, err = svc.GetByID(context.Background(), msg.ID)
	assert.ErrorIs(t, err, chat_errors.ErrNotFound)
}
