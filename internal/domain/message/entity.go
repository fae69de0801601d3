package message

import (
	"time"

	"github.com/google/uuid"
)

// Message represents the messages table. A row is written once when the
// relay (or the REST endpoint) accepts a send; the relay never mutates it.
type Message struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SenderID   uuid.UUID `json:"sender_id" gorm:"type:uuid;index;not null"`
	ReceiverID uuid.UUID `json:"receiver_id" gorm:"type:uuid;index;not null"`
	Content    string    `json:"content" gorm:"not null"`
	SentAt     time.Time `json:"sent_at" gorm:"index;not null"`
}

func (Message) TableName() string {
	return "messages"
}
