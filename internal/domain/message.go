package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// BroadcastReceiver addresses every subscriber of a room instead of a single peer.
const BroadcastReceiver = "broadcast"

type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Message    string    `json:"message,omitempty"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HasBody reports whether the message carries text or an image.
func (m Message) HasBody() bool {
	return m.Message != "" || m.ImageURL != ""
}

// Validate checks the fields every stored message must have.
func (m Message) Validate() error {
	err := validation.ValidateStruct(
		&m,
		validation.Field(&m.RoomID, validation.Required),
		validation.Field(&m.SenderID, validation.Required),
		validation.Field(&m.ReceiverID, validation.Required),
	)
	if err != nil {
		return NewValidationError(err)
	}

	if !m.HasBody() {
		return NewValidationError(ErrEmptyBody)
	}

	return nil
}
