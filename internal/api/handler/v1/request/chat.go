package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dealersense/chat-api/internal/domain"
)

type SendMessageRequest struct {
	RoomID     string `json:"roomId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

func (req *SendMessageRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.RoomID, validation.Required),
		validation.Field(&req.SenderID, validation.Required),
		validation.Field(&req.ReceiverID, validation.Required),
	)
	if err != nil {
		return err
	}

	if req.Message == "" && req.ImageURL == "" {
		return domain.ErrEmptyBody
	}

	return nil
}
