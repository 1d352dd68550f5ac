package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Message is shared by the gorm and mongo backends. Seq breaks ties between messages of a
// room stored within the same clock tick.
type Message struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement" bson:"seq"`
	ID         string    `gorm:"uniqueIndex;size:36;not null" bson:"_id"`
	RoomID     string    `gorm:"not null;index:idx_messages_room_created,priority:1" bson:"roomId"`
	SenderID   string    `gorm:"not null" bson:"senderId"`
	ReceiverID string    `gorm:"not null" bson:"receiverId"`
	Message    string    `gorm:"type:text" bson:"message,omitempty"`
	ImageURL   string    `gorm:"type:text" bson:"imageUrl,omitempty"`
	CreatedAt  time.Time `gorm:"not null;index:idx_messages_room_created,priority:2" bson:"createdAt"`
}

type MessageDAO struct {
	db *gorm.DB
}

func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{
		db: db,
	}
}

func (d *MessageDAO) Insert(ctx context.Context, message Message) (Message, error) {
	message.Seq = 0

	result := d.db.WithContext(ctx).Create(&message)
	if result.Error != nil {
		return Message{}, result.Error
	}

	return message, nil
}

func (d *MessageDAO) FindByRoom(ctx context.Context, roomID string) ([]Message, error) {
	messages := []Message{}

	result := d.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}

	return messages, nil
}
