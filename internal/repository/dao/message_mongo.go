package dao

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMessageDAO stores messages in a single collection, one document per message.
type MongoMessageDAO struct {
	col *mongo.Collection

	mu      sync.Mutex
	lastSeq uint64
}

func NewMongoMessageDAO(col *mongo.Collection) *MongoMessageDAO {
	return &MongoMessageDAO{
		col: col,
	}
}

func (d *MongoMessageDAO) EnsureIndexes(ctx context.Context) error {
	_, err := d.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("d.col.Indexes().CreateOne -> %w", err)
	}

	return nil
}

// nextSeq is strictly increasing for this process and roughly ordered across processes.
func (d *MongoMessageDAO) nextSeq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	seq := uint64(time.Now().UnixNano())
	if seq <= d.lastSeq {
		seq = d.lastSeq + 1
	}
	d.lastSeq = seq

	return seq
}

func (d *MongoMessageDAO) Insert(ctx context.Context, message Message) (Message, error) {
	message.Seq = d.nextSeq()

	if _, err := d.col.InsertOne(ctx, message); err != nil {
		return Message{}, err
	}

	return message, nil
}

func (d *MongoMessageDAO) FindByRoom(ctx context.Context, roomID string) ([]Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}})

	cur, err := d.col.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	messages := []Message{}
	if err = cur.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}
