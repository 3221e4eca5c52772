package database

import (
	"context"
	"fmt"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionUsers  = "users"
	collectionEvents = "event_archive"
)

// MongoDB holds the API user registry and an append-only archive of raw
// qualifying-event deliveries. The MySQL ledger stays the source of
// truth; the archive exists for auditing at-least-once redeliveries.
type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) GetUser(token string) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "token", Value: token}}
	var user entity.User
	err = collection.FindOne(m.ctx, filter).Decode(&user)
	return &user, err
}

func (m *MongoDB) GetAdminUsers() ([]*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "role", Value: entity.RoleAdmin}, {Key: "telegram_id", Value: bson.D{{Key: "$gt", Value: 0}}}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var users []*entity.User
	err = cursor.All(m.ctx, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ArchiveEvent records one raw delivery of a qualifying event. Upserts
// on event id so redeliveries bump a counter instead of duplicating.
func (m *MongoDB) ArchiveEvent(evt *entity.QualifyingEvent) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionEvents)
	filter := bson.D{{Key: "event_id", Value: evt.EventId}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "event_id", Value: evt.EventId},
			{Key: "kind", Value: evt.Kind},
			{Key: "acting_member_id", Value: evt.ActingMemberId},
			{Key: "base_amount", Value: evt.BaseAmount.String()},
			{Key: "currency", Value: evt.Currency},
			{Key: "last_seen_at", Value: time.Now().UTC()},
		}},
		{Key: "$inc", Value: bson.D{{Key: "deliveries", Value: 1}}},
	}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}
