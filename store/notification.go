package store

import (
	"context"

	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) Notifications() *mongo.Collection {
	return db.Database.Collection("notification_logs")
}

// InsertNotificationLog records a notice sent (or attempted) by the sweeper.
func (db *DB) InsertNotificationLog(ctx context.Context, log *models.NotificationLog) error {
	_, err := db.Notifications().InsertOne(ctx, log, options.InsertOne())
	return err
}

// RecentNotifications returns the latest n notices, newest first.
func (db *DB) RecentNotifications(ctx context.Context, n int) ([]models.NotificationLog, error) {
	cur, err := db.Notifications().Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "sentAt", Value: -1}}).SetLimit(int64(n)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	logs := []models.NotificationLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
