package repository

import (
	"context"
	"fmt"
	"time"

	"catalogadmin/model"
	"catalogadmin/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MaxAuditPage = 200

type AuditRepo struct {
	MongoCollection *mongo.Collection
}

func NewAuditRepo(db *mongo.Database, collection string) *AuditRepo {
	return &AuditRepo{MongoCollection: db.Collection(collection)}
}

func (r *AuditRepo) InsertAudit(ctx context.Context, event *model.AuditEvent) error {
	timer := utils.TrackDBOperation("insert", "audit_logs")
	defer timer.ObserveDuration()

	if _, err := r.MongoCollection.InsertOne(ctx, event); err != nil {
		utils.TrackError("database", "audit_insert_failed")
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// List returns events newest first. The page size is capped at MaxAuditPage.
func (r *AuditRepo) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEvent, error) {
	timer := utils.TrackDBOperation("find", "audit_logs")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Entity != "" {
		query["entity"] = filter.Entity
	}
	if !filter.Since.IsZero() {
		query["timestamp"] = bson.M{"$gte": filter.Since}
	}

	limit := filter.Limit
	if limit <= 0 || limit > MaxAuditPage {
		limit = MaxAuditPage
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := r.MongoCollection.Find(ctx, query, opts)
	if err != nil {
		utils.TrackError("database", "audit_list_failed")
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []*model.AuditEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}
	return events, nil
}
