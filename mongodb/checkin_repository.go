package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Solsynth/DysonNetwork-sub002/domain"
)

// CheckInRepository implements domain.CheckInRepository on MongoDB.
type CheckInRepository struct {
	checkIns *mongo.Collection
}

func NewCheckInRepository(db *mongo.Database) *CheckInRepository {
	return &CheckInRepository{
		checkIns: db.Collection(CheckInsCollection),
	}
}

func utcDayRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func utcMonthRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Create appends a check-in result. Results are never updated or deleted.
func (r *CheckInRepository) Create(ctx context.Context, result *domain.CheckInResult) error {
	if _, err := r.checkIns.InsertOne(ctx, result); err != nil {
		return fmt.Errorf("failed to save check-in result: %w", err)
	}
	return nil
}

// ExistsOnDay implements domain.CheckInRepository.ExistsOnDay.
func (r *CheckInRepository) ExistsOnDay(ctx context.Context, accountID string, day time.Time) (bool, error) {
	start, end := utcDayRange(day)
	count, err := r.checkIns.CountDocuments(ctx, bson.M{
		"account_id": accountID,
		"created_at": bson.M{"$gte": start, "$lt": end},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count check-in results: %w", err)
	}
	return count > 0, nil
}

// CountBackdatedInMonth implements domain.CheckInRepository.CountBackdatedInMonth.
func (r *CheckInRepository) CountBackdatedInMonth(ctx context.Context, accountID string, month time.Time) (int, error) {
	start, end := utcMonthRange(month)
	count, err := r.checkIns.CountDocuments(ctx, bson.M{
		"account_id":     accountID,
		"created_at":     bson.M{"$gte": start, "$lt": end},
		"backdated_from": bson.M{"$exists": true},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count backdated check-ins: %w", err)
	}
	return int(count), nil
}

// ListByMonth implements domain.CheckInRepository.ListByMonth.
func (r *CheckInRepository) ListByMonth(ctx context.Context, accountID string, month time.Time) ([]*domain.CheckInResult, error) {
	start, end := utcMonthRange(month)
	cursor, err := r.checkIns.Find(ctx, bson.M{
		"account_id": accountID,
		"created_at": bson.M{"$gte": start, "$lt": end},
	}, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list check-in results: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*domain.CheckInResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode check-in results: %w", err)
	}
	return results, nil
}
