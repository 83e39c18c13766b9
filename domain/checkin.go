package domain

import (
	"context"
	"time"
)

// CheckInLevel is the reward tier drawn for a daily check-in.
type CheckInLevel int

const (
	CheckInLevelWorst CheckInLevel = iota
	CheckInLevelWorse
	CheckInLevelNormal
	CheckInLevelBetter
	CheckInLevelBest
	CheckInLevelSpecial // birthday override, never drawn randomly
)

func (l CheckInLevel) String() string {
	switch l {
	case CheckInLevelWorst:
		return "worst"
	case CheckInLevelWorse:
		return "worse"
	case CheckInLevelNormal:
		return "normal"
	case CheckInLevelBetter:
		return "better"
	case CheckInLevelBest:
		return "best"
	case CheckInLevelSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// FortuneTip is one line of daily fortune advice attached to a check-in.
type FortuneTip struct {
	IsPositive bool   `bson:"is_positive" json:"is_positive"`
	Title      string `bson:"title" json:"title"`
	Content    string `bson:"content" json:"content"`
}

// CheckInResult is the persisted, immutable outcome of one check-in.
// CreatedAt is the effective day the entry counts for, which for a
// backdated entry is in the past; BackdatedFrom then records when the
// entry was actually written.
type CheckInResult struct {
	ID               string       `bson:"_id" json:"id"`
	AccountID        string       `bson:"account_id" json:"account_id"`
	Level            CheckInLevel `bson:"level" json:"level"`
	RewardPoints     *float64     `bson:"reward_points,omitempty" json:"reward_points,omitempty"`
	RewardExperience *int64       `bson:"reward_experience,omitempty" json:"reward_experience,omitempty"`
	Tips             []FortuneTip `bson:"tips" json:"tips"`
	BackdatedFrom    *time.Time   `bson:"backdated_from,omitempty" json:"backdated_from,omitempty"`
	CreatedAt        time.Time    `bson:"created_at" json:"created_at"`
}

// CheckInRepository persists check-in results. Results are append-only.
type CheckInRepository interface {
	Create(ctx context.Context, result *CheckInResult) error
	// ExistsOnDay reports whether any result (backdated or not) has its
	// effective date inside the UTC day containing the given instant.
	ExistsOnDay(ctx context.Context, accountID string, day time.Time) (bool, error)
	// CountBackdatedInMonth counts backdated results whose effective date
	// falls in the UTC calendar month containing the given instant.
	CountBackdatedInMonth(ctx context.Context, accountID string, month time.Time) (int, error)
	// ListByMonth returns all results for the UTC calendar month
	// containing the given instant, ordered by effective date.
	ListByMonth(ctx context.Context, accountID string, month time.Time) ([]*CheckInResult, error)
}
