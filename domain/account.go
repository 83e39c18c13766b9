package domain

import (
	"context"
	"time"
)

// Account carries the slice of the account profile the check-in engine
// needs: identity, timezone for local-day evaluation and the birthday.
type Account struct {
	ID       string     `bson:"_id" json:"id"`
	Name     string     `bson:"name" json:"name"`
	TimeZone string     `bson:"time_zone" json:"time_zone,omitempty"`
	Birthday *time.Time `bson:"birthday,omitempty" json:"birthday,omitempty"`
}

// Location resolves the account's IANA timezone, falling back to UTC when
// unset or unrecognized.
func (a *Account) Location() *time.Location {
	if a.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsBirthday reports whether the given instant falls on the account's
// birthday in its local timezone.
func (a *Account) IsBirthday(now time.Time) bool {
	if a.Birthday == nil {
		return false
	}
	local := now.In(a.Location())
	return local.Month() == a.Birthday.Month() && local.Day() == a.Birthday.Day()
}

// AccountReader is the read-only account lookup capability the check-in
// surface consumes. Account CRUD itself lives elsewhere.
type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)
}

// ExperienceLedger records experience rewards on an external ledger. The
// check-in engine appends to it but does not own it.
type ExperienceLedger interface {
	Append(ctx context.Context, accountID string, amount int64, reason string) error
}
