package database

import (
	"database/sql"
	"time"
)

// BotEntry is one registered bot in the directory. The id is the stable
// identifier issued by the identity service; the username may change upstream.
// Reputation fields are NULL until the identity service reports a rating.
type BotEntry struct {
	ID       string `db:"id"`
	Username string `db:"username"`

	CreatedAt  time.Time `db:"created_at"`
	CreatedBy  string    `db:"created_by"`
	ModifiedAt time.Time `db:"modified_at"`
	ModifiedBy string    `db:"modified_by"`

	IsOnline          bool `db:"is_online"`
	IsWorkingProperly bool `db:"is_working_properly"`

	ReputationScore sql.NullFloat64 `db:"reputation_score"`
	AverageRating   sql.NullFloat64 `db:"average_rating"`
	ReviewCount     sql.NullInt64   `db:"review_count"`

	IsVisible bool `db:"is_visible"`
}

// Reputation groups the externally sourced rating fields of an entry.
type Reputation struct {
	ReputationScore sql.NullFloat64 `db:"reputation_score"`
	AverageRating   sql.NullFloat64 `db:"average_rating"`
	ReviewCount     sql.NullInt64   `db:"review_count"`
}

// Reputation returns the entry's rating fields.
func (e *BotEntry) Reputation() Reputation {
	return Reputation{
		ReputationScore: e.ReputationScore,
		AverageRating:   e.AverageRating,
		ReviewCount:     e.ReviewCount,
	}
}

// SetReputation copies rating fields onto the entry.
func (e *BotEntry) SetReputation(r Reputation) {
	e.ReputationScore = r.ReputationScore
	e.AverageRating = r.AverageRating
	e.ReviewCount = r.ReviewCount
}
