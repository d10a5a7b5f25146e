// Package store persists tenant records.
package store

import (
	"context"

	"github.com/m3rciful/rentbot/internal/model"
)

// Users is the persistence contract of the tenant record set.
type Users interface {
	// Load returns every record. A missing backing store yields an empty set.
	Load(ctx context.Context) ([]model.User, error)
	// Save overwrites the whole record set.
	Save(ctx context.Context, users []model.User) error
	// Find returns the record with the given id or model.ErrNotFound.
	Find(ctx context.Context, id int64) (model.User, error)
	// Ensure returns the existing record for defaults.ID or stores defaults.
	// The boolean reports whether a record was created.
	Ensure(ctx context.Context, defaults model.User) (model.User, bool, error)
	// Update applies fn to a copy of the record and persists it atomically.
	Update(ctx context.Context, id int64, fn func(*model.User) error) (model.User, error)
	// Ping verifies the backing store is readable.
	Ping(ctx context.Context) error
}

const component = "store"

func cloneAll(users []model.User) []model.User {
	if users == nil {
		return []model.User{}
	}
	out := make([]model.User, len(users))
	for i, u := range users {
		out[i] = u.Clone()
	}
	return out
}

func indexOf(users []model.User, id int64) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}
