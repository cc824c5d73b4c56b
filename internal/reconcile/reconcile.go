// Package reconcile aligns the reseller's local customer records with
// the remote friend directory. It only creates and backfills; it never
// deletes and never overwrites a conflicting contact email.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sharesync/internal/models"
)

// CustomerDirectory is the external CRM collaborator. Persistence of the
// reconciled record belongs to it, not to this package.
type CustomerDirectory interface {
	CreateCustomer(ctx context.Context, c models.Customer) (int64, error)
	UpdateCustomer(ctx context.Context, c models.Customer) error
}

// Reconcile walks the remote friend list once. Matching precedence per
// friend: stored remote id, then email, then username, both compared
// case-insensitively. Unmatched friends become not-yet-subscribed stubs.
func Reconcile(ctx context.Context, dir CustomerDirectory, friends []models.FriendAccount, customers []models.Customer) (models.SyncOutcome, error) {
	out := models.SyncOutcome{
		UnmatchedRemote: []models.FriendAccount{},
		Conflicts:       []models.SyncConflict{},
	}

	for i := range friends {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		f := friends[i]

		local := match(customers, f)
		if local == nil {
			stub := models.Customer{
				Name:         f.Name(),
				Email:        f.Email,
				PlexUsername: f.Username,
				PlexUserID:   f.ID,
				Subscribed:   false,
			}
			if _, err := dir.CreateCustomer(ctx, stub); err != nil {
				return out, fmt.Errorf("creating stub for %s: %w", f.Name(), err)
			}
			out.CreatedCount++
			out.UnmatchedRemote = append(out.UnmatchedRemote, f)
			continue
		}

		changed := false
		if local.PlexUserID == "" && f.ID != "" {
			local.PlexUserID = f.ID
			changed = true
		}
		if local.PlexUsername == "" && f.Username != "" {
			local.PlexUsername = f.Username
			changed = true
		}
		if f.Email != "" {
			switch {
			case local.Email == "":
				local.Email = f.Email
				changed = true
			case !strings.EqualFold(local.Email, f.Email):
				slog.Warn("reconcile: email conflict, keeping local value",
					"customer_id", local.ID, "friend", f.Name())
				out.Conflicts = append(out.Conflicts, models.SyncConflict{
					CustomerID:    local.ID,
					CustomerEmail: local.Email,
					FriendName:    f.Name(),
					FriendEmail:   f.Email,
				})
			}
		}
		if changed {
			if err := dir.UpdateCustomer(ctx, *local); err != nil {
				return out, fmt.Errorf("updating customer %d: %w", local.ID, err)
			}
			out.UpdatedCount++
		}
	}
	return out, nil
}

func match(customers []models.Customer, f models.FriendAccount) *models.Customer {
	if f.ID != "" {
		for i := range customers {
			if customers[i].PlexUserID == f.ID {
				return &customers[i]
			}
		}
	}
	if f.Email != "" {
		for i := range customers {
			if customers[i].Email != "" && strings.EqualFold(customers[i].Email, f.Email) {
				return &customers[i]
			}
		}
	}
	if name := f.Name(); name != "" {
		for i := range customers {
			if customers[i].PlexUsername != "" && strings.EqualFold(customers[i].PlexUsername, name) {
				return &customers[i]
			}
		}
	}
	return nil
}
