package plex

import (
	"context"
	"encoding/xml"
	"log/slog"

	"sharesync/internal/models"
)

type usersContainer struct {
	Users []userRecord `xml:"User"`
}

type userRecord struct {
	ID       string `xml:"id,attr"`
	Title    string `xml:"title,attr"`
	Username string `xml:"username,attr"`
	Email    string `xml:"email,attr"`
	Thumb    string `xml:"thumb,attr"`
}

// Friends lists the accounts the token-holder has a sharing relationship
// with. An empty or unparseable listing yields an empty slice, not an
// error: "no friends" is a legitimate terminal state for reconciliation.
func (c *Client) Friends(ctx context.Context) ([]models.FriendAccount, error) {
	body, err := c.accountGet(ctx, "/api/users")
	if err != nil {
		return nil, err
	}

	var uc usersContainer
	if err := xml.Unmarshal(body, &uc); err != nil {
		slog.Warn("plex: unparseable friends listing, treating as empty", "error", err)
		return []models.FriendAccount{}, nil
	}

	friends := make([]models.FriendAccount, 0, len(uc.Users))
	for _, u := range uc.Users {
		friends = append(friends, models.FriendAccount{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Title:    u.Title,
			ThumbURL: u.Thumb,
		})
	}
	return friends, nil
}
