package models

import "time"

// ServerDevice is one media server registered to the plex.tv account.
// Owned distinguishes the account's own servers from servers merely
// shared with it.
type ServerDevice struct {
	Name       string                `json:"name"`
	MachineID  string                `json:"machine_id"`
	Owned      bool                  `json:"owned"`
	Candidates []ConnectionCandidate `json:"candidates,omitempty"`
}

// ConnectionCandidate is one network path to a server device. Score is
// filled in by the resolver: public=3, local=2, remote=1, relay=0.
type ConnectionCandidate struct {
	URI    string `json:"uri"`
	Local  bool   `json:"local"`
	Relay  bool   `json:"relay"`
	Public bool   `json:"public"`
	Score  int    `json:"score"`
}

type LibrarySection struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	MediaType string `json:"media_type"`
}

// FriendAccount is a remote account with a sharing relationship to the
// token-holder. Email and Username are optional; some accounts carry
// only a display title.
type FriendAccount struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Title    string `json:"title"`
	ThumbURL string `json:"thumb_url,omitempty"`
}

// Name falls back to the display title when the account has no username.
func (f FriendAccount) Name() string {
	if f.Username != "" {
		return f.Username
	}
	return f.Title
}

// Identity names a friend for share operations. Any subset of fields may
// be set; matching is case-insensitive and never assumes email is present.
type Identity struct {
	FriendID string `json:"friend_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Customer is the reseller's local record of a subscriber.
type Customer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	PlexUsername string    `json:"plex_username,omitempty"`
	PlexUserID   string    `json:"plex_user_id,omitempty"`
	Subscribed   bool      `json:"subscribed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SyncOutcome summarizes one reconciliation pass. UnmatchedRemote echoes
// the friends that produced stub customers, for operator review.
type SyncOutcome struct {
	CreatedCount    int             `json:"created_count"`
	UpdatedCount    int             `json:"updated_count"`
	UnmatchedRemote []FriendAccount `json:"unmatched_remote"`
	Conflicts       []SyncConflict  `json:"conflicts"`
}

// SyncConflict records a matched customer whose stored email differs from
// the friend's. Resolution is left to the operator; reconciliation never
// overwrites a non-empty email.
type SyncConflict struct {
	CustomerID    int64  `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	FriendName    string `json:"friend_name"`
	FriendEmail   string `json:"friend_email"`
}
