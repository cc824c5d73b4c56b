package plex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"sharesync/internal/httputil"
	"sharesync/internal/models"
)

// legacyShareSignature is the one failure message that routes a share
// request to the legacy endpoint. Any other failure surfaces as-is.
const legacyShareSignature = "must specify an email address or username"

// shareError classifies a rejected share request. The legacy-retry rule
// lives here and nowhere else.
type shareError struct {
	inner *models.ProtocolError
}

func (e *shareError) Error() string { return e.inner.Error() }
func (e *shareError) Unwrap() error { return e.inner }

func (e *shareError) legacyRetryable() bool {
	return strings.Contains(strings.ToLower(e.inner.Message), legacyShareSignature)
}

type shareRequest struct {
	ServerID     string            `json:"server_id"`
	SharedServer shareRequestGrant `json:"shared_server"`
}

type shareRequestGrant struct {
	LibrarySectionIDs []string `json:"library_section_ids"`
	InvitedID         string   `json:"invited_id,omitempty"`
	InvitedUsername   string   `json:"invited_username,omitempty"`
	InvitedEmail      string   `json:"invited_email,omitempty"`
}

// SetShare grants or updates the identified friend's access to the given
// sections on one server. The remote protocol keys the grant on the
// identity+server pair, so repeating a call with the same sections is
// idempotent. Exactly one legacy retry happens, and only when the primary
// endpoint rejects the identity shape with its known signature.
func (c *Client) SetShare(ctx context.Context, machineID string, id models.Identity, sectionIDs []string) error {
	err := c.sharePrimary(ctx, machineID, id, sectionIDs)
	if err == nil {
		return nil
	}
	var se *shareError
	if errors.As(err, &se) && se.legacyRetryable() {
		slog.Debug("plex: primary share endpoint wants email/username, retrying legacy",
			"machine_id", machineID)
		return c.shareLegacy(ctx, machineID, id, sectionIDs)
	}
	return err
}

func (c *Client) sharePrimary(ctx context.Context, machineID string, id models.Identity, sectionIDs []string) error {
	grant := shareRequestGrant{LibrarySectionIDs: sectionIDs}
	switch {
	case id.FriendID != "":
		grant.InvitedID = id.FriendID
	case id.Username != "":
		grant.InvitedUsername = id.Username
	default:
		grant.InvitedEmail = id.Email
	}
	payload, err := json.Marshal(shareRequest{ServerID: machineID, SharedServer: grant})
	if err != nil {
		return fmt.Errorf("encoding share request: %w", err)
	}

	u := c.accountURL + "/api/servers/" + machineID + "/shared_servers"
	req, err := c.newRequest(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doShare(req, u, true)
}

// shareLegacy speaks the older form-encoded invite endpoint. It is never
// retried further; any failure here is final.
func (c *Client) shareLegacy(ctx context.Context, machineID string, id models.Identity, sectionIDs []string) error {
	form := url.Values{}
	if id.Email != "" {
		form.Set("invitedEmail", id.Email)
	}
	if id.Username != "" {
		form.Set("invitedUsername", id.Username)
	}
	form.Set("librarySectionIds", strings.Join(sectionIDs, ","))
	form.Set("machineIdentifier", machineID)

	u := c.accountURL + "/api/v2/shared_servers"
	req, err := c.newRequest(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doShare(req, u, false)
}

// ClearShare revokes the identified friend's grant on one server. A
// friend with no existing grant yields models.ErrNotFound, which callers
// must not treat as success.
func (c *Client) ClearShare(ctx context.Context, machineID string, id models.Identity) error {
	blocks, err := c.sharedServers(ctx, machineID)
	if err != nil {
		return err
	}
	grantID := ""
	for _, block := range blocks {
		if matchesIdentity(block, id) {
			grantID = block.ID
			break
		}
	}
	if grantID == "" {
		return models.ErrNotFound
	}

	u := c.accountURL + "/api/servers/" + machineID + "/shared_servers/" + grantID
	req, err := c.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	resp, err := c.account.Do(req)
	if err != nil {
		return &models.TransportError{URI: u, Err: err}
	}
	defer httputil.DrainBody(resp)
	if resp.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.ProtocolError{Status: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}
	return nil
}

// doShare executes a share request. Protocol failures from the primary
// endpoint come back as *shareError so SetShare can apply the legacy
// gate; legacy failures surface directly as *models.ProtocolError.
func (c *Client) doShare(req *http.Request, uri string, classify bool) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	resp, err := c.account.Do(req)
	if err != nil {
		return &models.TransportError{URI: uri, Err: err}
	}
	defer httputil.DrainBody(resp)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	perr := &models.ProtocolError{Status: resp.StatusCode, Message: readErrorBody(resp.Body)}
	if classify {
		return &shareError{inner: perr}
	}
	return perr
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4<<10))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}
