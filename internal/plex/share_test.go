package plex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sharesync/internal/models"
)

func TestSetShareLegacyFallbackOnSignature(t *testing.T) {
	var legacyCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/servers/M1/shared_servers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("You must specify an email address or username"))
	})
	mux.HandleFunc("/api/v2/shared_servers", func(w http.ResponseWriter, r *http.Request) {
		legacyCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("invitedEmail"); got != "bob@x.com" {
			t.Errorf("invitedEmail = %q, want bob@x.com", got)
		}
		if got := r.PostForm.Get("librarySectionIds"); got != "1,2" {
			t.Errorf("librarySectionIds = %q, want 1,2", got)
		}
		if got := r.PostForm.Get("machineIdentifier"); got != "M1" {
			t.Errorf("machineIdentifier = %q, want M1", got)
		}
		w.WriteHeader(http.StatusOK)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	err := newTestClient(t, ts.URL).SetShare(context.Background(), "M1",
		models.Identity{Email: "bob@x.com"}, []string{"1", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if n := legacyCalls.Load(); n != 1 {
		t.Fatalf("legacy endpoint called %d times, want exactly 1", n)
	}
}

func TestSetShareNoFallbackOnOtherErrors(t *testing.T) {
	var legacyCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/servers/M1/shared_servers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("you do not own this server"))
	})
	mux.HandleFunc("/api/v2/shared_servers", func(w http.ResponseWriter, r *http.Request) {
		legacyCalls.Add(1)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	err := newTestClient(t, ts.URL).SetShare(context.Background(), "M1",
		models.Identity{Email: "bob@x.com"}, []string{"1"})
	var pe *models.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if pe.Status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", pe.Status)
	}
	if pe.Message != "you do not own this server" {
		t.Fatalf("message = %q", pe.Message)
	}
	if n := legacyCalls.Load(); n != 0 {
		t.Fatalf("legacy endpoint called %d times, want 0", n)
	}
}

func TestSetSharePrefersFriendID(t *testing.T) {
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := newTestClient(t, ts.URL).SetShare(context.Background(), "M1",
		models.Identity{FriendID: "42", Username: "bob", Email: "bob@x.com"}, []string{"1", "2"})
	if err != nil {
		t.Fatal(err)
	}

	var req shareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatal(err)
	}
	if req.ServerID != "M1" {
		t.Errorf("server_id = %q, want M1", req.ServerID)
	}
	if req.SharedServer.InvitedID != "42" {
		t.Errorf("invited_id = %q, want 42", req.SharedServer.InvitedID)
	}
	if req.SharedServer.InvitedUsername != "" || req.SharedServer.InvitedEmail != "" {
		t.Error("username/email must be omitted when friend id is known")
	}
	if len(req.SharedServer.LibrarySectionIDs) != 2 {
		t.Errorf("section ids = %v, want 2 entries", req.SharedServer.LibrarySectionIDs)
	}
}

func TestSetShareFallsBackToUsernameThenEmail(t *testing.T) {
	var grants []shareRequestGrant
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req shareRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatal(err)
		}
		grants = append(grants, req.SharedServer)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	if err := c.SetShare(context.Background(), "M1", models.Identity{Username: "bob", Email: "bob@x.com"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SetShare(context.Background(), "M1", models.Identity{Email: "bob@x.com"}, nil); err != nil {
		t.Fatal(err)
	}

	if grants[0].InvitedUsername != "bob" || grants[0].InvitedEmail != "" {
		t.Errorf("first grant = %+v, want username only", grants[0])
	}
	if grants[1].InvitedEmail != "bob@x.com" || grants[1].InvitedUsername != "" {
		t.Errorf("second grant = %+v, want email only", grants[1])
	}
}

func TestShareErrorClassification(t *testing.T) {
	retryable := &shareError{inner: &models.ProtocolError{
		Status:  400,
		Message: `{"error":"You MUST Specify an Email Address or Username"}`,
	}}
	if !retryable.legacyRetryable() {
		t.Error("signature match should be case-insensitive")
	}

	fatal := &shareError{inner: &models.ProtocolError{Status: 400, Message: "invalid section id"}}
	if fatal.legacyRetryable() {
		t.Error("unrelated failures must not trigger the legacy fallback")
	}
}

func TestClearShare(t *testing.T) {
	var deleted atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/servers/M1/shared_servers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<MediaContainer>
  <SharedServer id="99" username="bob" email="bob@x.com">
    <Section id="100" key="1" shared="1"/>
  </SharedServer>
</MediaContainer>`))
	})
	mux.HandleFunc("/api/servers/M1/shared_servers/99", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		deleted.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	if err := c.ClearShare(context.Background(), "M1", models.Identity{Email: "bob@x.com"}); err != nil {
		t.Fatal(err)
	}
	if deleted.Load() != 1 {
		t.Fatal("expected one delete request")
	}

	err := c.ClearShare(context.Background(), "M1", models.Identity{Email: "nobody@x.com"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing grant, got %v", err)
	}
	if deleted.Load() != 1 {
		t.Fatal("missing grant must not issue a delete")
	}
}
