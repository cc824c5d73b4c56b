package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sharesync/internal/models"
)

func newTestClient(t *testing.T, accountURL string) *Client {
	t.Helper()
	c, err := New("test-token", WithAccountURL(accountURL))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(""); err != models.ErrNoToken {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestResolvePicksPublicOverLocal(t *testing.T) {
	resourcesXML := `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
  <Device name="home" provides="server" clientIdentifier="M1" owned="1">
    <Connection uri="https://a" public="1"/>
    <Connection uri="https://b" local="1"/>
  </Device>
</MediaContainer>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != "test-token" {
			t.Error("missing plex token header")
		}
		if r.URL.Path != "/api/resources" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(resourcesXML))
	}))
	defer ts.Close()

	res, err := newTestClient(t, ts.URL).Resolve(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.ChosenURI != "https://a" {
		t.Fatalf("chosen = %q, want https://a", res.ChosenURI)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
	}
	if res.Candidates[0].Score != 3 || res.Candidates[1].Score != 2 {
		t.Fatalf("scores = %d,%d, want 3,2", res.Candidates[0].Score, res.Candidates[1].Score)
	}
}

func TestResolveTieBreaksByDiscoveryOrder(t *testing.T) {
	resourcesXML := `<MediaContainer size="2">
  <Device name="one" provides="server" clientIdentifier="M1" owned="1">
    <Connection uri="https://first" local="1"/>
  </Device>
  <Device name="two" provides="server" clientIdentifier="M2" owned="1">
    <Connection uri="https://second" local="1"/>
  </Device>
</MediaContainer>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resourcesXML))
	}))
	defer ts.Close()

	res, err := newTestClient(t, ts.URL).Resolve(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.ChosenURI != "https://first" {
		t.Fatalf("chosen = %q, want https://first", res.ChosenURI)
	}
}

func TestResolveFiltersUnownedAndNonServer(t *testing.T) {
	resourcesXML := `<MediaContainer size="3">
  <Device name="player" provides="client" clientIdentifier="C1" owned="1">
    <Connection uri="https://client" public="1"/>
  </Device>
  <Device name="borrowed" provides="server" clientIdentifier="M1" owned="0">
    <Connection uri="https://borrowed" public="1"/>
  </Device>
  <Device name="mine" provides="server,client" clientIdentifier="M2" owned="1">
    <Connection uri="https://mine" relay="1"/>
  </Device>
</MediaContainer>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resourcesXML))
	}))
	defer ts.Close()

	res, err := newTestClient(t, ts.URL).Resolve(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.ChosenURI != "https://mine" {
		t.Fatalf("chosen = %q, want https://mine", res.ChosenURI)
	}
	if res.Candidates[0].Score != 0 {
		t.Fatalf("relay score = %d, want 0", res.Candidates[0].Score)
	}
}

func TestResolveNoOwnedServers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<MediaContainer size="0"></MediaContainer>`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Resolve(context.Background(), "")
	var de *models.DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DiscoveryError, got %v", err)
	}
}

func TestResolvePreferredURIBypassesDiscovery(t *testing.T) {
	var discoveryCalls atomic.Int32
	account := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		discoveryCalls.Add(1)
		w.Write([]byte(`<MediaContainer size="0"></MediaContainer>`))
	}))
	defer account.Close()

	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identity" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`<MediaContainer machineIdentifier="M1"/>`))
	}))
	defer direct.Close()

	res, err := newTestClient(t, account.URL).Resolve(context.Background(), direct.URL)
	if err != nil {
		t.Fatal(err)
	}
	if res.ChosenURI != direct.URL {
		t.Fatalf("chosen = %q, want %q", res.ChosenURI, direct.URL)
	}
	if n := discoveryCalls.Load(); n != 0 {
		t.Fatalf("discovery ran %d times, want 0", n)
	}
}

func TestResolvePreferredURIFailureFallsBackToDiscovery(t *testing.T) {
	account := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<MediaContainer size="1">
  <Device name="home" provides="server" clientIdentifier="M1" owned="1">
    <Connection uri="https://discovered" public="1"/>
  </Device>
</MediaContainer>`))
	}))
	defer account.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	res, err := newTestClient(t, account.URL).Resolve(context.Background(), dead.URL)
	if err != nil {
		t.Fatal(err)
	}
	if res.ChosenURI != "https://discovered" {
		t.Fatalf("chosen = %q, want https://discovered", res.ChosenURI)
	}
}

func TestResolveAccountHostNeverUsedAsDirect(t *testing.T) {
	account := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/identity" {
			t.Error("account host was probed as a direct server")
		}
		w.Write([]byte(`<MediaContainer size="1">
  <Device name="home" provides="server" clientIdentifier="M1" owned="1">
    <Connection uri="https://discovered" local="1"/>
  </Device>
</MediaContainer>`))
	}))
	defer account.Close()

	res, err := newTestClient(t, account.URL).Resolve(context.Background(), account.URL)
	if err != nil {
		t.Fatal(err)
	}
	if res.ChosenURI != "https://discovered" {
		t.Fatalf("chosen = %q, want https://discovered", res.ChosenURI)
	}
}

func TestProbeBestPrefersReachableByScore(t *testing.T) {
	reachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<MediaContainer machineIdentifier="M1"/>`))
	}))
	defer reachable.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	candidates := []models.ConnectionCandidate{
		{URI: dead.URL, Public: true, Score: 3},
		{URI: reachable.URL, Local: true, Score: 2},
	}
	c := newTestClient(t, "http://unused.invalid")
	uri, err := c.ProbeBest(context.Background(), candidates)
	if err != nil {
		t.Fatal(err)
	}
	if uri != reachable.URL {
		t.Fatalf("probed = %q, want %q", uri, reachable.URL)
	}
}

func TestProbeBestAllUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	c := newTestClient(t, "http://unused.invalid")
	_, err := c.ProbeBest(context.Background(), []models.ConnectionCandidate{{URI: dead.URL, Score: 3}})
	var te *models.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
