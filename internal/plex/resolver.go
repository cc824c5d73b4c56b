package plex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"sharesync/internal/httputil"
	"sharesync/internal/models"
)

// Resolution is the outcome of connection resolution. Candidates holds
// the full ranked list so a caller whose use of ChosenURI fails can walk
// the remaining candidates without re-running discovery.
type Resolution struct {
	ChosenURI  string                       `json:"chosen_uri"`
	Candidates []models.ConnectionCandidate `json:"candidates"`
}

type resourceContainer struct {
	Devices []resourceDevice `xml:"Device"`
}

type resourceDevice struct {
	Name        string               `xml:"name,attr"`
	Provides    string               `xml:"provides,attr"`
	MachineID   string               `xml:"clientIdentifier,attr"`
	Owned       string               `xml:"owned,attr"`
	Connections []resourceConnection `xml:"Connection"`
}

type resourceConnection struct {
	URI    string `xml:"uri,attr"`
	Local  string `xml:"local,attr"`
	Relay  string `xml:"relay,attr"`
	Public string `xml:"public,attr"`
}

// Resolve discovers the account's owned server devices and picks the
// best network path. A preferred direct URI, when supplied and not the
// generic account host, is probed first and bypasses discovery entirely;
// discovery runs only if that probe fails.
func (c *Client) Resolve(ctx context.Context, preferredDirectURI string) (*Resolution, error) {
	if preferredDirectURI != "" && !c.isAccountHost(preferredDirectURI) {
		err := c.probe(ctx, preferredDirectURI)
		if err == nil {
			return &Resolution{
				ChosenURI:  preferredDirectURI,
				Candidates: []models.ConnectionCandidate{{URI: preferredDirectURI, Score: scorePublic}},
			}, nil
		}
		slog.Debug("plex: preferred uri unreachable, running discovery", "uri", preferredDirectURI, "error", err)
	}

	devices, err := c.ownedServers(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, &models.DiscoveryError{}
	}

	var candidates []models.ConnectionCandidate
	for _, d := range devices {
		candidates = append(candidates, d.Candidates...)
	}
	if len(candidates) == 0 {
		return nil, &models.DiscoveryError{Detail: "owned servers advertise no connections"}
	}
	rankCandidates(candidates)
	return &Resolution{ChosenURI: candidates[0].URI, Candidates: candidates}, nil
}

// Devices lists the account's server devices, owned and shared alike.
// Candidate scores are filled in but the list is left in discovery order.
func (c *Client) Devices(ctx context.Context) ([]models.ServerDevice, error) {
	body, err := c.accountGet(ctx, "/api/resources?includeHttps=1&includeRelay=1&includeManaged=1")
	if err != nil {
		return nil, err
	}
	return parseResources(body)
}

func (c *Client) ownedServers(ctx context.Context) ([]models.ServerDevice, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	owned := devices[:0]
	for _, d := range devices {
		if d.Owned {
			owned = append(owned, d)
		}
	}
	return owned, nil
}

// serverBaseURI resolves the best-ranked connection for one specific
// machine identifier.
func (c *Client) serverBaseURI(ctx context.Context, machineID string) (string, error) {
	devices, err := c.ownedServers(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.MachineID != machineID {
			continue
		}
		if len(d.Candidates) == 0 {
			return "", &models.DiscoveryError{Detail: "server " + machineID + " advertises no connections"}
		}
		ranked := append([]models.ConnectionCandidate(nil), d.Candidates...)
		rankCandidates(ranked)
		return ranked[0].URI, nil
	}
	return "", &models.DiscoveryError{Detail: "server " + machineID + " not found"}
}

// ProbeBest checks every candidate's /identity endpoint in parallel and
// returns the highest-scoring reachable URI. When all candidates are
// reachable the result matches the scoring-based winner.
func (c *Client) ProbeBest(ctx context.Context, candidates []models.ConnectionCandidate) (string, error) {
	if len(candidates) == 0 {
		return "", &models.DiscoveryError{Detail: "no candidates to probe"}
	}
	reachable := make([]bool, len(candidates))
	var g errgroup.Group
	for i := range candidates {
		i := i
		g.Go(func() error {
			reachable[i] = c.probe(ctx, candidates[i].URI) == nil
			return nil
		})
	}
	g.Wait()

	best := -1
	for i, cc := range candidates {
		if reachable[i] && (best == -1 || cc.Score > candidates[best].Score) {
			best = i
		}
	}
	if best == -1 {
		return "", &models.TransportError{URI: candidates[0].URI, Err: errors.New("no connection candidate reachable")}
	}
	return candidates[best].URI, nil
}

// probe checks that a base URI answers its identity endpoint.
func (c *Client) probe(ctx context.Context, baseURI string) error {
	req, err := c.newRequest(ctx, http.MethodGet, baseURI+"/identity", nil)
	if err != nil {
		return err
	}
	resp, err := c.server.Do(req)
	if err != nil {
		return &models.TransportError{URI: baseURI, Err: err}
	}
	defer httputil.DrainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return &models.ProtocolError{Status: resp.StatusCode}
	}
	return nil
}

const (
	scoreRelay  = 0
	scoreRemote = 1
	scoreLocal  = 2
	scorePublic = 3
)

func scoreCandidate(cc models.ConnectionCandidate) int {
	switch {
	case cc.Public:
		return scorePublic
	case cc.Local && !cc.Relay:
		return scoreLocal
	case !cc.Relay:
		return scoreRemote
	default:
		return scoreRelay
	}
}

// rankCandidates orders by score descending; ties keep discovery order,
// so the first-seen candidate wins.
func rankCandidates(candidates []models.ConnectionCandidate) {
	for i := range candidates {
		candidates[i].Score = scoreCandidate(candidates[i])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

func parseResources(body []byte) ([]models.ServerDevice, error) {
	var rc resourceContainer
	if err := xml.Unmarshal(body, &rc); err != nil {
		return nil, fmt.Errorf("parsing resources: %w", err)
	}
	devices := make([]models.ServerDevice, 0, len(rc.Devices))
	for _, d := range rc.Devices {
		if !strings.Contains(d.Provides, "server") {
			continue
		}
		dev := models.ServerDevice{
			Name:      d.Name,
			MachineID: d.MachineID,
			Owned:     d.Owned == "1",
		}
		for _, conn := range d.Connections {
			if conn.URI == "" {
				continue
			}
			dev.Candidates = append(dev.Candidates, models.ConnectionCandidate{
				URI:    conn.URI,
				Local:  conn.Local == "1",
				Relay:  conn.Relay == "1",
				Public: conn.Public == "1",
			})
		}
		devices = append(devices, dev)
	}
	return devices, nil
}
