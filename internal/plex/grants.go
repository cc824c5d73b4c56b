package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"sharesync/internal/models"
)

type sharedServersContainer struct {
	MachineID     string         `xml:"machineIdentifier,attr"`
	SharedServers []sharedServer `xml:"SharedServer"`
}

// sharedServer is one grant block: a single friend plus either an
// explicit section list or the all-libraries flag.
type sharedServer struct {
	ID           string          `xml:"id,attr"`
	UserID       string          `xml:"userID,attr"`
	Username     string          `xml:"username,attr"`
	Email        string          `xml:"email,attr"`
	AllLibraries string          `xml:"allLibraries,attr"`
	Sections     []sharedSection `xml:"Section"`
}

type sharedSection struct {
	ID     string `xml:"id,attr"`
	Key    string `xml:"key,attr"`
	Title  string `xml:"title,attr"`
	Shared string `xml:"shared,attr"`
}

func (s sharedServer) allLibraries() bool { return s.AllLibraries == "1" }

// sectionIDs returns the server-side section ids granted by this block.
// The key attribute carries the server section id; id is a fallback for
// older servers that omit it.
func (s sharedServer) sectionIDs() []string {
	ids := make([]string, 0, len(s.Sections))
	for _, sec := range s.Sections {
		if sec.Shared == "0" {
			continue
		}
		switch {
		case sec.Key != "":
			ids = append(ids, sec.Key)
		case sec.ID != "":
			ids = append(ids, sec.ID)
		}
	}
	return ids
}

// matchesIdentity applies the dual match rule: some friends are shared
// by username only and some callers only know the friend's email, so the
// email is also compared against the block's username.
func matchesIdentity(block sharedServer, id models.Identity) bool {
	if id.Email != "" && block.Email != "" && strings.EqualFold(block.Email, id.Email) {
		return true
	}
	if block.Username != "" {
		if id.Username != "" && strings.EqualFold(block.Username, id.Username) {
			return true
		}
		if id.Email != "" && strings.EqualFold(block.Username, id.Email) {
			return true
		}
	}
	return false
}

func (c *Client) sharedServers(ctx context.Context, machineID string) ([]sharedServer, error) {
	body, err := c.accountGet(ctx, "/api/servers/"+machineID+"/shared_servers")
	if err != nil {
		return nil, err
	}
	var sc sharedServersContainer
	if err := xml.Unmarshal(body, &sc); err != nil {
		return nil, fmt.Errorf("parsing shared servers for %s: %w", machineID, err)
	}
	return sc.SharedServers, nil
}

// ResolveShare determines which sections the identified friend currently
// has on the first of machineIDs that carries a grant for them. A grant
// with zero sections returns an empty slice; no grant on any machine
// returns models.ErrNotFound. The two outcomes are never conflated.
// An all-libraries grant is expanded to the concrete section ids of that
// same server before being returned.
func (c *Client) ResolveShare(ctx context.Context, machineIDs []string, id models.Identity) ([]string, error) {
	for _, mid := range machineIDs {
		blocks, err := c.sharedServers(ctx, mid)
		if err != nil {
			return nil, err
		}
		for _, block := range blocks {
			if !matchesIdentity(block, id) {
				continue
			}
			if block.allLibraries() {
				return c.allSectionIDs(ctx, mid)
			}
			return block.sectionIDs(), nil
		}
	}
	return nil, models.ErrNotFound
}

// allSectionIDs expands the all-libraries flag against the section set
// currently known for the given server.
func (c *Client) allSectionIDs(ctx context.Context, machineID string) ([]string, error) {
	baseURI, err := c.serverBaseURI(ctx, machineID)
	if err != nil {
		return nil, err
	}
	libs, err := c.Libraries(ctx, baseURI)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(libs.Sections))
	for _, s := range libs.Sections {
		ids = append(ids, s.ID)
	}
	return ids, nil
}
