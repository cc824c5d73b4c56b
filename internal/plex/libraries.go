package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sharesync/internal/httputil"
	"sharesync/internal/models"
)

// Libraries is a server's section listing plus its machine identifier.
// MachineID may be empty; not every server version reports it and not
// every caller needs it.
type Libraries struct {
	Sections  []models.LibrarySection `json:"sections"`
	MachineID string                  `json:"machine_id,omitempty"`
}

type sectionsContainer struct {
	MachineID   string             `xml:"machineIdentifier,attr"`
	Directories []sectionDirectory `xml:"Directory"`
}

type sectionDirectory struct {
	Key   string `xml:"key,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// Libraries lists the library sections at baseURI. A zero-section result
// is valid; malformed section records are skipped rather than failing
// the whole call.
func (c *Client) Libraries(ctx context.Context, baseURI string) (*Libraries, error) {
	baseURI = strings.TrimRight(baseURI, "/")
	u := baseURI + "/library/sections"
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.server.Do(req)
	if err != nil {
		return nil, &models.TransportError{URI: baseURI, Err: err}
	}
	defer httputil.DrainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, &models.ProtocolError{Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxResponseBody))
	if err != nil {
		return nil, &models.TransportError{URI: baseURI, Err: err}
	}

	var sc sectionsContainer
	if err := xml.Unmarshal(body, &sc); err != nil {
		return nil, fmt.Errorf("parsing library sections: %w", err)
	}

	libs := &Libraries{
		Sections:  make([]models.LibrarySection, 0, len(sc.Directories)),
		MachineID: sc.MachineID,
	}
	for _, dir := range sc.Directories {
		if dir.Key == "" {
			continue
		}
		libs.Sections = append(libs.Sections, models.LibrarySection{
			ID:        dir.Key,
			Title:     dir.Title,
			MediaType: dir.Type,
		})
	}
	return libs, nil
}
