package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"showdown-tracker/internal/pokepaste"
)

// Paste is a team export fetched from a paste-sharing site
type Paste struct {
	URL    string         `json:"url"`
	Title  string         `json:"title"`
	Author string         `json:"author"`
	Notes  string         `json:"notes"`
	Raw    string         `json:"paste"`
	Team   pokepaste.Team `json:"team"`
}

type pasteResponse struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Notes  string `json:"notes"`
	Paste  string `json:"paste"`
}

// CanonicalPasteURL strips the query, fragment, trailing slash and any /json
// or /raw suffix from a paste link.
func CanonicalPasteURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w %q: must be an absolute http(s) URL", ErrInvalidURL, raw)
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Path = strings.TrimSuffix(u.Path, "/json")
	u.Path = strings.TrimSuffix(u.Path, "/raw")
	if u.Path == "" {
		return "", fmt.Errorf("%w %q: missing paste id", ErrInvalidURL, raw)
	}
	u.RawPath = ""

	return u.String(), nil
}

// FetchPaste downloads a paste's JSON view and parses the team it contains.
func (c *Client) FetchPaste(ctx context.Context, pasteURL string) (*Paste, error) {
	canonical, err := CanonicalPasteURL(pasteURL)
	if err != nil {
		return nil, err
	}

	var resp pasteResponse
	if err := c.getJSON(ctx, canonical+"/json", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch paste %s: %w", canonical, err)
	}

	return &Paste{
		URL:    canonical,
		Title:  strings.TrimSpace(resp.Title),
		Author: strings.TrimSpace(resp.Author),
		Notes:  resp.Notes,
		Raw:    resp.Paste,
		Team:   pokepaste.Parse(resp.Paste),
	}, nil
}
