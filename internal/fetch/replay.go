package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"showdown-tracker/internal/battlelog"
)

// BattleDateLayout is the human-readable form used for a replay's upload date.
const BattleDateLayout = "Jan 2, 2006"

// replayResponse is the JSON document served next to every replay page
type replayResponse struct {
	ID         string           `json:"id"`
	Format     string           `json:"format"`
	FormatID   string           `json:"formatid"`
	Players    []string         `json:"players"`
	Log        battlelog.RawLog `json:"log"`
	UploadTime int64            `json:"uploadtime"`
	Rating     int              `json:"rating"`
}

// CanonicalReplayURL strips the query, fragment, trailing slash and any
// .json/.log suffix from a replay link.
func CanonicalReplayURL(raw string) (string, error) {
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
	u.Path = strings.TrimSuffix(u.Path, ".json")
	u.Path = strings.TrimSuffix(u.Path, ".log")
	if u.Path == "" {
		return "", fmt.Errorf("%w %q: missing replay id", ErrInvalidURL, raw)
	}
	u.RawPath = ""

	return u.String(), nil
}

// FetchReplay downloads a replay's JSON document and converts it to a payload
// ready for battlelog.Parse.
func (c *Client) FetchReplay(ctx context.Context, replayURL string) (*battlelog.RawMatchPayload, error) {
	canonical, err := CanonicalReplayURL(replayURL)
	if err != nil {
		return nil, err
	}

	var resp replayResponse
	if err := c.getJSON(ctx, canonical+".json", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch replay %s: %w", canonical, err)
	}

	return resp.toPayload(canonical), nil
}

func (r replayResponse) toPayload(canonical string) *battlelog.RawMatchPayload {
	payload := &battlelog.RawMatchPayload{
		URL:     canonical,
		Players: r.Players,
		Format:  r.Format,
		Log:     r.Log,
	}
	if payload.Format == "" {
		payload.Format = r.FormatID
	}
	if r.Rating > 0 {
		rating := r.Rating
		payload.Rating = &rating
	}
	if r.UploadTime > 0 {
		payload.BattleDate = time.Unix(r.UploadTime, 0).UTC().Format(BattleDateLayout)
	}
	return payload
}
