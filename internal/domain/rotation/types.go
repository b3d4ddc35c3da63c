// Package rotation implements the window-based photo rotation cache: a
// current set of photos refreshed on a fixed time cadence, an overflow queue
// of surplus fetched photos, and a bounded history of everything ever served.
package rotation

import (
	"context"
	"time"
)

// Defaults for the rotation configuration. The window duration is shorter
// than the frontend's 60-minute display cycle so a refresh completes before
// the display rolls over.
const (
	DefaultPhotosPerWindow = 6
	DefaultFetchBatchSize  = 10
	DefaultMaxHistory      = 1440
	DefaultWindowDuration  = 55 * time.Minute
)

// Fetcher supplies batches of random photos from the external supply source.
// On success it should return exactly count photos; a shorter or longer batch
// is tolerated. It must fail atomically, never returning a partial batch
// alongside an error.
type Fetcher interface {
	RandomPhotos(ctx context.Context, count int) ([]Photo, error)
}

// Photo is a single record from the photo supply source. The cache treats it
// as an opaque payload: fields are read for history extraction but never
// validated or mutated.
type Photo struct {
	ID             string     `json:"id"`
	CreatedAt      string     `json:"created_at,omitempty"`
	Width          int        `json:"width,omitempty"`
	Height         int        `json:"height,omitempty"`
	Color          string     `json:"color,omitempty"`
	BlurHash       string     `json:"blur_hash,omitempty"`
	Description    string     `json:"description,omitempty"`
	AltDescription string     `json:"alt_description,omitempty"`
	Likes          int        `json:"likes,omitempty"`
	URLs           PhotoURLs  `json:"urls"`
	Links          PhotoLinks `json:"links"`
	User           *User      `json:"user,omitempty"`
	Exif           *Exif      `json:"exif,omitempty"`
}

// PhotoURLs holds the image URLs at the sizes the supply source renders.
type PhotoURLs struct {
	Raw     string `json:"raw,omitempty"`
	Full    string `json:"full,omitempty"`
	Regular string `json:"regular,omitempty"` // 1080px wide
	Small   string `json:"small,omitempty"`   // 400px wide
	Thumb   string `json:"thumb,omitempty"`   // 200px wide
}

// PhotoLinks holds the canonical web links for a photo.
type PhotoLinks struct {
	Self     string `json:"self,omitempty"`
	HTML     string `json:"html,omitempty"`
	Download string `json:"download,omitempty"`
}

// User is the photo author. Optional on the wire.
type User struct {
	ID           string `json:"id,omitempty"`
	Username     string `json:"username,omitempty"`
	Name         string `json:"name,omitempty"`
	PortfolioURL string `json:"portfolio_url,omitempty"`
}

// Exif is optional camera metadata attached to a photo.
type Exif struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	ExposureTime string `json:"exposure_time,omitempty"`
	Aperture     string `json:"aperture,omitempty"`
	FocalLength  string `json:"focal_length,omitempty"`
	ISO          int    `json:"iso,omitempty"`
}

// HistoryEntry is an immutable summary of a photo at the moment it was
// selected into a current set.
type HistoryEntry struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	ServedAt    time.Time `json:"served_at"`
}

const (
	fallbackDisplayName = "Unknown"
	photoLinkBase       = "https://unsplash.com/photos/"
)

// newHistoryEntry derives a HistoryEntry from a photo. Missing fields degrade
// to fallbacks rather than failing: display name defaults to "Unknown",
// description falls back to the alt text then empty, and the link is
// constructed from the photo ID when the record carries none.
func newHistoryEntry(p Photo, servedAt time.Time) HistoryEntry {
	name := fallbackDisplayName
	if p.User != nil && p.User.Name != "" {
		name = p.User.Name
	}

	desc := p.Description
	if desc == "" {
		desc = p.AltDescription
	}

	link := p.Links.HTML
	if link == "" {
		link = photoLinkBase + p.ID
	}

	return HistoryEntry{
		ID:          p.ID,
		DisplayName: name,
		Description: desc,
		Link:        link,
		ServedAt:    servedAt,
	}
}
