package rp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rptriage/rptriage/model"
	"github.com/rptriage/rptriage/validate"
)

const (
	launchesMarker = "launches/"
	logMarker      = "log"
)

// Locator identifies one test item in the Report Portal UI, e.g.
// https://rp.example.com/ui/#ocs/launches/all/12345/67890/67891/log
type Locator struct {
	// scheme://host of the Report Portal instance
	BaseURL  string
	LaunchID string
	ItemID   string
	// The link the locator was parsed from
	Raw string
}

// ParseLocator validates a Report Portal test page link and extracts the
// launch and item IDs. It never touches the network.
func ParseLocator(raw string) (Locator, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, launchesMarker) || !strings.Contains(raw, logMarker) {
		return Locator{}, fmt.Errorf("%w: expected a Report Portal test page URL containing %q and %q", model.ErrInvalidInput, launchesMarker, logMarker)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Locator{}, fmt.Errorf("%w: invalid URL: %v", model.ErrInvalidInput, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Locator{}, fmt.Errorf("%w: expected an http(s) URL: %q", model.ErrInvalidInput, raw)
	}

	// The UI keeps its route in the fragment; take everything after the marker.
	rest := raw[strings.Index(raw, launchesMarker)+len(launchesMarker):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	segments := strings.Split(strings.Trim(rest, "/"), "/")

	// segments: <filter>/<launch id>/<item ids...>/log
	if len(segments) < 4 {
		return Locator{}, fmt.Errorf("%w: URL lacks launch and item IDs: %q", model.ErrInvalidInput, raw)
	}
	launchID := segments[1]
	itemID := segments[3]
	for i := len(segments) - 1; i >= 3; i-- {
		if segments[i] == logMarker {
			itemID = segments[i-1]
			break
		}
	}

	if err := validate.Numeric("launch id", launchID); err != nil {
		return Locator{}, err
	}
	if err := validate.Numeric("item id", itemID); err != nil {
		return Locator{}, err
	}

	return Locator{
		BaseURL:  u.Scheme + "://" + u.Host,
		LaunchID: launchID,
		ItemID:   itemID,
		Raw:      raw,
	}, nil
}
