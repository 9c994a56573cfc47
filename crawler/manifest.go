package crawler

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/rptriage/rptriage/model"
)

// ManifestOptions controls how WriteManifest renders entries.
type ManifestOptions struct {
	// Relative prints paths relative to the crawl root instead of absolute URLs
	Relative bool
}

// Line renders a single manifest line without the trailing newline.
func (o ManifestOptions) Line(e model.Entry) string {
	target := e.URL
	if o.Relative {
		target = e.Path
	}
	return e.Kind.Tag() + " " + target
}

// WriteManifest writes one "<d|f> <path>" line per entry. No other lines are
// ever written, so the output is safe to grep.
func WriteManifest(w io.Writer, entries []model.Entry, opts ManifestOptions) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, opts.Line(e)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SortEntries orders entries by path. Crawl output is in discovery order,
// which varies between runs.
func SortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
