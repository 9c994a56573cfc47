package cli

// This file contains the cache commands for looking up, adding and listing
// classifications of earlier failures.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rptriage/rptriage/model"
	"github.com/rptriage/rptriage/validate"
	"github.com/urfave/cli/v2"
)

// minPrefixLen is the shortest fingerprint prefix accepted by cache lookup.
const minPrefixLen = 8

func (a *App) cacheLookup(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	arg := strings.TrimSpace(ctx.Args().First())
	cache := a.cache()

	// Full fingerprints take the fast path through Lookup.
	if validate.Fingerprint(arg) == nil {
		rec, found, err := cache.Lookup(arg)
		if err != nil {
			return err
		}
		if !found {
			a.logger.Info().Str("fingerprint", arg).Str("cache", cache.Path()).Msg("No cached classification")
			return nil
		}
		return a.writeJSON(rec)
	}

	records, err := cache.Records()
	if err != nil {
		return err
	}

	rec, found, err := resolveRecord(newestFirst(records), arg)
	if err != nil {
		return err
	}
	if !found {
		a.logger.Info().Str("fingerprint", arg).Str("cache", cache.Path()).Msg("No cached classification")
		return nil
	}
	return a.writeJSON(rec)
}

// resolveRecord finds a record in a newest first list either by index
// (0 for the newest, -1 for the one before, ...) or by fingerprint prefix.
func resolveRecord(records []model.Classification, arg string) (model.Classification, bool, error) {
	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return model.Classification{}, false, fmt.Errorf("%w: invalid index: %s (use 0 for the newest record, -1 for the one before, etc.)", model.ErrInvalidInput, arg)
		}
		index := int(-parsed)
		if index >= len(records) {
			return model.Classification{}, false, nil
		}
		return records[index], true, nil
	}

	prefix := strings.ToLower(arg)
	if len(prefix) < minPrefixLen {
		return model.Classification{}, false, fmt.Errorf("%w: fingerprint prefix %q is too short, need at least %d characters", model.ErrInvalidInput, arg, minPrefixLen)
	}
	for _, rec := range records {
		if strings.HasPrefix(rec.Fingerprint, prefix) {
			return rec, true, nil
		}
	}
	return model.Classification{}, false, nil
}

// newestFirst reverses the file order; later records supersede earlier ones.
func newestFirst(records []model.Classification) []model.Classification {
	out := make([]model.Classification, len(records))
	for i, rec := range records {
		out[len(records)-1-i] = rec
	}
	return out
}

func (a *App) cacheAdd(ctx *cli.Context) error {
	label, err := model.ParseLabel(ctx.String("classification"))
	if err != nil {
		return err
	}

	rec := model.Classification{
		Fingerprint:    strings.TrimSpace(ctx.String("fingerprint")),
		Classification: label,
		Summary:        strings.TrimSpace(ctx.String("summary")),
		Source:         strings.TrimSpace(ctx.String("source")),
	}

	cache := a.cache()
	if err := cache.Append(rec); err != nil {
		return fmt.Errorf("failed to add classification: %w", err)
	}

	a.logger.Info().
		Str("fingerprint", rec.Fingerprint).
		Str("classification", string(rec.Classification)).
		Str("cache", cache.Path()).
		Msg("Classification cached")
	return nil
}

func (a *App) cacheList(ctx *cli.Context) error {
	limit := ctx.Int("limit")

	var filter model.Label
	if s := ctx.String("classification"); s != "" {
		label, err := model.ParseLabel(s)
		if err != nil {
			return err
		}
		filter = label
	}

	records, err := a.cache().Records()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	shown := 0
	for _, rec := range newestFirst(records) {
		if filter != "" && rec.Classification != filter {
			continue
		}
		if limit > 0 && shown >= limit {
			break
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		shown++
	}

	a.logger.Debug().Int("shown", shown).Int("total", len(records)).Msg("Listed cache")
	return nil
}
