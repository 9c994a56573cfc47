package history

// This file contains the triage history: an append-only JSON Lines file
// mapping failure fingerprints to earlier classifications.

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rptriage/rptriage/model"
	"github.com/rptriage/rptriage/validate"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// maxLineSize bounds a single record; summaries are short prose.
const maxLineSize = 1 << 20

// Cache is the dedup cache backed by a single JSON Lines file.
// It is meant for a single local writer.
type Cache struct {
	logger zerolog.Logger
	path   string
	now    func() time.Time
}

// New returns a cache stored at path. The file does not need to exist.
func New(logger zerolog.Logger, path string) *Cache {
	return &Cache{
		logger: logger,
		path:   path,
		now:    time.Now,
	}
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// Lookup returns the most recent record for fingerprint. A missing cache file
// is an empty cache; found is false on a miss.
func (c *Cache) Lookup(fingerprint string) (rec model.Classification, found bool, err error) {
	err = c.scan(func(r model.Classification) {
		if r.Fingerprint == fingerprint {
			// later records supersede earlier ones
			rec = r
			found = true
		}
	})
	if err != nil {
		return model.Classification{}, false, err
	}
	return rec, found, nil
}

// Records returns every valid record in file order.
func (c *Cache) Records() ([]model.Classification, error) {
	var records []model.Classification
	if err := c.scan(func(r model.Classification) {
		records = append(records, r)
	}); err != nil {
		return nil, err
	}
	return records, nil
}

// Append validates rec and writes it as one line at the end of the file,
// creating the file and its directory when missing.
func (c *Cache) Append(rec model.Classification) error {
	if err := validate.Fingerprint(rec.Fingerprint); err != nil {
		return err
	}
	if _, err := model.ParseLabel(string(rec.Classification)); err != nil {
		return err
	}
	if strings.TrimSpace(rec.Summary) == "" {
		return fmt.Errorf("%w: summary is empty", model.ErrInvalidInput)
	}
	if rec.Date == "" {
		rec.Date = c.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, rec.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD: %q", model.ErrInvalidInput, rec.Date)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if len(line) > maxLineSize {
		return fmt.Errorf("%w: record is %d bytes, limit is %d", model.ErrInvalidInput, len(line), maxLineSize)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}

	// Record and terminator go out in a single write so a crash never leaves
	// half a line behind.
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}

	c.logger.Debug().
		Str("fingerprint", rec.Fingerprint).
		Str("classification", string(rec.Classification)).
		Str("path", c.path).
		Msg("Appended classification")
	return nil
}

// scan calls fn for each well-formed record. Malformed lines are logged and skipped.
func (c *Cache) scan(fn func(model.Classification)) error {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)

	lineNo := 0
	for {
		raw, tooLong, readErr := readLine(r)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read cache file: %w", readErr)
		}
		if readErr != nil && len(raw) == 0 && !tooLong {
			return nil
		}
		lineNo++

		if tooLong {
			err := fmt.Errorf("%w: line exceeds %d bytes", model.ErrMalformedRecord, maxLineSize)
			c.logger.Warn().Err(err).Str("path", c.path).Int("line", lineNo).Msg("Skipping malformed cache record")
		} else if line := strings.TrimSpace(string(raw)); line != "" {
			rec, err := parseRecord(line)
			if err != nil {
				c.logger.Warn().Err(err).Str("path", c.path).Int("line", lineNo).Msg("Skipping malformed cache record")
			} else {
				fn(rec)
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

// readLine returns the next line including its terminator. A line longer than
// maxLineSize is consumed up to the next newline and reported as tooLong with
// no content.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > maxLineSize {
				tooLong = true
				line = nil
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, readErr
	}
}

// parseRecord decodes one line; the fingerprint is the only field a record
// cannot do without.
func parseRecord(line string) (model.Classification, error) {
	var rec model.Classification
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", model.ErrMalformedRecord, err)
	}
	if rec.Fingerprint == "" {
		return model.Classification{}, fmt.Errorf("%w: missing fingerprint", model.ErrMalformedRecord)
	}
	return rec, nil
}
