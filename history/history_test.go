package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rptriage/rptriage/fingerprint"
	"github.com/rptriage/rptriage/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(zerolog.Nop(), filepath.Join(t.TempDir(), "nested", "history.jsonl"))
	c.now = func() time.Time { return time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestLookupMissingFile(t *testing.T) {
	c := newTestCache(t)

	rec, found, err := c.Lookup(fingerprint.Compute("anything"))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, model.Classification{}, rec)

	records, err := c.Records()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestAppendThenLookup(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Compute("AssertionError: expected 3 replicas")

	err := c.Append(model.Classification{
		Fingerprint:    fp,
		Classification: model.LabelProductBug,
		Summary:        "OSD pods never reach Running",
		Source:         "https://rp.example.com/ui/#ocs/launches/all/100/200/log",
	})
	require.NoError(t, err)

	rec, found, err := c.Lookup(fp)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, fp, rec.Fingerprint)
	require.Equal(t, model.LabelProductBug, rec.Classification)
	require.Equal(t, "2026-02-19", rec.Date)

	_, found, err = c.Lookup(fingerprint.Compute("something else"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestLookupLastMatchWins(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Compute("TimeoutExpiredError")

	require.NoError(t, c.Append(model.Classification{Fingerprint: fp, Classification: model.LabelSystemIssue, Summary: "first", Date: "2026-01-01"}))
	require.NoError(t, c.Append(model.Classification{Fingerprint: fp, Classification: model.LabelAutomationBug, Summary: "second", Date: "2026-01-02"}))

	rec, found, err := c.Lookup(fp)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "second", rec.Summary)
	require.Equal(t, model.LabelAutomationBug, rec.Classification)

	records, err := c.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "first", records[0].Summary)
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Compute("boom")

	require.NoError(t, os.MkdirAll(filepath.Dir(c.Path()), 0700))
	content := strings.Join([]string{
		`{"fingerprint": "truncated`,
		`not json at all`,
		`{"classification": "product_bug"}`,
		``,
		`{"fingerprint":"` + fp + `","classification":"system_issue","summary":"ok","date":"2026-02-01","source":""}`,
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(c.Path(), []byte(content), 0600))

	rec, found, err := c.Lookup(fp)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ok", rec.Summary)

	records, err := c.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestOversizedLinesAreSkipped(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Compute("boom")
	valid := `{"fingerprint":"` + fp + `","classification":"system_issue","summary":"ok","date":"2026-02-01","source":""}`

	tests := []struct {
		name     string
		oversize string
	}{
		{name: "plain text", oversize: strings.Repeat("x", 2<<20)},
		{name: "record with huge summary", oversize: `{"fingerprint":"` + fp + `","classification":"product_bug","summary":"` + strings.Repeat("a", 2<<20) + `"}`},
		{name: "just over the limit", oversize: strings.Repeat("y", maxLineSize+1)},
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(c.Path()), 0700))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := tt.oversize + "\n" + valid + "\n" + tt.oversize
			require.NoError(t, os.WriteFile(c.Path(), []byte(content), 0600))

			rec, found, err := c.Lookup(fp)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, model.LabelSystemIssue, rec.Classification)

			records, err := c.Records()
			require.NoError(t, err)
			require.Len(t, records, 1)
		})
	}
}

func TestLastLineWithoutNewline(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Compute("boom")

	require.NoError(t, os.MkdirAll(filepath.Dir(c.Path()), 0700))
	content := `{"fingerprint":"` + fp + `","classification":"no_defect","summary":"ok","date":"2026-02-01","source":""}`
	require.NoError(t, os.WriteFile(c.Path(), []byte(content), 0600))

	rec, found, err := c.Lookup(fp)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, model.LabelNoDefect, rec.Classification)
}

func TestAppendRejectsOversizedRecord(t *testing.T) {
	c := newTestCache(t)
	err := c.Append(model.Classification{
		Fingerprint:    fingerprint.Compute("boom"),
		Classification: model.LabelProductBug,
		Summary:        strings.Repeat("a", 2<<20),
	})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, statErr := os.Stat(c.Path())
	require.True(t, os.IsNotExist(statErr))
}

func TestAppendKeepsExistingContent(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(c.Path()), 0700))
	existing := `{"fingerprint":"` + fingerprint.Compute("old") + `","classification":"no_defect","summary":"old","date":"2025-12-31","source":""}` + "\n"
	require.NoError(t, os.WriteFile(c.Path(), []byte(existing), 0600))

	require.NoError(t, c.Append(model.Classification{Fingerprint: fingerprint.Compute("new"), Classification: model.LabelProductBug, Summary: "new"}))

	data, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), existing))
	require.True(t, strings.HasSuffix(string(data), "\n"))
	require.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestAppendRejectsInvalidRecords(t *testing.T) {
	fp := fingerprint.Compute("x")
	tests := []struct {
		name string
		rec  model.Classification
	}{
		{name: "bad fingerprint", rec: model.Classification{Fingerprint: "abc", Classification: model.LabelProductBug, Summary: "s"}},
		{name: "unknown label", rec: model.Classification{Fingerprint: fp, Classification: "flaky", Summary: "s"}},
		{name: "empty summary", rec: model.Classification{Fingerprint: fp, Classification: model.LabelProductBug, Summary: "  "}},
		{name: "bad date", rec: model.Classification{Fingerprint: fp, Classification: model.LabelProductBug, Summary: "s", Date: "19/02/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCache(t)
			err := c.Append(tt.rec)
			require.ErrorIs(t, err, model.ErrInvalidInput)

			_, statErr := os.Stat(c.Path())
			require.True(t, os.IsNotExist(statErr))
		})
	}
}
