package crawler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rptriage/rptriage/model"
	"github.com/stretchr/testify/require"
)

func TestParseListing(t *testing.T) {
	tests := []struct {
		name string
		page string
		want []link
	}{
		{
			name: "nginx autoindex",
			page: `<html>
<head><title>Index of /logs/</title></head>
<body>
<h1>Index of /logs/</h1><hr><pre><a href="../">../</a>
<a href="ocs-ci-logs-1700000000/">ocs-ci-logs-1700000000/</a>     19-Feb-2026 10:22       -
<a href="failed_testcase_ocs_logs_1700000000/">failed_testcase_ocs_logs_1700000000/</a> 19-Feb-2026 10:22  -
<a href="run.log">run.log</a>                                   19-Feb-2026 10:22   1048576
</pre><hr></body>
</html>`,
			want: []link{
				{href: "ocs-ci-logs-1700000000/", name: "ocs-ci-logs-1700000000/"},
				{href: "failed_testcase_ocs_logs_1700000000/", name: "failed_testcase_ocs_logs_1700000000/"},
				{href: "run.log", name: "run.log"},
			},
		},
		{
			name: "apache autoindex with sort links and duplicates",
			page: `<table>
<tr><th><a href="?C=N;O=D">Name</a></th><th><a href="?C=S;O=A">Size</a></th></tr>
<tr><td><a href="/logs/">Parent Directory</a></td></tr>
<tr><td><a href="must-gather/"><img src="folder.gif"> must-gather/</a></td></tr>
<tr><td><a href="must-gather/">must-gather/</a></td></tr>
<tr><td><a href="#top">top</a><a href="mailto:ops@example.com">ops</a><a>no href</a></td></tr>
</table>`,
			want: []link{
				{href: "/logs/", name: "Parent Directory"},
				{href: "must-gather/", name: "must-gather/"},
			},
		},
		{
			name: "empty page",
			page: "",
			want: nil,
		},
		{
			name: "not html",
			page: "just some text",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseListing(strings.NewReader(tt.page))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRetryable(t *testing.T) {
	require.True(t, retryable(&statusError{code: 502}))
	require.True(t, retryable(&statusError{code: 429}))
	require.False(t, retryable(&statusError{code: 404}))
	require.False(t, retryable(&statusError{code: 403}))
	require.False(t, retryable(&parseError{err: bytes.ErrTooLarge}))
}

func TestWriteManifest(t *testing.T) {
	entries := []model.Entry{
		{Kind: model.KindDirectory, Path: "ocs-ci/", URL: "http://host/logs/ocs-ci/", Depth: 1},
		{Kind: model.KindFile, Path: "ocs-ci/run.log", URL: "http://host/logs/ocs-ci/run.log", Depth: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, entries, ManifestOptions{}))
	require.Equal(t, "d http://host/logs/ocs-ci/\nf http://host/logs/ocs-ci/run.log\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteManifest(&buf, entries, ManifestOptions{Relative: true}))
	require.Equal(t, "d ocs-ci/\nf ocs-ci/run.log\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteManifest(&buf, nil, ManifestOptions{}))
	require.Empty(t, buf.String())
}

func TestSortEntries(t *testing.T) {
	entries := []model.Entry{
		{Kind: model.KindFile, Path: "b.log"},
		{Kind: model.KindDirectory, Path: "a/"},
		{Kind: model.KindFile, Path: "a/z.log"},
	}
	SortEntries(entries)
	require.Equal(t, "a/", entries[0].Path)
	require.Equal(t, "a/z.log", entries[1].Path)
	require.Equal(t, "b.log", entries[2].Path)
}

func TestParseRoot(t *testing.T) {
	u, err := parseRoot("http://Magna002.example.com/logs/j-123?x=1#frag")
	require.NoError(t, err)
	require.Equal(t, "http://Magna002.example.com/logs/j-123/", u.String())
	require.Equal(t, "http://magna002.example.com/logs/j-123/", urlKey(u))
}
