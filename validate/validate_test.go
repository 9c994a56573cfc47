package validate

import (
	"errors"
	"testing"

	"github.com/rptriage/rptriage/model"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "cluster name", in: "j-123vi1cs33-t1", wantErr: false},
		{name: "url", in: "http://magna002.example.com/logs/j-123/run-1/", wantErr: false},
		{name: "key value", in: "run_id=1700000000", wantErr: false},
		{name: "empty", in: "", wantErr: true},
		{name: "space", in: "a b", wantErr: true},
		{name: "shell metachar", in: "name;rm", wantErr: true},
		{name: "command substitution", in: "$(id)", wantErr: true},
		{name: "traversal", in: "logs/../etc", wantErr: true},
		{name: "leading traversal", in: "../x", wantErr: true},
		{name: "dots inside name", in: "a..b", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Value("value", tt.in)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, model.ErrInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPathSegment(t *testing.T) {
	require.NoError(t, PathSegment("cluster", "j-042vu1cs33-a"))
	require.ErrorIs(t, PathSegment("cluster", "a/b"), model.ErrInvalidInput)
	require.ErrorIs(t, PathSegment("cluster", "."), model.ErrInvalidInput)
	require.ErrorIs(t, PathSegment("cluster", ".."), model.ErrInvalidInput)
}

func TestOptional(t *testing.T) {
	require.NoError(t, Optional("logs", ""))
	require.ErrorIs(t, Optional("logs", "a b"), model.ErrInvalidInput)
}

func TestNumeric(t *testing.T) {
	require.NoError(t, Numeric("id", "12345"))
	require.ErrorIs(t, Numeric("id", "12a"), model.ErrInvalidInput)
	require.ErrorIs(t, Numeric("id", ""), model.ErrInvalidInput)
}

func TestFingerprint(t *testing.T) {
	require.NoError(t, Fingerprint("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"))
	require.ErrorIs(t, Fingerprint("E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"), model.ErrInvalidInput)
	require.ErrorIs(t, Fingerprint("abc"), model.ErrInvalidInput)
}

func TestShellArg(t *testing.T) {
	got, err := ShellArg("url", "http://host/logs/")
	require.NoError(t, err)
	require.Equal(t, "http://host/logs/", got)

	got, err = ShellArg("attr", "run_id=1700000000")
	require.NoError(t, err)
	require.Equal(t, "run_id=1700000000", got)

	_, err = ShellArg("url", "http://host/`id`")
	require.ErrorIs(t, err, model.ErrInvalidInput)
}
