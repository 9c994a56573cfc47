package fingerprint

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: EmptyPlaceholder,
		},
		{
			name: "whitespace only",
			in:   "  \n\t\n  ",
			want: EmptyPlaceholder,
		},
		{
			name: "timestamp",
			in:   "failed at 2026-02-19T10:22:31Z",
			want: "failed at <TS>",
		},
		{
			name: "timestamp with fraction and offset",
			in:   "2026-02-19 10:22:31.123456+00:00 - ocs_ci - ERROR",
			want: "<TS> - ocs_ci - ERROR",
		},
		{
			name: "uuid",
			in:   "pvc-3F2504E0-4F89-11D3-9A0C-0305E82C3301 not bound",
			want: "pvc-<UUID> not bound",
		},
		{
			name: "generated suffix mid line",
			in:   "pod rook-ceph-osd-0-7f9abc2 failed",
			want: "pod rook-ceph-osd-0-<ID> failed",
		},
		{
			name: "generated suffix at end of line",
			in:   "waiting for noobaa-core-xk2pq",
			want: "waiting for noobaa-core-<ID>",
		},
		{
			name: "hyphenated words without digits kept",
			in:   "namespace openshift-storage: connection-refused in kube-system",
			want: "namespace openshift-storage: connection-refused in kube-system",
		},
		{
			name: "file names kept",
			in:   "cannot extract must-gather.tar.gz",
			want: "cannot extract must-gather.tar.gz",
		},
		{
			name: "suffix after plain word",
			in:   "deployment noobaa-operator-5d8f7c9b4d-x2kqp",
			want: "deployment noobaa-operator-<ID>-<ID>",
		},
		{
			name: "short segments kept",
			in:   "rook-ceph-mon-a",
			want: "rook-ceph-mon-a",
		},
		{
			name: "long tokens kept",
			in:   "x-abcdefghijklmnop",
			want: "x-abcdefghijklmnop",
		},
		{
			name: "keeps last five non-empty lines",
			in:   "one\n\ntwo\nthree\n\nfour\nfive\nsix\n\n",
			want: "two\nthree\nfour\nfive\nsix",
		},
		{
			name: "fewer lines than the cap",
			in:   "  first  \nsecond",
			want: "first\nsecond",
		},
		{
			name: "crlf line endings",
			in:   "first\r\nsecond\r\n",
			want: "first\nsecond",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Traceback (most recent call last):\n  File \"tests/test_x.py\", line 10\nAssertionError",
		"pod rook-ceph-osd-0-7f9abc2 failed at 2026-02-19T10:22:31Z",
		"a-abcde-fghij-klmno " + uuid.NewString() + " 2026-02-19 11:05:02,123",
		"-abcde2026-02-19T10:22:31Z",
		EmptyPlaceholder,
	}

	for i, in := range inputs {
		t.Run(fmt.Sprintf("input-%d", i), func(t *testing.T) {
			once := Normalize(in)
			require.Equal(t, once, Normalize(once))
		})
	}
}

func TestEquivalentTracebacksShareFingerprint(t *testing.T) {
	a := "Traceback (most recent call last):\n" +
		"  File \"ocs_ci/ocs/resources/pod.py\", line 512, in wait_for_pods\n" +
		"TimeoutExpiredError: pod rook-ceph-osd-0-7f9abc2 failed at 2026-02-19T10:22:31Z"
	b := "Traceback (most recent call last):\n" +
		"  File \"ocs_ci/ocs/resources/pod.py\", line 512, in wait_for_pods\n" +
		"TimeoutExpiredError: pod rook-ceph-osd-0-9k2plq9 failed at 2026-02-19T11:05:02Z"

	require.Equal(t, Normalize(a), Normalize(b))
	require.Equal(t, Compute(a), Compute(b))

	c := fmt.Sprintf("request %s rejected", uuid.NewString())
	d := fmt.Sprintf("request %s rejected", uuid.NewString())
	require.Equal(t, Compute(c), Compute(d))
}

func TestDifferentTracebacksDiffer(t *testing.T) {
	require.NotEqual(t, Compute("AssertionError: expected 3 replicas"), Compute("AssertionError: expected 2 replicas"))

	// same failure in another namespace is a different failure
	a := "TimeoutExpiredError: pods not ready in namespace openshift-storage"
	b := "TimeoutExpiredError: pods not ready in namespace kube-system"
	require.NotEqual(t, Normalize(a), Normalize(b))
	require.NotEqual(t, Compute(a), Compute(b))
}

func TestHash(t *testing.T) {
	// sha256("")
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(""))
	require.Equal(t, Hash("abc"), Hash("abc"))

	for _, n := range []int{0, 1, 64, 100000} {
		got := Hash(strings.Repeat("x", n))
		require.Len(t, got, Size)
		require.Equal(t, strings.ToLower(got), got)
	}
}

func TestComputeEmpty(t *testing.T) {
	require.Equal(t, Hash(EmptyPlaceholder), Compute(""))
	require.Equal(t, Compute(""), Compute("\n\n"))
}
