package fingerprint_test

import (
	"fmt"

	"github.com/rptriage/rptriage/fingerprint"
)

func ExampleNormalize() {
	traceback := `Traceback (most recent call last):
  File "tests/manage/test_osd.py", line 42, in test_osd_restart
ERROR 2026-02-19T10:22:31Z pod rook-ceph-osd-0-7f9abc2 not ready
volume pvc-3f2b8c1e-8d4a-4c2e-9b1a-0f6e5d4c3b2a bound`

	fmt.Println(fingerprint.Normalize(traceback))
	// Output:
	// Traceback (most recent call last):
	// File "tests/manage/test_osd.py", line 42, in test_osd_restart
	// ERROR <TS> pod rook-ceph-osd-0-<ID> not ready
	// volume pvc-<UUID> bound
}

func ExampleCompute() {
	first := fingerprint.Compute("pod rook-ceph-osd-0-7f9abc2 failed at 2026-02-19T10:22:31Z")
	second := fingerprint.Compute("pod rook-ceph-osd-0-9k2plq9 failed at 2026-02-19T11:05:02Z")

	fmt.Println(first == second, len(first))
	// Output: true 64
}
