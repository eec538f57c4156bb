// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"testing"
)

func errorsIs(err, target error) bool { return errors.Is(err, target) }

func TestParseBuildVersion(t *testing.T) {
	tests := []struct {
		input      string
		version    string
		changelist int
		ok         bool
	}{
		{"++Fortnite+Release-30.10-CL-33408016-Windows", "30.10", 33408016, true},
		{"1.2.3-CL-42", "1.2.3", 42, true},
		{"4.27.2-cl-17155196+++UE4+Release-4.27", "4.27.2", 17155196, true},
		{"no version here", "", 0, false},
		{"7-CL-100", "", 0, false},
	}
	for _, test := range tests {
		version, changelist, ok := ParseBuildVersion(test.input)
		if version != test.version || changelist != test.changelist || ok != test.ok {
			t.Errorf("ParseBuildVersion(%q) = (%q, %d, %v), want (%q, %d, %v)",
				test.input, version, changelist, ok, test.version, test.changelist, test.ok)
		}
	}
}

func TestMetaVersionAndChangelist(t *testing.T) {
	meta := &Meta{BuildVersion: "++Game+Release-2.5-CL-1234-Linux"}
	version, changelist, ok := meta.VersionAndChangelist()
	if !ok || version != "2.5" || changelist != 1234 {
		t.Errorf("VersionAndChangelist = (%q, %d, %v)", version, changelist, ok)
	}
}
