// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"regexp"
	"strconv"
)

var buildVersionPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)+)-CL-(\d+)`)

// ParseBuildVersion extracts the dotted version and changelist from
// a build version string such as "++Fortnite+Release-30.10-CL-33408016-Windows".
// ok is false when the string contains no "<version>-CL-<number>"
// sequence.
func ParseBuildVersion(s string) (version string, changelist int, ok bool) {
	match := buildVersionPattern.FindStringSubmatch(s)
	if match == nil {
		return "", 0, false
	}
	changelist, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, false
	}
	return match[1], changelist, true
}
