// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import "testing"

func TestFmtNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
		{-1000, "-1,000"},
	}

	for _, tc := range tests {
		if got := fmtNumber(tc.n); got != tc.want {
			t.Errorf("fmtNumber(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}
