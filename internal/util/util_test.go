// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the jpchat application.
package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.txt")
	data := []byte("hello, world!")

	err := AtomicWriteFile(path, data, 0644)
	if err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "subdir", "deep", "test.txt")

	err := AtomicWriteFile(path, []byte("test data"), 0644)
	if err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.txt")

	if err := AtomicWriteFile(path, []byte("initial"), 0644); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("updated"), 0644); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "updated" {
		t.Errorf("Content not updated: got %q", string(content))
	}
}

func TestAtomicWriteFile_LeavesNoTempFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.txt")

	if err := AtomicWriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the target file, found %d entries", len(entries))
	}
}

// =============================================================================
// STRING TRUNCATION TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		maxRunes int
		expected string
	}{
		{"ascii truncated", "hello world", 5, "he..."},
		{"ascii exact", "hello", 5, "hello"},
		{"short", "hi", 5, "hi"},
		{"empty", "", 5, ""},
		{"zero max", "hello world", 0, ""},
		{"full length", "hello world", 11, "hello world"},
		{"tiny max no ellipsis", "abcd", 3, "abc"},
		{"japanese truncated", "こんにちは世界のみなさん", 8, "こんにちは..."},
		{"japanese exact", "日本語", 3, "日本語"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := TruncateRunes(tc.input, tc.maxRunes)
			if result != tc.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q",
					tc.input, tc.maxRunes, result, tc.expected)
			}
		})
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	testCases := []struct {
		input    string
		maxRunes int
		expected string
	}{
		{"hello world", 5, "hello"},
		{"hello", 5, "hello"},
		{"", 5, ""},
		{"質問をどうぞ", 3, "質問を"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := TruncateRunesNoEllipsis(tc.input, tc.maxRunes)
			if result != tc.expected {
				t.Errorf("TruncateRunesNoEllipsis(%q, %d) = %q, want %q",
					tc.input, tc.maxRunes, result, tc.expected)
			}
		})
	}
}

// =============================================================================
// DISPLAY WIDTH TESTS
// =============================================================================

func TestDisplayWidth(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
	}{
		{"hello", 5},
		{"", 0},
		{"日本語", 6},
		{"こんにちは", 10},
		{"hello世界", 9},
		{"ｈｅｌｌｏ", 10}, // fullwidth latin
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := DisplayWidth(tc.input)
			if result != tc.expected {
				t.Errorf("DisplayWidth(%q) = %d, want %d", tc.input, result, tc.expected)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"ascii short", "hello", 10, "hello"},
		{"ascii exact", "hello", 5, "hello"},
		{"ascii truncated", "hello world", 8, "hello..."},
		{"japanese truncated", "日本語のテスト", 9, "日本語..."},
		{"japanese fits", "日本語", 6, "日本語"},
		{"empty", "", 5, ""},
		{"zero width", "hello", 0, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := TruncateWidth(tc.input, tc.maxWidth)
			if result != tc.expected {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q",
					tc.input, tc.maxWidth, result, tc.expected)
			}
			if got := DisplayWidth(result); got > tc.maxWidth {
				t.Errorf("result width %d exceeds max %d", got, tc.maxWidth)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	testCases := []struct {
		input    string
		width    int
		expected string
	}{
		{"ab", 4, "ab  "},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "abcde"},
		{"日本", 6, "日本  "}, // 4 columns + 2 spaces
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := PadRight(tc.input, tc.width)
			if result != tc.expected {
				t.Errorf("PadRight(%q, %d) = %q, want %q",
					tc.input, tc.width, result, tc.expected)
			}
		})
	}
}

// =============================================================================
// COMMAND NORMALIZATION TESTS
// =============================================================================

func TestNormalizeCommand(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "/help", "/help"},
		{"fullwidth slash", "／help", "/help"},
		{"fullwidth word", "／ｈｅｌｐ", "/help"},
		{"ideographic space", "　/model　", "/model"},
		{"mixed trim", "  ／ｃｌｅａｒ  ", "/clear"},
		{"not a command", "こんにちは", "こんにちは"},
		{"fullwidth digits", "／ｔｅｍｐ　０．８", "/temp 0.8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := NormalizeCommand(tc.input)
			if result != tc.expected {
				t.Errorf("NormalizeCommand(%q) = %q, want %q",
					tc.input, result, tc.expected)
			}
		})
	}
}

func TestIsCommand(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{"/help", true},
		{"／model", true},
		{"　／ｑｕｉｔ", true},
		{"hello /world", false},
		{"こんにちは", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := IsCommand(tc.input); got != tc.expected {
				t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

// =============================================================================
// PATH AND FORMAT TESTS
// =============================================================================

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	testCases := []struct {
		input    string
		expected string
	}{
		{"~", home},
		{"~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result, err := ExpandHome(tc.input)
			if err != nil {
				t.Fatalf("ExpandHome(%q) error: %v", tc.input, err)
			}
			if result != tc.expected {
				t.Errorf("ExpandHome(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		d        time.Duration
		expected string
	}{
		{250 * time.Millisecond, "250ms"},
		{time.Second, "1.0s"},
		{1500 * time.Millisecond, "1.5s"},
		{30 * time.Second, "30.0s"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if got := FormatDuration(tc.d); got != tc.expected {
				t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.expected)
			}
		})
	}
}
