// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	parser := NewArgParser([]string{"export", "abc123", "--format", "md", "-o", "out.md"})

	if got := parser.Subcommand(); got != "export" {
		t.Errorf("Subcommand() = %q, want %q", got, "export")
	}
	if got := parser.Positional(1); got != "abc123" {
		t.Errorf("Positional(1) = %q, want %q", got, "abc123")
	}
	if got := parser.Flag("format"); got != "md" {
		t.Errorf("Flag(format) = %q, want %q", got, "md")
	}
	if got := parser.Flag("o"); got != "out.md" {
		t.Errorf("Flag(o) = %q, want %q", got, "out.md")
	}
}

func TestArgParser_DashDashTerminator(t *testing.T) {
	parser := NewArgParser([]string{"show", "--", "--not-a-flag", "-x"})

	if got := parser.Positional(1); got != "--not-a-flag" {
		t.Errorf("Positional(1) = %q, want %q", got, "--not-a-flag")
	}
	if got := parser.Positional(2); got != "-x" {
		t.Errorf("Positional(2) = %q, want %q", got, "-x")
	}
	if parser.BoolFlag("x") {
		t.Error("BoolFlag(x) = true, want false after --")
	}
}

func TestArgParser_EqualsForm(t *testing.T) {
	parser := NewArgParser([]string{"--format=json", "--limit=5"})

	if got := parser.Flag("format"); got != "json" {
		t.Errorf("Flag(format) = %q, want %q", got, "json")
	}
	if got := parser.FlagIntOrDefault("limit", 10); got != 5 {
		t.Errorf("FlagIntOrDefault(limit) = %d, want 5", got)
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"--count", "abc"})

	if got := parser.FlagIntOrDefault("count", 7); got != 7 {
		t.Errorf("invalid int should fall back to default, got %d", got)
	}
	if got := parser.FlagIntOrDefault("missing", 3); got != 3 {
		t.Errorf("missing flag should fall back to default, got %d", got)
	}
}

func TestArgParser_PositionalFrom(t *testing.T) {
	parser := NewArgParser([]string{"search", "日本", "の", "首都"})

	got := parser.PositionalFrom(1)
	if len(got) != 3 || got[0] != "日本" {
		t.Errorf("PositionalFrom(1) = %v", got)
	}
	if parser.PositionalCount() != 4 {
		t.Errorf("PositionalCount() = %d, want 4", parser.PositionalCount())
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	parser := NewArgParser(nil)

	if parser.Subcommand() != "" {
		t.Error("Subcommand() should be empty for no args")
	}
	if parser.HasFlag("anything") {
		t.Error("HasFlag should be false for no args")
	}
}

// =============================================================================
// PARSE INTEGRATION TESTS
// =============================================================================

func TestParse_Integration(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	tests := []struct {
		name        string
		args        []string
		wantCommand Command
		validate    func(*testing.T, Args)
	}{
		{
			name:        "no args runs TUI",
			args:        []string{"jpchat"},
			wantCommand: CmdTUI,
		},
		{
			name:        "ask command",
			args:        []string{"jpchat", "ask", "日本の首都は？"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "日本の首都は？" {
					t.Errorf("Query = %q", a.Query)
				}
			},
		},
		{
			name:        "ask with model flag",
			args:        []string{"jpchat", "ask", "-m", "rinna/japanese-gpt-neox-3.6b-instruction-sft", "俳句を詠んで"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Model != "rinna/japanese-gpt-neox-3.6b-instruction-sft" {
					t.Errorf("Model = %q", a.Model)
				}
				if a.Query != "俳句を詠んで" {
					t.Errorf("Query = %q", a.Query)
				}
			},
		},
		{
			name:        "ask with generation overrides",
			args:        []string{"jpchat", "ask", "--max-length", "300", "--temp", "1.2", "テスト"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Options["max-length"] != "300" {
					t.Errorf("max-length = %q", a.Options["max-length"])
				}
				if a.Options["temp"] != "1.2" {
					t.Errorf("temp = %q", a.Options["temp"])
				}
			},
		},
		{
			name:        "ask no-stream",
			args:        []string{"jpchat", "ask", "--no-stream", "テスト"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Options["no-stream"] != "true" {
					t.Error("no-stream should be set")
				}
			},
		},
		{
			name:        "chat command",
			args:        []string{"jpchat", "chat"},
			wantCommand: CmdChat,
		},
		{
			name:        "models with filters",
			args:        []string{"jpchat", "models", "--japanese", "--status"},
			wantCommand: CmdModels,
			validate: func(t *testing.T, a Args) {
				if a.Options["japanese"] != "true" || a.Options["status"] != "true" {
					t.Errorf("Options = %v", a.Options)
				}
			},
		},
		{
			name:        "sessions export",
			args:        []string{"jpchat", "sessions", "export", "abc123", "--format", "json", "-o", "out.json"},
			wantCommand: CmdSessions,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "export" {
					t.Errorf("Subcommand = %q", a.Subcommand)
				}
				if a.Query != "abc123" {
					t.Errorf("Query = %q", a.Query)
				}
				if a.Options["format"] != "json" || a.Options["output"] != "out.json" {
					t.Errorf("Options = %v", a.Options)
				}
			},
		},
		{
			name:        "session alias",
			args:        []string{"jpchat", "session", "list"},
			wantCommand: CmdSessions,
		},
		{
			name:        "config set",
			args:        []string{"jpchat", "config", "set", "chat.model", "cyberagent/open-calm-7b"},
			wantCommand: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" {
					t.Errorf("Subcommand = %q", a.Subcommand)
				}
				if a.Options["key"] != "chat.model" {
					t.Errorf("key = %q", a.Options["key"])
				}
				if a.Options["value"] != "cyberagent/open-calm-7b" {
					t.Errorf("value = %q", a.Options["value"])
				}
			},
		},
		{
			name:        "serve with host and port",
			args:        []string{"jpchat", "serve", "--host", "0.0.0.0", "--port", "8080"},
			wantCommand: CmdServe,
			validate: func(t *testing.T, a Args) {
				if a.Options["host"] != "0.0.0.0" || a.Options["port"] != "8080" {
					t.Errorf("Options = %v", a.Options)
				}
			},
		},
		{
			name:        "global json flag",
			args:        []string{"jpchat", "--json", "status"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if !a.JSON {
					t.Error("JSON should be true")
				}
			},
		},
		{
			name:        "version shorthand",
			args:        []string{"jpchat", "-v"},
			wantCommand: CmdVersion,
		},
		{
			name:        "help with topic",
			args:        []string{"jpchat", "help", "ask"},
			wantCommand: CmdHelp,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "ask" {
					t.Errorf("Subcommand = %q", a.Subcommand)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cmd, parsed := Parse()
			if cmd != tt.wantCommand {
				t.Errorf("command = %v, want %v", cmd, tt.wantCommand)
			}
			if tt.validate != nil {
				tt.validate(t, parsed)
			}
		})
	}
}

// =============================================================================
// SUGGESTION TESTS
// =============================================================================

func TestResolveServeHost(t *testing.T) {
	tests := []struct {
		name     string
		flagHost string
		cfgHost  string
		want     string
		wantErr  bool
	}{
		{"default loopback", "", "127.0.0.1", "127.0.0.1", false},
		{"localhost from config", "", "localhost", "localhost", false},
		{"ipv6 loopback from config", "", "::1", "::1", false},
		{"non-loopback from config refused", "", "0.0.0.0", "", true},
		{"non-loopback allowed via flag", "0.0.0.0", "127.0.0.1", "0.0.0.0", false},
		{"flag overrides non-loopback config", "127.0.0.1", "0.0.0.0", "127.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveServeHost(tt.flagHost, tt.cfgHost)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveServeHost(%q, %q) = %q, want error", tt.flagHost, tt.cfgHost, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveServeHost(%q, %q) error = %v", tt.flagHost, tt.cfgHost, err)
			}
			if got != tt.want {
				t.Errorf("resolveServeHost(%q, %q) = %q, want %q", tt.flagHost, tt.cfgHost, got, tt.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"aks", "ask"},
		{"chta", "chat"},
		{"modles", "models"},
		{"sesions", "sessions"},
		{"statis", "status"},
		{"xyzzy", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SuggestCommand(tt.input); got != tt.want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"ask", "ask", 0},
		{"ask", "aks", 2},
		{"chat", "chta", 2},
		{"serve", "server", 1},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{450 * time.Millisecond, "450ms"},
		{2300 * time.Millisecond, "2.3s"},
		{95 * time.Second, "1m35s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestWrapText_Japanese(t *testing.T) {
	// Japanese text has no word boundaries; wrapping is by display
	// width, with ideographs counting as two columns. Width 10 fits
	// five ideographs per line.
	wrapped := WrapText("こんにちは世界こんにちは世界", 10)
	for _, line := range strings.Split(wrapped, "\n") {
		if w := runewidth.StringWidth(line); w > 10 {
			t.Errorf("line %q exceeds width 10 (%d)", line, w)
		}
	}
	if !strings.Contains(wrapped, "\n") {
		t.Error("long line should have been wrapped")
	}
}

func TestMaskToken(t *testing.T) {
	if got := maskToken("hf_abcdefghij"); got != "hf_abc..." {
		t.Errorf("maskToken = %q", got)
	}
	if got := maskToken("ab"); got != "hf_..." {
		t.Errorf("maskToken short = %q", got)
	}
}

func TestFormatConfigValue_MasksToken(t *testing.T) {
	if got := formatConfigValue("api.token", "hf_secret"); got != "[設定済み]" {
		t.Errorf("set token = %q", got)
	}
	if got := formatConfigValue("api.token", ""); got != "(未設定)" {
		t.Errorf("empty token = %q", got)
	}
	if got := formatConfigValue("chat.model", "cyberagent/open-calm-7b"); got != "cyberagent/open-calm-7b" {
		t.Errorf("plain value = %q", got)
	}
}
