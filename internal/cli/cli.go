// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and top-level command handlers for jpchat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (overridden at build time via ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdModels
	CmdSessions
	CmdConfig
	CmdSetup
	CmdStatus
	CmdServe
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Model   string

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string

	// Options holds command-specific named options (e.g., --format, -o)
	Options map[string]string
}

const usageText = `jpchat %s - HuggingFace 日本語チャットデモ

HuggingFace Inference API を使って日本語 LLM と会話するデモクライアントです。

使い方:
  jpchat                         TUI チャットを起動 (デフォルト)
  jpchat ask "質問"              単発の質問に回答
  jpchat chat                    ターミナル REPL チャット
  jpchat models                  利用可能なモデル一覧
  jpchat sessions [subcommand]   保存した会話の管理
  jpchat config [subcommand]     設定の表示と変更
  jpchat setup                   初期設定 (API キー)
  jpchat status                  接続と設定の状態を表示
  jpchat serve                   Web チャット UI を起動
  jpchat version                 バージョン情報
  jpchat help [command]          ヘルプ

グローバルフラグ:
  -m, --model <id>   使用するモデル
  -q, --quiet        余計な出力を抑制
  --json             JSON 形式で出力
  -v, --verbose      詳細ログ

例:
  jpchat ask "日本の首都はどこですか？"
  jpchat ask -m rinna/japanese-gpt-neox-3.6b-instruction-sft "俳句を詠んで"
  jpchat sessions list
  jpchat sessions export abc123 --format md -o kaiwa.md
  jpchat serve --port 7860

最初に jpchat setup で HuggingFace の API キーを設定してください。
`

// PrintUsage prints the top-level usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("jpchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsedArgs := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "models":
		parseModelsArgs(&parsedArgs, remaining)
		return CmdModels, parsedArgs

	case "session", "sessions":
		parseSessionsArgs(&parsedArgs, remaining)
		return CmdSessions, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "setup":
		return CmdSetup, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "serve", "server":
		parseServeArgs(&parsedArgs, remaining)
		return CmdServe, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdHelp, parsedArgs

	default:
		fmt.Fprintf(os.Stderr, "不明なコマンドです: %s\n", cmd)
		if suggestion := SuggestCommand(cmd); suggestion != "" {
			fmt.Fprintf(os.Stderr, "もしかして: jpchat %s\n", suggestion)
		}
		fmt.Fprintln(os.Stderr, "jpchat help でコマンド一覧を確認できます")
		os.Exit(2)
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "-m", "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--model=") {
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs collects ask flags; everything else joins into the query.
func parseAskArgs(args *Args, remaining []string) {
	var queryParts []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]
		switch arg {
		case "--max-length", "--temp":
			if i+1 < len(remaining) {
				args.Options[strings.TrimLeft(arg, "-")] = remaining[i+1]
				i++
			}
		case "--no-stream":
			args.Options["no-stream"] = "true"
		case "--":
			queryParts = append(queryParts, remaining[i+1:]...)
			i = len(remaining)
		default:
			queryParts = append(queryParts, arg)
		}
		i++
	}

	args.Query = strings.Join(queryParts, " ")
}

func parseModelsArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		switch arg {
		case "--japanese", "--ja":
			args.Options["japanese"] = "true"
		case "--pro":
			args.Options["pro"] = "true"
		case "--status":
			args.Options["status"] = "true"
		}
	}
}

func parseSessionsArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.Subcommand = parser.Subcommand()
	args.Query = strings.Join(parser.PositionalFrom(1), " ")
	if v := parser.Flag("format"); v != "" {
		args.Options["format"] = v
	}
	if v := parser.FlagOrDefault("o", parser.Flag("output")); v != "" {
		args.Options["output"] = v
	}
}

func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
	}
	if len(remaining) > 1 {
		args.Options["key"] = remaining[1]
	}
	if len(remaining) > 2 {
		args.Options["value"] = strings.Join(remaining[2:], " ")
	}
}

func parseServeArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	if v := parser.Flag("host"); v != "" {
		args.Options["host"] = v
	}
	if v := parser.Flag("port"); v != "" {
		args.Options["port"] = v
	}
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// HandleVersion prints version info, as JSON when requested.
func HandleVersion(args Args) {
	if args.JSON {
		resp := NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		})
		_ = resp.Print()
		return
	}
	PrintVersion()
}

// HandleHelp prints usage, optionally for a single command.
func HandleHelp(args Args) {
	if help, ok := commandHelp[args.Subcommand]; ok {
		fmt.Print(help)
		return
	}
	PrintUsage()
}

// commandHelp holds per-command help text for `jpchat help <command>`.
var commandHelp = map[string]string{
	"ask": `jpchat ask [flags] "質問"

単発の質問を送り、回答をストリーミング表示します。

フラグ:
  -m, --model <id>     使用するモデル
  --max-length <n>     最大生成長 (50-500)
  --temp <v>           temperature (0.1-2.0)
  --no-stream          ストリーミングせず一括で取得
  --json               {model, response, duration_ms, tokens} を出力
  -q, --quiet          回答のみを出力
`,
	"sessions": `jpchat sessions <subcommand>

サブコマンド:
  list                      保存した会話の一覧
  show <id>                 会話の内容を表示
  search <query>            会話を全文検索
  export <id> [--format md|json] [-o path]
                            会話をファイルに書き出し
  delete <id>               会話を削除
`,
	"config": `jpchat config <subcommand>

サブコマンド:
  list                 全設定を表示
  get <key>            設定値を表示 (例: generation.temperature)
  set <key> <value>    設定値を変更して保存
  path                 設定ファイルのパスを表示
`,
	"serve": `jpchat serve [--host HOST] [--port PORT]

ブラウザ向けのチャット UI と JSON API を起動します。
デフォルトは 127.0.0.1:7860 です。
`,
}
