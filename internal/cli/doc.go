// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI command
// handlers for jpchat.
//
// Parse examines os.Args and returns a Command plus the parsed Args;
// main dispatches on the Command. Handlers print human-readable Japanese
// output on a TTY and structured JSON with --json, so the same commands
// work interactively and in scripts.
//
// Commands:
//
//	jpchat                 TUI チャット (引数なし)
//	jpchat ask "質問"      1 回だけ質問して終了
//	jpchat chat            行ベースの対話モード
//	jpchat models          モデル一覧
//	jpchat sessions        保存済み会話の管理
//	jpchat config          設定の表示・変更
//	jpchat setup           初期セットアップ
//	jpchat status          環境診断
//	jpchat serve           Web チャットサーバー
package cli
