// jpchat - HuggingFace Inference API を使った日本語チャットクライアント.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/oggata/huggingface-jp-chat-demo/internal/cli"
	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/index"
	"github.com/oggata/huggingface-jp-chat-demo/internal/logging"
	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/chat"
)

// Version information (set at build time via ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "予期しないエラーで終了しました: %v\n", r)
			fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
			fmt.Fprintln(os.Stderr, "再現できる場合はバグ報告をお願いします: https://github.com/oggata/huggingface-jp-chat-demo/issues")
			os.Exit(1)
		}
	}()

	cmd, args := cli.Parse()

	// Surface config problems before any command runs; a broken file
	// should fail loudly, not fall back to defaults silently.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}
	if args.Model != "" {
		cfg.Chat.Model = args.Model
	}
	config.SetGlobal(cfg)

	switch cmd {
	case cli.CmdTUI:
		runTUI(args, cfg)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdModels:
		cli.HandleModels(args)
	case cli.CmdSessions:
		cli.HandleSessions(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdSetup:
		cli.HandleSetup(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdServe:
		cli.HandleServe(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp(args)
	default:
		runTUI(args, cfg)
	}
}

// runTUI starts the full-screen chat interface.
func runTUI(args cli.Args, cfg *config.Config) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ログの初期化に失敗しました: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var store *storage.Store
	if dir, err := cfg.StorageDir(); err == nil {
		if s, err := storage.NewStore(dir); err == nil {
			s.MaxConversations = cfg.Storage.MaxConversations
			store = s
		}
	}

	// Keep the search index in sync with saves made while the TUI runs.
	if store != nil {
		if path, err := config.IndexPath(); err == nil {
			if idx, err := index.Open(path); err == nil {
				if err := idx.StartWatcher(store, index.DefaultDebounce); err != nil {
					logger.Warn("インデックス監視を開始できません", zap.Error(err))
					idx.Close()
				} else {
					defer idx.Close()
				}
			}
		}
	}

	client := hf.NewClient(hf.ClientConfig{
		BaseURL:           cfg.API.BaseURL,
		Token:             cfg.API.Token,
		Timeout:           cfg.Timeout(),
		MaxRetries:        cfg.API.MaxRetries,
		WaitForModel:      cfg.API.WaitForModel,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	})

	m := chat.New(chat.Options{
		Config:  cfg,
		Client:  client,
		Store:   store,
		Logger:  logger,
		Version: Version,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}
