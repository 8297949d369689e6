// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the jpchat TUI.
//
// This file implements the slash command registry. Each command is an
// individual handler so the dispatch stays a table lookup.
package chat

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/components"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command. It receives the model and the
// arguments after the command word.
type CommandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

// commandHandlers maps command names (and aliases) to handlers.
var commandHandlers = map[string]CommandHandler{
	// Help & meta
	"help": handleHelpCommand,
	"h":    handleHelpCommand,
	"?":    handleHelpCommand,
	"quit": handleQuitCommand,
	"q":    handleQuitCommand,
	"exit": handleQuitCommand,

	// Conversation management
	"clear":    handleClearCommand,
	"new":      handleNewCommand,
	"save":     handleSaveCommand,
	"s":        handleSaveCommand,
	"load":     handleLoadCommand,
	"l":        handleLoadCommand,
	"sessions": handleSessionsCommand,
	"list":     handleSessionsCommand,
	"search":   handleSearchCommand,
	"export":   handleExportCommand,
	"e":        handleExportCommand,

	// Model selection
	"model":  handleModelCommand,
	"m":      handleModelCommand,
	"models": handleModelsCommand,

	// Generation parameters
	"params": handleParamsCommand,
	"temp":   handleTempCommand,
	"length": handleLengthCommand,
}

// chatCommands is the completion list shown by the tab popup. Aliases are
// omitted so the popup stays scannable.
var chatCommands = []components.Completion{
	{Value: "/help", Description: "コマンド一覧を表示"},
	{Value: "/model", Description: "モデルを切り替え (引数なしで一覧)"},
	{Value: "/models", Description: "利用可能なモデルを表示"},
	{Value: "/clear", Description: "会話履歴をクリア"},
	{Value: "/new", Description: "新しい会話を開始"},
	{Value: "/save", Description: "会話を保存 (/save タイトル)"},
	{Value: "/sessions", Description: "保存した会話の一覧"},
	{Value: "/load", Description: "保存した会話を読み込み (/load ID)"},
	{Value: "/search", Description: "保存した会話を検索"},
	{Value: "/params", Description: "生成パラメータを表示"},
	{Value: "/temp", Description: "temperature を変更 (0.1-2.0)"},
	{Value: "/length", Description: "最大生成長を変更 (50-500)"},
	{Value: "/export", Description: "会話を書き出し (md または json)"},
	{Value: "/quit", Description: "終了"},
}

// handleCommand dispatches a normalized slash command line.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	m.completions.Clear()

	parts := strings.Fields(content)
	if len(parts) == 0 {
		return m, nil
	}

	cmdName := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	if handler, ok := commandHandlers[cmdName]; ok {
		return handler(&m, args)
	}

	m.systemNotice(fmt.Sprintf("不明なコマンドです: %s\n/help でコマンド一覧を確認できます", parts[0]))
	return m, nil
}

// =============================================================================
// HELP AND META
// =============================================================================

func handleHelpCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("利用できるコマンド:\n")
	for _, c := range chatCommands {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", c.Value, c.Description))
	}
	b.WriteString("\nキー操作: Enter 送信 / Esc キャンセル / Tab 補完 / Ctrl+C 終了")
	m.systemNotice(b.String())
	return *m, nil
}

func handleQuitCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.cfg.Chat.AutoSave && m.sessions.IsDirty() {
		return *m, tea.Sequence(m.saveConversation(), tea.Quit)
	}
	return *m, tea.Quit
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

func handleClearCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.conversation.ClearHistory()
	m.savedID = ""
	m.viewport.SetMessages(m.conversation.Messages)
	m.refreshTokenUsage()
	m.toasts.AddStatus("会話履歴をクリアしました")
	return *m, nil
}

func handleNewCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	var save tea.Cmd
	if m.cfg.Chat.AutoSave && m.sessions.IsDirty() {
		save = m.saveConversation()
	}

	m.conversation = model.NewConversation(m.cfg.Chat.Model)
	m.savedID = ""
	m.sessions.MarkClean()
	m.viewport.SetMessages(m.conversation.Messages)
	m.refreshTokenUsage()
	m.toasts.AddStatus("新しい会話を開始しました")
	return *m, save
}

func handleSaveCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.conversation.IsEmpty() {
		m.systemNotice("保存するメッセージがありません")
		return *m, nil
	}
	if len(args) > 0 {
		m.conversation.SetTitle(strings.Join(args, " "))
	}
	return *m, m.saveConversation()
}

func handleSessionsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.store == nil {
		m.systemNotice("保存先が利用できません")
		return *m, nil
	}
	metas, err := m.store.List()
	if err != nil {
		return *m, func() tea.Msg { return NewAPIErrorMsg(err) }
	}
	if len(metas) == 0 {
		m.systemNotice("保存された会話はありません")
		return *m, nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("保存された会話 (%d件):\n", len(metas)))
	for i, meta := range metas {
		b.WriteString(fmt.Sprintf("  %2d. %s  [%s]\n      %s (%d件, %s)\n",
			i+1, meta.Title, meta.ID,
			model.DisplayName(meta.Model), meta.MessageCount,
			meta.UpdatedAt.Format("2006-01-02 15:04")))
	}
	b.WriteString("\n/load ID または /load 番号 で読み込みます")
	m.systemNotice(b.String())
	return *m, nil
}

func handleLoadCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.store == nil {
		m.systemNotice("保存先が利用できません")
		return *m, nil
	}
	if len(args) == 0 {
		m.systemNotice("使い方: /load ID (/sessions で一覧を確認)")
		return *m, nil
	}

	ref := args[0]
	store := m.store
	return *m, func() tea.Msg {
		var stored *storage.StoredConversation
		var err error
		if n, convErr := strconv.Atoi(ref); convErr == nil {
			stored, err = store.LoadByIndex(n - 1)
		} else {
			stored, err = store.Load(ref)
		}
		if err != nil {
			return ConversationLoadedMsg{Error: err}
		}
		return ConversationLoadedMsg{Conversation: stored.ToConversation()}
	}
}

func handleSearchCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.store == nil {
		m.systemNotice("保存先が利用できません")
		return *m, nil
	}
	if len(args) == 0 {
		m.systemNotice("使い方: /search キーワード")
		return *m, nil
	}

	query := strings.Join(args, " ")
	metas, err := m.store.Search(query)
	if err != nil {
		return *m, func() tea.Msg { return NewAPIErrorMsg(err) }
	}
	if len(metas) == 0 {
		m.systemNotice(fmt.Sprintf("「%s」に一致する会話はありませんでした", query))
		return *m, nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("「%s」の検索結果 (%d件):\n", query, len(metas)))
	for _, meta := range metas {
		b.WriteString(fmt.Sprintf("  %s  [%s]\n    %s\n", meta.Title, meta.ID, meta.Preview))
	}
	m.systemNotice(b.String())
	return *m, nil
}

func handleExportCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.conversation.IsEmpty() {
		m.systemNotice("書き出すメッセージがありません")
		return *m, nil
	}

	format := "md"
	path := ""
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	if len(args) > 1 {
		path = args[1]
	}
	if format != "md" && format != "markdown" && format != "json" {
		m.systemNotice("使い方: /export [md|json] [ファイル名]")
		return *m, nil
	}

	conv := m.conversation
	return *m, func() tea.Msg {
		written, err := exportConversation(conv, format, path)
		return ExportCompleteMsg{Path: written, Error: err}
	}
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

func handleModelCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.picker.SetSize(m.width, m.height)
		m.picker.Show()
		m.input.Blur()
		return *m, nil
	}

	id := args[0]
	info, known := model.GetModelInfo(id)
	if known {
		id = info.ID
	}
	m.switchModel(id)
	if known {
		m.systemNotice(fmt.Sprintf("モデルを %s に切り替えました", info.Name))
	} else {
		m.systemNotice(fmt.Sprintf("モデルを %s に切り替えました (カタログ外のモデルです)", id))
	}
	return *m, nil
}

func handleModelsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("利用可能なモデル:\n")
	for _, info := range model.Models {
		marker := "  "
		if info.ID == m.conversation.Model {
			marker = "* "
		}
		line := fmt.Sprintf("%s%s (%s)", marker, info.Name, info.ID)
		if badge := info.Badge(); badge != "" {
			line += " [" + badge + "]"
		}
		b.WriteString(line + "\n    " + info.Description + "\n")
	}
	b.WriteString("\n/model ID で切り替えます")
	m.systemNotice(b.String())
	return *m, nil
}

// =============================================================================
// GENERATION PARAMETERS
// =============================================================================

func handleParamsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	g := m.cfg.Generation
	m.systemNotice(fmt.Sprintf(
		"生成パラメータ:\n  temperature: %.2f\n  max_length:  %d\n  top_p:       %.2f\n  do_sample:   %t\n\n/temp や /length で変更できます",
		g.Temperature, g.MaxLength, g.TopP, g.DoSample))
	return *m, nil
}

func handleTempCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.systemNotice(fmt.Sprintf("現在の temperature: %.2f\n使い方: /temp 0.7", m.cfg.Generation.Temperature))
		return *m, nil
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v < config.MinTemperature || v > config.MaxTemperature {
		m.systemNotice(fmt.Sprintf("temperature は %.1f から %.1f の数値で指定してください",
			config.MinTemperature, config.MaxTemperature))
		return *m, nil
	}
	m.cfg.Generation.Temperature = v
	m.toasts.AddSuccess(fmt.Sprintf("temperature を %.2f に設定しました", v))
	return *m, nil
}

func handleLengthCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.systemNotice(fmt.Sprintf("現在の max_length: %d\n使い方: /length 200", m.cfg.Generation.MaxLength))
		return *m, nil
	}
	v, err := strconv.Atoi(args[0])
	if err != nil || v < config.MinMaxLength || v > config.MaxMaxLength {
		m.systemNotice(fmt.Sprintf("max_length は %d から %d の整数で指定してください",
			config.MinMaxLength, config.MaxMaxLength))
		return *m, nil
	}
	m.cfg.Generation.MaxLength = v
	m.toasts.AddSuccess(fmt.Sprintf("max_length を %d に設定しました", v))
	return *m, nil
}
