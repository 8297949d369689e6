// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Lightweight interactive chat REPL.
//
// Handles the "jpchat chat" command, a line-based alternative to the full
// screen TUI. Useful over slow connections and inside script-driven
// terminals where the alt screen is unwelcome.
//
// Interactive commands (during chat):
//
//	/help, /h          コマンド一覧
//	/clear, /c         会話履歴をクリア
//	/model [name]      モデルの表示・切り替え
//	/status, /s        セッション統計
//	/history           会話履歴を表示
//	/save [title]      会話を保存
//	/quit, /q          終了
//	Ctrl+C             生成をキャンセル
//	Ctrl+D             終了
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/prompt"
	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI wraps liner to provide line editing and persistent input
// history across sessions.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the input reader and loads prior history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.HistoryPath()
	if err != nil {
		historyFile = ""
	}

	cli := &ChatCLI{line: line, historyFile: historyFile}
	cli.loadHistory()
	return cli
}

func (c *ChatCLI) loadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with history navigation. Non-empty input is
// appended to the history.
func (c *ChatCLI) ReadInput(promptText string) (string, error) {
	input, err := c.line.Prompt(promptText)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists input history with owner-only permissions. The
// history may contain prompt text the user considers private.
func (c *ChatCLI) saveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.saveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for one interactive REPL session.
type ChatSession struct {
	Conversation *model.Conversation
	Builder      *prompt.Builder

	Config *config.Config
	Model  string
	Quiet  bool

	StartTime   time.Time
	TotalTokens int
	QueryCount  int

	Client *hf.Client
	Store  *storage.Store
	Input  *ChatCLI

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// NewChatSession assembles a session from global config plus CLI flags.
func NewChatSession(args Args) (*ChatSession, error) {
	cfg := config.Global()

	modelID, err := resolveModel(args, cfg)
	if err != nil {
		return nil, err
	}

	// Storage is optional for the REPL; /save reports the failure if the
	// directory cannot be created.
	var store *storage.Store
	if dir, err := cfg.StorageDir(); err == nil {
		store, _ = storage.NewStore(dir)
	}

	return &ChatSession{
		Conversation: model.NewConversation(modelID),
		Builder: prompt.NewBuilder(&prompt.BuilderConfig{
			Window:      cfg.Chat.HistoryWindow,
			TokenBudget: cfg.Chat.TokenBudget,
		}),
		Config:    cfg,
		Model:     modelID,
		Quiet:     args.Quiet,
		StartTime: time.Now(),
		Client:    newClientFromConfig(cfg),
		Store:     store,
		Input:     NewChatCLI(),
	}, nil
}

// setCancel records the cancel function for the in-flight generation.
func (s *ChatSession) setCancel(fn context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelFunc = fn
}

// cancelCurrent cancels the in-flight generation, if any.
func (s *ChatSession) cancelCurrent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc == nil {
		return false
	}
	s.cancelFunc()
	s.cancelFunc = nil
	return true
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive REPL until the user quits.
func HandleChat(args Args) {
	if err := RequiresTTY("chat"); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		os.Exit(ExitUsage)
	}

	session, err := NewChatSession(args)
	if err != nil {
		HandleErrorAndExit("chat", err, args.JSON)
	}
	defer session.Input.Close()

	if !session.Client.HasToken() {
		DisplayError("chat", hf.ErrNoToken, false)
		os.Exit(ExitAuth)
	}

	if !session.Quiet {
		printChatWelcome(session)
	}

	// Ctrl+C during generation cancels the stream instead of killing the
	// process. Outside generation liner reports ErrPromptAborted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.cancelCurrent() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[キャンセルしました]"))
			}
		}
	}()

	for {
		input, err := session.Input.ReadInput(HighlightStyle.Render("あなた> "))
		if err != nil {
			// ErrPromptAborted (Ctrl+C) and EOF (Ctrl+D) both end the
			// session.
			fmt.Println()
			printExitSummary(session)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			cont, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[エラー]"), err)
			}
			if !cont {
				printExitSummary(session)
				return
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return
		}

		if err := processMessage(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[エラー]"), hf.UserMessage(err))
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends one user message and streams the reply.
func processMessage(session *ChatSession, input string) error {
	built := session.Builder.BuildForConversation(session.Conversation, input)

	params := hf.GenerationParams{
		MaxLength:   session.Config.Generation.MaxLength,
		Temperature: session.Config.Generation.Temperature,
		TopP:        session.Config.Generation.TopP,
		DoSample:    session.Config.Generation.DoSample,
	}

	ctx, cancel := context.WithCancel(context.Background())
	session.setCancel(cancel)
	defer func() {
		session.setCancel(nil)
		cancel()
	}()

	session.Conversation.AddUserMessage(input)
	session.Conversation.AddAssistantMessage()

	useMarkdown := IsStdoutTTY()

	fmt.Println()

	acc := hf.NewStreamAccumulator()
	chunks, errs := session.Client.StreamChan(ctx, session.Model, built, params)

	for chunk := range chunks {
		acc.Add(chunk)
		text := chunk.GetText()
		if text == "" {
			continue
		}
		session.Conversation.AppendToLast(text)
		if !useMarkdown {
			fmt.Print(text)
		}
	}

	if err := <-errs; err != nil {
		// Drop the empty assistant placeholder and the user message so a
		// retry does not duplicate history.
		session.Conversation.DropLastMessage()
		session.Conversation.DropLastMessage()

		var loadErr *hf.ModelLoadingError
		if errors.As(err, &loadErr) {
			fmt.Fprintf(os.Stderr, "%s モデルを読み込んでいます (推定 %s)。少し待ってからもう一度お試しください。\n",
				WarningStyle.Render("[読込中]"),
				formatDuration(loadErr.EstimatedDuration()))
			return nil
		}
		return err
	}

	content := acc.GetContent()
	stats := acc.GetStats()
	msgStats := &model.Statistics{
		CompletionTokens: stats.TokenCount,
		TotalDuration:    stats.TotalTime,
		TTFT:             stats.FirstTokenTime,
	}
	if stats.TotalTime > 0 {
		msgStats.TokensPerSecond = float64(stats.TokenCount) / stats.TotalTime.Seconds()
	}
	session.Conversation.FinalizeLast(msgStats)

	if useMarkdown {
		displayResponse(content)
	}
	fmt.Println()

	session.TotalTokens += stats.TokenCount
	session.QueryCount++

	if !session.Quiet {
		fmt.Fprintf(os.Stderr, "%s %d トークン | %s\n",
			DimStyle.Render("[統計]"),
			stats.TokenCount,
			formatDuration(stats.TotalTime))
	}
	fmt.Println()

	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes a slash command. Returns false when the
// session should end.
func handleSlashCommand(cmd string, session *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true, nil

	case "/clear", "/c":
		session.Conversation.ClearHistory()
		fmt.Println(SuccessStyle.Render("[会話履歴をクリアしました]"))
		return true, nil

	case "/model", "/m":
		return handleReplModelCommand(session, args)

	case "/status", "/s":
		printChatStatus(session)
		return true, nil

	case "/history":
		printChatHistory(session)
		return true, nil

	case "/save":
		return handleReplSaveCommand(session, args)

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("不明なコマンドです: %s (/help で一覧を表示)", command)
	}
}

// handleReplModelCommand shows the current model or switches to another.
func handleReplModelCommand(session *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		fmt.Printf("%s %s\n",
			DimStyle.Render("[モデル]"),
			ValueStyle.Render(model.DisplayName(session.Model)))
		return true, nil
	}

	info, ok := model.GetModelInfo(args[0])
	if !ok {
		return true, &NotFoundError{Resource: "モデル", ID: args[0]}
	}

	session.Model = info.ID
	session.Conversation.Model = info.ID
	fmt.Printf("%s %s に切り替えました\n",
		SuccessStyle.Render("[OK]"),
		info.Name)
	return true, nil
}

// handleReplSaveCommand persists the conversation.
func handleReplSaveCommand(session *ChatSession, args []string) (bool, error) {
	if session.Store == nil {
		return true, fmt.Errorf("保存先ディレクトリを初期化できませんでした")
	}
	if session.Conversation.IsEmpty() {
		return true, fmt.Errorf("保存するメッセージがありません")
	}

	if len(args) > 0 {
		session.Conversation.SetTitle(strings.Join(args, " "))
	}

	id, err := session.Store.Save(session.Conversation)
	if err != nil {
		return true, err
	}

	fmt.Printf("%s 会話を保存しました [%s]\n", SuccessStyle.Render("[OK]"), id)
	return true, nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// printChatWelcome prints the session banner.
func printChatWelcome(session *ChatSession) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("jpchat 対話モード"))
	fmt.Println(SeparatorStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		DimStyle.Render("モデル:"),
		ValueStyle.Render(model.DisplayName(session.Model)))
	fmt.Println()
	fmt.Println(DimStyle.Render("メッセージを入力して Enter で送信。/help でコマンド一覧。"))
	fmt.Println()
}

// printChatHelp prints available slash commands.
func printChatHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "このヘルプを表示"},
		{"/clear, /c", "会話履歴をクリア"},
		{"/model [name]", "モデルの表示・切り替え"},
		{"/status, /s", "セッション統計を表示"},
		{"/history", "会話履歴を表示"},
		{"/save [title]", "会話を保存"},
		{"/quit, /q", "終了"},
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render("コマンド一覧"))
	fmt.Println(SeparatorStyle.Render(strings.Repeat("─", 20)))
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			SuccessStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			DimStyle.Render(c.desc))
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("ヒント: Ctrl+C で生成キャンセル、Ctrl+D で終了"))
	fmt.Println()
}

// printChatStatus prints session statistics.
func printChatStatus(session *ChatSession) {
	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(SectionStyle.Render("セッション情報"))
	fmt.Println(SeparatorStyle.Render(strings.Repeat("─", 20)))
	fmt.Printf("  %s %s\n", DimStyle.Render("モデル:"), ValueStyle.Render(model.DisplayName(session.Model)))
	fmt.Printf("  %s %s\n", DimStyle.Render("経過時間:"), elapsed.String())
	fmt.Printf("  %s %d 件\n", DimStyle.Render("メッセージ:"), session.Conversation.MessageCount())
	fmt.Printf("  %s %d 回\n", DimStyle.Render("質問:"), session.QueryCount)
	fmt.Printf("  %s %d\n", DimStyle.Render("トークン:"), session.TotalTokens)
	fmt.Println()
}

// printChatHistory prints the conversation so far.
func printChatHistory(session *ChatSession) {
	if session.Conversation.IsEmpty() {
		fmt.Println(DimStyle.Render("(履歴はまだありません)"))
		return
	}

	fmt.Println()
	for _, msg := range session.Conversation.Messages {
		switch msg.Role {
		case model.RoleUser:
			fmt.Printf("%s %s\n", HighlightStyle.Render("あなた:"), msg.Content)
		case model.RoleAssistant:
			fmt.Printf("%s %s\n", SuccessStyle.Render("AI:"), msg.Content)
		}
	}
	fmt.Println()
}

// printExitSummary prints a short summary when the session ends.
func printExitSummary(session *ChatSession) {
	if session.Quiet {
		return
	}
	elapsed := time.Since(session.StartTime).Round(time.Second)
	fmt.Printf("%s %d 回の質問 / %d トークン / %s\n",
		DimStyle.Render("セッション終了:"),
		session.QueryCount,
		session.TotalTokens,
		elapsed.String())
}
