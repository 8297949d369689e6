// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/session"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/components"
	"github.com/oggata/huggingface-jp-chat-demo/internal/util"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.thinking, cmd = m.thinking.Update(msg)
		cmds = append(cmds, cmd)
		m.loading, cmd = m.loading.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case session.TickMsg:
		return m.handleSessionTick()

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamTokenMsg:
		return m.handleFirstToken(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case ModelLoadingMsg:
		return m.handleModelLoading(msg)

	case retryStreamMsg:
		return m.handleStreamRetry(msg)

	case ConversationSavedMsg:
		return m.handleConversationSaved(msg)

	case ConversationLoadedMsg:
		return m.handleConversationLoaded(msg)

	case ExportCompleteMsg:
		if msg.Error != nil {
			m.toasts.AddError("書き出しに失敗しました: " + msg.Error.Error())
		} else {
			m.systemNotice("会話を書き出しました: " + msg.Path)
		}
		return m, nil

	case ErrorMsg:
		return m.showError(msg)

	case ErrorDismissMsg:
		m.errDisplay.Dismiss()
		m.state = StateIdle
		m.statusBar.SetStatus(components.StatusReady)
		return m, nil
	}

	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

// handleResize propagates the new terminal size to every component.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.theme.SetSize(msg.Width, msg.Height)
	m.header.Width = msg.Width
	m.input.SetWidth(msg.Width)
	m.statusBar.SetWidth(msg.Width)
	m.picker.SetSize(msg.Width, msg.Height)
	m.welcome.SetSize(msg.Width, msg.Height)
	m.errDisplay.SetWidth(msg.Width)
	m.completions.SetWidth(msg.Width / 2)

	m.viewport.SetSize(msg.Width, m.viewportHeight())
	return m, nil
}

// viewportHeight is the space left after the fixed chrome. The header,
// input box, and status bar heights are stable, so the arithmetic beats
// measuring rendered strings on every resize.
func (m Model) viewportHeight() int {
	const chrome = 4 + 5 + 1 // header box, input box with counter, status bar
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	return h
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit always works, whatever overlay is up.
	if key.Matches(msg, m.keyMap.Quit) {
		return handleQuitCommand(&m, nil)
	}

	// The welcome screen absorbs the first key press.
	if m.showWelcome {
		m.showWelcome = false
		return m, m.input.Focus()
	}

	if m.picker.Visible() {
		return m.handlePickerKey(msg)
	}

	if m.errDisplay.Visible() {
		switch msg.String() {
		case "esc", "enter":
			return m.Update(ErrorDismissMsg{})
		}
	}

	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		if m.busy() {
			m.cancelStream()
			return m, nil
		}
		if m.completions.HasCompletions() {
			m.completions.Clear()
			return m, nil
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Send):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.Complete):
		return m.handleTab()

	case key.Matches(msg, m.keyMap.Help):
		return handleHelpCommand(&m, nil)

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ScrollUp(10)
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ScrollDown(10)
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollUp):
		if m.completions.HasCompletions() {
			m.completions.Prev()
			return m, nil
		}
		m.viewport.ScrollUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollDown):
		if m.completions.HasCompletions() {
			m.completions.Next()
			return m, nil
		}
		m.viewport.ScrollDown(1)
		return m, nil
	}

	// Everything else goes to the text input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshCompletions()
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		info, ok := m.picker.Selected()
		m.picker.Hide()
		cmd := m.input.Focus()
		if ok && info.ID != m.conversation.Model {
			m.switchModel(info.ID)
			m.systemNotice(fmt.Sprintf("モデルを %s に切り替えました", info.Name))
		}
		return m, cmd
	case "esc":
		m.picker.Hide()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

// handleSubmit sends the input as a command or as a chat message.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	// Fullwidth IME input like "／ｈｅｌｐ" still counts as a command.
	if util.IsCommand(text) {
		return m.handleCommand(util.NormalizeCommand(text))
	}

	if m.busy() {
		m.toasts.AddWarning("生成中です。Esc でキャンセルできます")
		return m, nil
	}

	if m.client == nil || !m.client.HasToken() {
		m.state = StateError
		m.statusBar.SetStatus(components.StatusError)
		m.errDisplay = components.NewErrorFromErr(hf.ErrNoToken)
		m.errDisplay.SetWidth(m.width)
		return m, nil
	}

	m.input.Reset()
	m.completions.Clear()
	m.logger.Debug("sending message",
		zap.String("model", m.conversation.Model),
		zap.Int("chars", len(text)))
	return m, m.beginStream(text)
}

// handleTab accepts the selected completion, or opens the popup.
func (m Model) handleTab() (tea.Model, tea.Cmd) {
	if m.completions.HasCompletions() {
		if sel := m.completions.Selected(); sel != nil {
			m.input.SetValue(sel.Value + " ")
			m.completions.Clear()
		}
		return m, nil
	}
	m.refreshCompletions()
	return m, nil
}

// refreshCompletions recomputes the popup from the current input.
func (m *Model) refreshCompletions() {
	value := util.NormalizeCommand(m.input.Value())
	if !strings.HasPrefix(value, "/") || strings.Contains(value, " ") {
		m.completions.Clear()
		return
	}
	m.completions.SetCompletions(components.CompleteCommands(value, chatCommands))
}

// busy reports whether a request is in flight.
func (m Model) busy() bool {
	switch m.state {
	case StateSending, StateLoading, StateStreaming:
		return true
	}
	return false
}

// =============================================================================
// STREAM MESSAGE HANDLERS
// =============================================================================

// handleFirstToken switches from the thinking spinner to live streaming.
// Only the first token arrives as a message; the rest flow through the
// buffer and the tick loop.
func (m Model) handleFirstToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	m.thinking.Stop()
	m.loading.Stop()
	m.state = StateStreaming
	m.statusBar.SetStatus(components.StatusStreaming)

	// Keep waiting for the terminal event on the same channel.
	return m, waitForStreamEvent(m.streamingMsgID, m.events, m.retryAttempt)
}

// handleStreamTick drains the token buffer into the streaming message.
func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.busy() {
		return m, nil
	}

	if content, ok := m.streamBuf.Flush(); ok {
		m.conversation.AppendToLast(content)
		m.viewport.UpdateLastMessage()
	}
	return m, streamTickCmd()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.conversation.AppendToLast(content)
	}
	m.conversation.FinalizeLast(msg.Stats)
	m.viewport.SetMessages(m.conversation.Messages)
	m.viewport.ScrollToBottom()

	m.thinking.Stop()
	m.loading.Stop()
	m.streamingMsgID = ""
	m.pendingPrompt = ""
	m.state = StateIdle
	m.statusBar.SetStatus(components.StatusReady)
	m.refreshTokenUsage()
	m.sessions.RecordActivity()
	m.sessions.MarkDirty()

	if msg.Stats != nil {
		m.logger.Debug("stream complete",
			zap.Int("tokens", msg.Stats.CompletionTokens),
			zap.Duration("total", msg.Stats.TotalDuration))
	}

	var save tea.Cmd
	if m.cfg.Chat.AutoSave {
		save = m.saveConversation()
	}
	return m, save
}

func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	m.thinking.Stop()
	m.loading.Stop()
	m.streamBuf.Reset()

	// Drop the empty placeholder so a failed request leaves no husk.
	if last := m.conversation.GetLastMessage(); last != nil && last.IsStreaming && last.IsEmpty() {
		m.conversation.DropLastMessage()
	} else if last != nil && last.IsStreaming {
		m.conversation.FinalizeLast(nil)
	}
	m.viewport.SetMessages(m.conversation.Messages)
	m.streamingMsgID = ""
	m.pendingPrompt = ""

	m.logger.Warn("stream failed", zap.Error(msg.Error))

	m.state = StateError
	m.statusBar.SetStatus(components.StatusError)
	m.errDisplay = components.NewErrorFromErr(msg.Error)
	m.errDisplay.SetWidth(m.width)
	return m, nil
}

// handleModelLoading parks the chat in the loading state and schedules a
// retry once the reported estimate (or a floor of five seconds) passes.
func (m Model) handleModelLoading(msg ModelLoadingMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	m.thinking.Stop()

	if msg.Attempt >= m.cfg.API.MaxRetries {
		return m.handleStreamError(StreamErrorMsg{
			MessageID: msg.MessageID,
			Error:     fmt.Errorf("モデルの読み込みが %d 回の再試行後も完了しませんでした", msg.Attempt),
		})
	}

	wait := msg.EstimatedTime
	if wait < 5*time.Second {
		wait = 5 * time.Second
	}

	m.state = StateLoading
	m.statusBar.SetStatus(components.StatusLoading)
	m.loading = components.NewModelLoadingSpinner(model.DisplayName(m.conversation.Model), wait)

	m.logger.Info("model cold start",
		zap.String("model", m.conversation.Model),
		zap.Duration("estimated", wait),
		zap.Int("attempt", msg.Attempt))

	return m, tea.Batch(
		m.loading.Start(),
		retryAfterCmd(msg.MessageID, wait, msg.Attempt+1),
	)
}

func (m Model) handleStreamRetry(msg retryStreamMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID || m.state != StateLoading {
		return m, nil
	}

	m.loading.Stop()
	m.retryAttempt = msg.Attempt
	return m, m.issueStream()
}

// =============================================================================
// PERSISTENCE AND SESSION HANDLERS
// =============================================================================

func (m Model) handleConversationSaved(msg ConversationSavedMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.toasts.AddError("保存に失敗しました: " + msg.Error.Error())
		return m, nil
	}
	m.savedID = msg.ID
	m.sessions.MarkClean()
	m.toasts.AddSuccess("会話を保存しました [" + msg.ID + "]")
	return m, nil
}

func (m Model) handleConversationLoaded(msg ConversationLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.toasts.AddError("読み込みに失敗しました: " + msg.Error.Error())
		return m, nil
	}

	m.conversation = msg.Conversation
	m.savedID = msg.Conversation.ID
	m.showWelcome = false
	m.sessions.MarkClean()
	m.switchModel(msg.Conversation.Model)
	m.viewport.SetMessages(m.conversation.Messages)
	m.viewport.ScrollToBottom()
	m.refreshTokenUsage()
	m.toasts.AddSuccess("会話を読み込みました: " + m.conversation.GetTitle())
	return m, nil
}

func (m Model) handleSessionTick() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.sessions.HandleTick() {
	case session.EventWarn:
		m.toasts.AddWarning("しばらく操作がありません。あと " +
			session.FormatRemaining(m.sessions.RemainingTime()) + " でセッションを終了します")
	case session.EventExpire:
		m.quitting = true
		if m.cfg.Chat.AutoSave && m.sessions.IsDirty() {
			return m, tea.Sequence(m.saveConversation(), tea.Quit)
		}
		return m, tea.Quit
	case session.EventAutoSave:
		if m.sessions.IsDirty() {
			cmd = m.saveConversation()
		}
	}
	return m, tea.Batch(cmd, session.TickCmd())
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

func (m Model) showError(msg ErrorMsg) (tea.Model, tea.Cmd) {
	m.state = StateError
	m.statusBar.SetStatus(components.StatusError)
	m.errDisplay = components.NewError(msg.Title, msg.Message)
	if len(msg.Suggestions) > 0 {
		m.errDisplay = m.errDisplay.WithSuggestions(msg.Suggestions)
	}
	m.errDisplay.SetWidth(m.width)
	return m, nil
}
