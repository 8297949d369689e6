// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the jpchat TUI.
package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/prompt"
	"github.com/oggata/huggingface-jp-chat-demo/internal/session"
	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/components"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateIdle      State = iota // Ready for input
	StateSending                // Request sent, waiting for the first token
	StateLoading                // Model cold start, waiting to retry
	StateStreaming              // Receiving the streamed response
	StateError                  // Showing an error
)

// barStatus maps the chat state to the status bar display value.
func (s State) barStatus() components.Status {
	switch s {
	case StateSending:
		return components.StatusSending
	case StateLoading:
		return components.StatusLoading
	case StateStreaming:
		return components.StatusStreaming
	case StateError:
		return components.StatusError
	default:
		return components.StatusReady
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configure a new chat model.
type Options struct {
	Config  *config.Config
	Client  *hf.Client
	Store   *storage.Store
	Logger  *zap.Logger
	Version string

	// Resume is an optional conversation to continue instead of starting
	// a fresh one.
	Resume *model.Conversation
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Wiring
	cfg    *config.Config
	client *hf.Client
	store  *storage.Store
	logger *zap.Logger

	// Conversation
	conversation *model.Conversation
	builder      *prompt.Builder
	sessions     *session.Manager
	savedID      string // storage ID once the conversation has been saved

	// Current stream
	streamingMsgID string
	streamBuf      *StreamingBuffer
	events         <-chan streamEvent
	cancelMgr      *cancelManager // Pointer to avoid copying the mutex during Bubble Tea updates
	pendingPrompt  string         // assembled prompt of the in-flight request, kept for cold-start retries
	retryAttempt   int

	// UI components
	header      *components.Header
	viewport    *components.ChatViewport
	input       *components.InputArea
	statusBar   *components.StatusBar
	completions *components.CompletionPopup
	picker      *components.ModelPicker
	thinking    components.Spinner
	loading     components.ModelLoadingSpinner
	errDisplay  components.ErrorDisplay
	toasts      *components.ToastManager
	welcome     components.Welcome

	// Key bindings
	keyMap KeyMap

	// Overlays
	showWelcome bool
	quitting    bool
}

// New creates a new chat model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	theme := styles.NewTheme()

	conv := opts.Resume
	if conv == nil {
		conv = model.NewConversation(cfg.Chat.Model)
	}

	builder := prompt.NewBuilder(&prompt.BuilderConfig{
		Window:      cfg.Chat.HistoryWindow,
		TokenBudget: cfg.Chat.TokenBudget,
	})

	sessCfg := session.DefaultConfig()
	sessCfg.AutoSaveEnabled = cfg.Chat.AutoSave
	sessions := session.NewManager(sessCfg)

	header := components.NewHeader(theme)
	if info, ok := model.GetModelInfo(conv.Model); ok {
		header.SetModel(info.ShortName(), info.Japanese, info.Pro)
	} else {
		header.SetModel(conv.Model, false, false)
	}

	input := components.NewInputArea(theme)
	input.Focus()

	statusBar := components.NewStatusBar(theme)
	statusBar.SetModel(model.DisplayName(conv.Model))
	statusBar.SetTokenUsage(conv.EstimateTotalTokens(), cfg.Chat.TokenBudget)

	welcome := components.NewWelcome(theme)
	welcome.SetVersion(opts.Version)
	welcome.SetModelName(model.DisplayName(conv.Model))
	if opts.Client != nil {
		welcome.SetHasToken(opts.Client.HasToken())
	}

	vp := components.NewChatViewport(theme)
	vp.SetMessages(conv.Messages)

	return Model{
		state:        StateIdle,
		theme:        theme,
		cfg:          cfg,
		client:       opts.Client,
		store:        opts.Store,
		logger:       logger,
		conversation: conv,
		builder:      builder,
		sessions:     sessions,
		streamBuf:    NewStreamingBuffer(),
		cancelMgr:    newCancelManager(),
		header:       header,
		viewport:     vp,
		input:        input,
		statusBar:    statusBar,
		completions:  components.NewCompletionPopup(theme),
		picker:       components.NewModelPicker(theme, conv.Model),
		thinking:     components.NewThinkingSpinner(),
		toasts:       components.NewToastManager(),
		welcome:      welcome,
		keyMap:       DefaultKeyMap(),
		showWelcome:  conv.IsEmpty(),
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the session timeout ticker and the toast sweep.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		session.TickCmd(),
		components.ToastTickCmd(),
	)
}

// =============================================================================
// GENERATION PARAMETERS
// =============================================================================

// generationParams builds the request parameters from the live config.
func (m Model) generationParams() hf.GenerationParams {
	return hf.GenerationParams{
		MaxLength:      m.cfg.Generation.MaxLength,
		Temperature:    m.cfg.Generation.Temperature,
		TopP:           m.cfg.Generation.TopP,
		DoSample:       m.cfg.Generation.DoSample,
		ReturnFullText: false,
	}
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

// beginStream assembles the prompt for userText, appends the user and
// placeholder assistant messages, and starts the stream. The returned
// command arms the event wait and the flush ticker.
func (m *Model) beginStream(userText string) tea.Cmd {
	promptText := m.builder.BuildForConversation(m.conversation, userText)

	m.conversation.AddUserMessage(userText)
	asst := m.conversation.AddAssistantMessage()
	m.streamingMsgID = asst.ID
	m.pendingPrompt = promptText
	m.retryAttempt = 0

	m.viewport.SetMessages(m.conversation.Messages)
	m.viewport.ScrollToBottom()
	m.sessions.RecordActivity()
	m.sessions.MarkDirty()

	return m.issueStream()
}

// issueStream starts (or restarts, on a cold-start retry) the request for
// the prompt currently pending.
func (m *Model) issueStream() tea.Cmd {
	m.streamBuf.Reset()
	events, cancel := startStream(m.client, m.conversation.Model, m.pendingPrompt, m.generationParams(), m.streamBuf)
	m.events = events
	m.cancelMgr.set(cancel)

	m.state = StateSending
	m.statusBar.SetStatus(components.StatusSending)

	return tea.Batch(
		m.thinking.Start(),
		waitForStreamEvent(m.streamingMsgID, events, m.retryAttempt),
		streamTickCmd(),
	)
}

// cancelStream aborts the in-flight request and removes the empty
// assistant placeholder.
func (m *Model) cancelStream() {
	m.cancelMgr.cancel()
	m.streamBuf.Reset()
	m.thinking.Stop()
	m.loading.Stop()

	if last := m.conversation.GetLastMessage(); last != nil && last.IsStreaming {
		if last.IsEmpty() {
			m.conversation.DropLastMessage()
		} else {
			m.conversation.FinalizeLast(nil)
		}
	}
	m.streamingMsgID = ""
	m.state = StateIdle
	m.statusBar.SetStatus(components.StatusReady)
	m.viewport.SetMessages(m.conversation.Messages)
	m.toasts.AddStatus("生成をキャンセルしました")
}

// =============================================================================
// HELPERS
// =============================================================================

// switchModel changes the active model for the conversation and updates
// every surface that displays it.
func (m *Model) switchModel(id string) {
	m.conversation.Model = id
	m.cfg.Chat.Model = id

	if info, ok := model.GetModelInfo(id); ok {
		m.header.SetModel(info.ShortName(), info.Japanese, info.Pro)
	} else {
		m.header.SetModel(id, false, false)
	}
	m.statusBar.SetModel(model.DisplayName(id))
	m.picker = components.NewModelPicker(m.theme, id)
	if m.width > 0 {
		m.picker.SetSize(m.width, m.height)
	}
}

// saveConversation persists the conversation and remembers its ID so
// later saves overwrite instead of duplicating.
func (m *Model) saveConversation() tea.Cmd {
	if m.store == nil || m.conversation.IsEmpty() {
		return nil
	}
	conv := m.conversation
	return func() tea.Msg {
		id, err := m.store.Save(conv)
		return ConversationSavedMsg{ID: id, Error: err}
	}
}

// refreshTokenUsage recomputes the prompt token estimate shown in the bar.
func (m *Model) refreshTokenUsage() {
	m.statusBar.SetTokenUsage(m.conversation.EstimateTotalTokens(), m.cfg.Chat.TokenBudget)
}

// systemNotice appends a system message and scrolls to it.
func (m *Model) systemNotice(text string) {
	m.conversation.AddMessage(model.NewSystemMessage(text))
	m.viewport.SetMessages(m.conversation.Messages)
	m.viewport.ScrollToBottom()
}

// Conversation exposes the conversation for the caller that owns the
// program, so it can offer a final save on exit.
func (m Model) Conversation() *model.Conversation {
	return m.conversation
}

// Dirty reports whether there are unsaved changes.
func (m Model) Dirty() bool {
	return m.sessions.IsDirty()
}

// streamingElapsed reports how long the current request has been running.
func (m Model) streamingElapsed() time.Duration {
	return m.thinking.GetElapsed()
}
