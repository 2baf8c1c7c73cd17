package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/minicart/internal/cart"
	"github.com/five82/minicart/internal/prefs"
	"github.com/five82/minicart/internal/state"
)

// Intents is the synchronizer surface the UI forwards user actions to.
type Intents interface {
	Refresh(ctx context.Context) error
	ToggleOpen() bool
	ChangeQuantity(ctx context.Context, key string, delta int) error
	SetQuantityInput(ctx context.Context, key, input string) error
	RemoveItem(ctx context.Context, key string) error
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Intents Intents
	// Updates delivers every published SyncState.
	Updates <-chan state.SyncState
	// Initial is rendered until the first update arrives.
	Initial   state.SyncState
	ThemeName string
	PrefsPath string
	Logger    zerolog.Logger
}

// Model is the root application state for Bubble Tea. It renders the last
// SyncState it received and keeps only presentation state of its own.
type Model struct {
	// Configuration
	ctx       context.Context
	intents   Intents
	updates   <-chan state.SyncState
	prefsPath string
	logger    zerolog.Logger

	// Components
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	qtyInput textinput.Model

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	selected int
	editKey  string // non-empty while typing a quantity
	now      time.Time

	// Data state
	sync state.SyncState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	input := textinput.New()
	input.CharLimit = 4
	input.Width = 6
	input.Prompt = ""

	return Model{
		ctx:       ctx,
		intents:   opts.Intents,
		updates:   opts.Updates,
		prefsPath: prefsPath,
		logger:    opts.Logger,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		qtyInput:  input,
		theme:     GetTheme(opts.ThemeName),
		now:       time.Now(),
		sync:      opts.Initial,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.updates),
		tickCmd(StatusRefreshInterval),
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case stateMsg:
		m.applyState(state.SyncState(msg))
		return m, waitForState(m.updates)

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd(StatusRefreshInterval)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case intentDoneMsg:
		if msg.err != nil {
			m.logger.Debug().Err(msg.err).Str("intent", msg.intent).Msg("ui_intent_failed")
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m *Model) applyState(s state.SyncState) {
	m.sync = s
	items := m.items()
	if m.selected >= len(items) {
		m.selected = max(len(items)-1, 0)
	}
	if m.editKey != "" {
		if _, ok := s.Snapshot.Find(m.editKey); !ok || !s.IsOpen {
			m.stopEditing()
		}
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.editKey != "" {
		return m.handleEditKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.intents != nil {
			m.sync.IsOpen = m.intents.ToggleOpen()
			m.savePrefs()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.intentCmd("refresh", func(ctx context.Context) error {
			return m.intents.Refresh(ctx)
		})
	}

	if !m.sync.IsOpen {
		return m, nil
	}
	return m.handleCartKey(msg)
}

// handleCartKey processes keys that act on the open cart.
func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.items()
	if len(items) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(items)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = len(items) - 1

	case key.Matches(msg, m.keys.Increase):
		return m, m.changeQuantity(items[m.selected].Key, 1)
	case key.Matches(msg, m.keys.Decrease):
		return m, m.changeQuantity(items[m.selected].Key, -1)

	case key.Matches(msg, m.keys.Remove):
		lineKey := items[m.selected].Key
		return m, m.intentCmd("remove_item", func(ctx context.Context) error {
			return m.intents.RemoveItem(ctx, lineKey)
		})

	case key.Matches(msg, m.keys.Edit):
		item := items[m.selected]
		if !item.Limits.Editable {
			return m, nil
		}
		m.editKey = item.Key
		m.qtyInput.SetValue(itoa(item.Quantity))
		m.qtyInput.CursorEnd()
		return m, m.qtyInput.Focus()
	}

	return m, nil
}

// handleEditKey processes input while a quantity is being typed.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopEditing()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		lineKey, input := m.editKey, m.qtyInput.Value()
		m.stopEditing()
		return m, m.intentCmd("set_quantity", func(ctx context.Context) error {
			return m.intents.SetQuantityInput(ctx, lineKey, input)
		})

	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.qtyInput, cmd = m.qtyInput.Update(msg)
	return m, cmd
}

func (m *Model) stopEditing() {
	m.editKey = ""
	m.qtyInput.Blur()
	m.qtyInput.SetValue("")
}

func (m Model) changeQuantity(lineKey string, delta int) tea.Cmd {
	return m.intentCmd("change_quantity", func(ctx context.Context) error {
		return m.intents.ChangeQuantity(ctx, lineKey, delta)
	})
}

// intentCmd runs fn off the update loop. Its outcome reaches the screen
// through the next published state, not through the returned message.
func (m Model) intentCmd(name string, fn func(context.Context) error) tea.Cmd {
	if m.intents == nil {
		return nil
	}
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, IntentTimeout)
		defer cancel()
		return intentDoneMsg{intent: name, err: fn(ctx)}
	}
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, Open: m.sync.IsOpen}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn().Err(err).Msg("ui_prefs_save_failed")
	}
}

func (m Model) items() []cart.LineItem {
	if m.sync.Snapshot == nil {
		return nil
	}
	return m.sync.Snapshot.Items
}

// Messages

type tickMsg time.Time

type stateMsg state.SyncState

type intentDoneMsg struct {
	intent string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForState blocks until the store publishes. A closed or nil channel
// ends the subscription.
func waitForState(ch <-chan state.SyncState) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

// Run starts the Bubble Tea program and blocks until it exits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, progOpts...)
	_, err := p.Run()
	return err
}
