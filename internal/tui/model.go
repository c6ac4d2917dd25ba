// Package tui is the interactive terminal browser for the card catalog.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/Sternrassler/card-catalog-client/pkg/navigation"
	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
	"github.com/Sternrassler/card-catalog-client/pkg/trigger"
)

// LoadedMsg reports a finished load, whoever started it.
type LoadedMsg struct {
	Outcome pagination.Outcome
	Err     error

	// Reset is set for loads that replaced the list (start, search)
	Reset bool
}

// Options configures the browser.
type Options struct {
	Sequence catalog.Sequence
	PageSize int
	Logger   *zerolog.Logger
}

// Model is the browser state.
type Model struct {
	ctx    context.Context
	ctrl   *pagination.Controller
	cursor *navigation.Cursor[catalog.Card]
	opts   Options
	logger zerolog.Logger

	sentinel *trigger.Sentinel
	manual   *trigger.Manual
	rearm    func()

	items    []catalog.Card
	state    pagination.State
	selected int
	offset   int
	width    int
	height   int

	search    textinput.Model
	searching bool
	spinner   spinner.Model
	help      help.Model
	err       error
}

// New creates the browser model. sentinel is reported on every render;
// manual fires on the "load more" key. Either may be nil.
func New(ctx context.Context, ctrl *pagination.Controller, sentinel *trigger.Sentinel, manual *trigger.Manual, opts Options) Model {
	logger := log.With().Str("component", "tui").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if len(opts.Sequence) == 0 {
		opts.Sequence = catalog.DefaultSequence()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = pagination.DefaultPageSize
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = `name:Luffy color:Red cost:4 type:"Leader"`
	ti.CharLimit = 200
	ti.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.accent

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		cursor:   navigation.NewCursor[catalog.Card](ctrl),
		opts:     opts,
		logger:   logger,
		sentinel: sentinel,
		manual:   manual,
		search:   ti,
		spinner:  s,
		help:     help.New(),
		state:    ctrl.State(),
	}
}

// SetRearm installs the hook called after a load that grew the list. Update
// reports the new layout right after, so a sentinel that is still visible
// asks for the next page.
func (m *Model) SetRearm(fn func()) {
	m.rearm = fn
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initialize())
}

func (m Model) initialize() tea.Cmd {
	ctrl, ctx, opts := m.ctrl, m.ctx, m.opts
	return func() tea.Msg {
		outcome, err := ctrl.Initialize(ctx, opts.Sequence, opts.PageSize)
		return LoadedMsg{Outcome: outcome, Err: err, Reset: true}
	}
}

func (m Model) submitSearch(filters catalog.Filters) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		outcome, err := ctrl.SubmitSearch(ctx, filters)
		return LoadedMsg{Outcome: outcome, Err: err, Reset: true}
	}
}

func (m Model) loadMore() tea.Cmd {
	manual := m.manual
	if manual == nil {
		return nil
	}
	return func() tea.Msg {
		// Result arrives as a LoadedMsg through the binding
		manual.Fire()
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampOffset()

	case LoadedMsg:
		m.applyLoad(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if m.searching {
			cmds = append(cmds, m.updateSearch(msg))
			break
		}
		if _, open := m.cursor.Selected(); open {
			cmds = append(cmds, m.updateDetail(msg))
			break
		}
		cmds = append(cmds, m.updateList(msg))
	}

	m.reportVisibility()
	return m, tea.Batch(cmds...)
}

func (m *Model) applyLoad(msg LoadedMsg) {
	m.items = m.ctrl.Items()
	m.state = m.ctrl.State()

	if msg.Reset {
		m.selected = 0
		m.offset = 0
	}
	m.clampOffset()

	switch {
	case msg.Err != nil:
		m.err = msg.Err
	case msg.Outcome == pagination.Loaded || msg.Outcome == pagination.NoResults:
		m.err = nil
	}

	if msg.Outcome == pagination.Loaded && m.rearm != nil {
		m.rearm()
	}

	m.logger.Debug().
		Str("outcome", msg.Outcome.String()).
		Int("items", len(m.items)).
		Msg("List refreshed")
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Up):
		m.move(-1)
	case key.Matches(msg, keys.Down):
		m.move(1)
	case key.Matches(msg, keys.PageUp):
		m.move(-m.rows())
	case key.Matches(msg, keys.PageDown):
		m.move(m.rows())
	case key.Matches(msg, keys.Search):
		m.searching = true
		m.search.SetValue(m.state.Filters.String())
		m.search.CursorEnd()
		return m.search.Focus()
	case key.Matches(msg, keys.Open):
		if m.selected < len(m.items) {
			m.cursor.Select(m.items[m.selected])
		}
	case key.Matches(msg, keys.More):
		return m.loadMore()
	}
	return nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return nil
	case tea.KeyEnter:
		filters, err := catalog.ParseFilters(m.search.Value())
		if err != nil {
			m.err = err
			return nil
		}
		m.searching = false
		m.search.Blur()
		m.err = nil
		return m.submitSearch(filters)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *Model) updateDetail(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit) && msg.String() == "ctrl+c":
		return tea.Quit
	case key.Matches(msg, keys.Close), key.Matches(msg, keys.Quit):
		m.cursor.Close()
	case key.Matches(msg, keys.Prev):
		if card, ok := m.cursor.Previous(); ok {
			m.follow(card)
		}
	case key.Matches(msg, keys.Next):
		if card, ok := m.cursor.Next(); ok {
			m.follow(card)
		}
	}
	return nil
}

// follow moves the list highlight to card.
func (m *Model) follow(card catalog.Card) {
	for i, c := range m.items {
		if c.Identity() == card.Identity() {
			m.selected = i
			m.clampOffset()
			return
		}
	}
}

func (m *Model) move(delta int) {
	m.selected += delta
	if m.selected >= len(m.items) {
		m.selected = len(m.items) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.clampOffset()
}

// rows is the number of list rows that fit on screen.
func (m Model) rows() int {
	if m.height == 0 {
		return 20
	}
	// header, status line, help line
	if r := m.height - 4; r > 1 {
		return r
	}
	return 1
}

func (m *Model) clampOffset() {
	rows := m.rows()
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// sentinelVisible reports whether the row after the last card is on screen.
func (m Model) sentinelVisible() bool {
	return m.offset+m.rows() > len(m.items)
}

func (m Model) reportVisibility() {
	if m.sentinel == nil {
		return
	}
	m.sentinel.Report(m.sentinelVisible())
}

// Items returns the cards currently shown.
func (m Model) Items() []catalog.Card {
	return m.items
}

// Err returns the last load or input error.
func (m Model) Err() error {
	return m.err
}

func statusText(s pagination.State, itemCount int) string {
	var b strings.Builder
	switch s.Mode {
	case pagination.ModeSearch:
		b.WriteString("search")
		if f := s.Filters.String(); f != "" {
			b.WriteString(" [" + f + "]")
		}
	default:
		b.WriteString("browsing")
		if s.Partition != "" {
			b.WriteString(" " + string(s.Partition))
		}
	}
	switch {
	case s.NoResults:
		b.WriteString(" · no cards match")
	case s.Phase == pagination.PhaseExhausted:
		b.WriteString(" · all loaded")
	}
	b.WriteString(" · ")
	b.WriteString(strconv.Itoa(itemCount))
	b.WriteString(" cards")
	return b.String()
}

var errNoController = errors.New("controller is required")
