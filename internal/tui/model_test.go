package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/card-catalog-client/internal/testutil"
	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
	"github.com/Sternrassler/card-catalog-client/pkg/trigger"
)

// memoryGateway serves partitions from memory; search matches by name.
type memoryGateway struct {
	partitions map[catalog.Partition][]catalog.Card
}

func (g memoryGateway) FetchByPartition(ctx context.Context, p catalog.Partition, page, pageSize int) (catalog.PageResult, error) {
	return testutil.Paginate(g.partitions[p], page, pageSize), nil
}

func (g memoryGateway) FetchByFilter(ctx context.Context, f catalog.Filters, page, pageSize int) (catalog.PageResult, error) {
	var hits []catalog.Card
	for _, cards := range g.partitions {
		for _, c := range cards {
			if strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Name)) {
				hits = append(hits, c)
			}
		}
	}
	return testutil.Paginate(hits, page, pageSize), nil
}

func newTestModel(t *testing.T, sentinel *trigger.Sentinel, manual *trigger.Manual) (Model, *pagination.Controller) {
	t.Helper()
	gw := memoryGateway{partitions: map[catalog.Partition][]catalog.Card{
		"OP01": testutil.MakeCards("OP01", 5),
		"OP02": testutil.MakeCards("OP02", 3),
	}}
	gw.partitions["OP02"][1].Name = "Monkey D. Luffy"

	logger := zerolog.Nop()
	ctrl, err := pagination.New(gw, pagination.Options{Logger: &logger})
	require.NoError(t, err)

	m := New(context.Background(), ctrl, sentinel, manual, Options{
		Sequence: catalog.Sequence{"OP01", "OP02"},
		PageSize: 4,
		Logger:   &logger,
	})
	return m, ctrl
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// drain runs cmd and feeds every LoadedMsg it produces back into the model.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case LoadedMsg:
		m, _ = update(t, m, msg)
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	}
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_InitialLoad(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = drain(t, m, m.initialize())

	assert.Len(t, m.Items(), 4)
	assert.NoError(t, m.Err())
	assert.Contains(t, m.View(), "OP01-001")
	assert.Contains(t, m.View(), "browsing OP01")
}

func TestModel_SentinelVisibility(t *testing.T) {
	s := trigger.NewSentinel()
	m, _ := newTestModel(t, s, nil)

	// Room for 2 rows: 4 cards push the sentinel off screen
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 6})
	m = drain(t, m, m.initialize())
	assert.False(t, s.Visible())

	// Room for 10 rows: the sentinel is on screen
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 14})
	assert.True(t, s.Visible())

	// Scrolling to the bottom of a short viewport reveals it too
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 6})
	assert.False(t, s.Visible())
	for i := 0; i < 3; i++ {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.False(t, s.Visible(), "last card on the last row")
	_ = m
}

func TestModel_RearmUsesLayoutAfterLoad(t *testing.T) {
	tests := []struct {
		name     string
		height   int
		wantFire bool
	}{
		{"page fills viewport", 6, false},
		{"viewport still has room", 14, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := trigger.NewSentinel()
			fired := make(chan struct{}, 10)
			require.NoError(t, s.Arm(func() { fired <- struct{}{} }))

			m, _ := newTestModel(t, s, nil)
			m.SetRearm(s.Rearm)

			// Empty list: the sentinel starts on screen
			m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: tt.height})
			waitSignal(t, fired)

			m = drain(t, m, m.initialize())
			assert.Len(t, m.Items(), 4)
			assert.False(t, s.Pending())

			select {
			case <-fired:
				assert.True(t, tt.wantFire, "sentinel fired although the page filled the viewport")
			case <-time.After(50 * time.Millisecond):
				assert.False(t, tt.wantFire, "sentinel did not fire with room left")
			}
		})
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("sentinel did not fire")
	}
}

func TestModel_SearchAndReset(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = drain(t, m, m.initialize())

	m, _ = update(t, m, keyRunes("/"))
	assert.True(t, m.searching)

	m, _ = update(t, m, keyRunes("luffy"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	m = drain(t, m, cmd)

	require.Len(t, m.Items(), 1)
	assert.Equal(t, "Monkey D. Luffy", m.Items()[0].Name)
	assert.Equal(t, pagination.ModeSearch, m.state.Mode)

	// Empty search returns to browsing from the first expansion
	m, _ = update(t, m, keyRunes("/"))
	m.search.SetValue("")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, m, cmd)

	assert.Equal(t, pagination.ModeSequential, m.state.Mode)
	assert.Equal(t, "OP01-001", m.Items()[0].ID)
}

func TestModel_SearchNoResults(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = drain(t, m, m.initialize())

	m, _ = update(t, m, keyRunes("/"))
	m.search.SetValue("name:Nobody")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, m, cmd)

	assert.Empty(t, m.Items())
	assert.True(t, m.state.NoResults)
	assert.Contains(t, m.View(), "No cards match")
}

func TestModel_SearchParseError(t *testing.T) {
	m, ctrl := newTestModel(t, nil, nil)
	m = drain(t, m, m.initialize())
	before := ctrl.State()

	m, _ = update(t, m, keyRunes("/"))
	m.search.SetValue("cost:abc")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, m.searching)
	assert.Error(t, m.Err())
	assert.Equal(t, before, ctrl.State())
}

func TestModel_DetailNavigation(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	m = drain(t, m, m.initialize())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	card, open := m.cursor.Selected()
	require.True(t, open)
	assert.Equal(t, "OP01-002", card.ID)
	assert.Contains(t, m.View(), "OP01-002")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	card, _ = m.cursor.Selected()
	assert.Equal(t, "OP01-003", card.ID)
	assert.Equal(t, 2, m.selected)

	m, _ = update(t, m, keyRunes("h"))
	m, _ = update(t, m, keyRunes("h"))
	card, _ = m.cursor.Selected()
	assert.Equal(t, "OP01-001", card.ID)

	// First card: previous is a no-op
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	card, _ = m.cursor.Selected()
	assert.Equal(t, "OP01-001", card.ID)

	// q closes the overlay instead of quitting
	m, cmd := update(t, m, keyRunes("q"))
	_, open = m.cursor.Selected()
	assert.False(t, open)
	assert.Nil(t, cmd)
}

func TestModel_LoadMore(t *testing.T) {
	manual := trigger.NewManual()
	m, ctrl := newTestModel(t, nil, manual)
	m = drain(t, m, m.initialize())

	loaded := make(chan LoadedMsg, 1)
	logger := zerolog.Nop()
	b, err := trigger.Bind(context.Background(), manual, ctrl, trigger.Options{
		Logger: &logger,
		OnLoad: func(o pagination.Outcome, err error) { loaded <- LoadedMsg{Outcome: o, Err: err} },
	})
	require.NoError(t, err)
	defer b.Close()

	_, cmd := update(t, m, keyRunes("m"))
	require.NotNil(t, cmd)
	cmd()

	msg := <-loaded
	assert.Equal(t, pagination.Loaded, msg.Outcome)
	m, _ = update(t, m, msg)
	assert.Len(t, m.Items(), 5)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "browsing OP03 · 12 cards",
		statusText(pagination.State{Partition: "OP03"}, 12))
	assert.Equal(t, "search [color:Red] · all loaded · 3 cards",
		statusText(pagination.State{Mode: pagination.ModeSearch, Phase: pagination.PhaseExhausted, Filters: catalog.Filters{Color: "Red"}}, 3))
}
