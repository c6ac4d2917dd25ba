package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/card-catalog-client/internal/testutil"
	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/Sternrassler/card-catalog-client/pkg/client"
	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLoader returns scripted outcomes, then Exhausted.
type stubLoader struct {
	mu       sync.Mutex
	outcomes []pagination.Outcome
	calls    int
	busy     bool
}

func (l *stubLoader) LoadNext(ctx context.Context) (pagination.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if len(l.outcomes) == 0 {
		return pagination.Exhausted, nil
	}
	o := l.outcomes[0]
	l.outcomes = l.outcomes[1:]
	return o, nil
}

func (l *stubLoader) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}

func (l *stubLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func quietOptions(onLoad func(pagination.Outcome, error)) Options {
	logger := zerolog.Nop()
	return Options{OnLoad: onLoad, Logger: &logger}
}

func TestBind_Unavailable(t *testing.T) {
	b, err := Bind(context.Background(), Unavailable{}, &stubLoader{}, quietOptions(nil))
	assert.Nil(t, b)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestBind_RequiresArguments(t *testing.T) {
	_, err := Bind(context.Background(), nil, &stubLoader{}, Options{})
	assert.Error(t, err)

	_, err = Bind(context.Background(), NewManual(), nil, Options{})
	assert.Error(t, err)
}

func TestManual_FireLoadsOnePage(t *testing.T) {
	loader := &stubLoader{outcomes: []pagination.Outcome{pagination.Loaded}}
	var got []pagination.Outcome

	m := NewManual()
	b, err := Bind(context.Background(), m, loader, quietOptions(func(o pagination.Outcome, err error) {
		got = append(got, o)
	}))
	require.NoError(t, err)
	defer b.Close()

	assert.True(t, m.Fire())
	assert.Equal(t, 1, loader.Calls())
	assert.Equal(t, []pagination.Outcome{pagination.Loaded}, got)

	assert.True(t, m.Fire())
	assert.Equal(t, []pagination.Outcome{pagination.Loaded, pagination.Exhausted}, got)
}

func TestManual_UnarmedFire(t *testing.T) {
	assert.False(t, NewManual().Fire())
}

func TestBind_SkipsWhileBusy(t *testing.T) {
	loader := &stubLoader{busy: true}
	m := NewManual()
	b, err := Bind(context.Background(), m, loader, quietOptions(nil))
	require.NoError(t, err)

	m.Fire()
	m.Fire()
	assert.Equal(t, 0, loader.Calls())

	fired, skipped := b.Fired()
	assert.Equal(t, int64(2), fired)
	assert.Equal(t, int64(2), skipped)
}

func TestBind_CloseDisarms(t *testing.T) {
	loader := &stubLoader{}
	m := NewManual()
	b, err := Bind(context.Background(), m, loader, quietOptions(nil))
	require.NoError(t, err)

	b.Close()
	b.Close()
	assert.False(t, m.Fire())
	assert.Equal(t, 0, loader.Calls())
}

func TestBind_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loader := &stubLoader{}
	m := NewManual()
	_, err := Bind(ctx, m, loader, quietOptions(nil))
	require.NoError(t, err)

	cancel()
	m.Fire()
	assert.Equal(t, 0, loader.Calls())
}

func TestSentinel_FiresOnTransitions(t *testing.T) {
	s := NewSentinel()
	fired := make(chan struct{}, 10)
	require.NoError(t, s.Arm(func() { fired <- struct{}{} }))

	s.Report(true)
	waitFired(t, fired)

	// Staying visible is not a transition
	s.Report(true)
	assertNotFired(t, fired)

	s.Report(false)
	assertNotFired(t, fired)

	s.Report(true)
	waitFired(t, fired)
}

func TestSentinel_RearmSettledByNextReport(t *testing.T) {
	s := NewSentinel()
	fired := make(chan struct{}, 10)
	require.NoError(t, s.Arm(func() { fired <- struct{}{} }))

	s.Report(true)
	waitFired(t, fired)

	// Rearm alone does not trust the visibility measured before the load
	s.Rearm()
	assert.True(t, s.Pending())
	assertNotFired(t, fired)

	// Still visible in the new layout
	s.Report(true)
	waitFired(t, fired)
	assert.False(t, s.Pending())

	// The new page pushed the sentinel out of view
	s.Rearm()
	s.Report(false)
	assertNotFired(t, fired)
	assert.False(t, s.Pending())

	s.Report(false)
	assertNotFired(t, fired)
}

func TestSentinel_ArmWhileVisibleFires(t *testing.T) {
	s := NewSentinel()
	s.Report(true)
	assert.True(t, s.Visible())

	fired := make(chan struct{}, 1)
	require.NoError(t, s.Arm(func() { fired <- struct{}{} }))
	waitFired(t, fired)
}

func TestSentinel_Disarm(t *testing.T) {
	s := NewSentinel()
	fired := make(chan struct{}, 1)
	require.NoError(t, s.Arm(func() { fired <- struct{}{} }))
	s.Disarm()

	s.Report(true)
	s.Rearm()
	assertNotFired(t, fired)
}

func TestSentinel_KeepsLoadingWhileVisible(t *testing.T) {
	loader := &stubLoader{outcomes: []pagination.Outcome{
		pagination.Loaded, pagination.Loaded, pagination.Loaded,
	}}

	s := NewSentinel()
	s.Report(true)

	// Renderer that never fills the viewport: it re-measures after each load
	opts := quietOptions(func(pagination.Outcome, error) { s.Report(true) })
	opts.RearmAfterLoad = true

	b, err := Bind(context.Background(), s, loader, opts)
	require.NoError(t, err)
	defer b.Close()

	// Three loads plus the one that reports exhaustion, then the chain stops
	require.Eventually(t, func() bool { return loader.Calls() == 4 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 4, loader.Calls())
}

func TestSentinel_WaitsForLayoutAfterLoad(t *testing.T) {
	loader := &stubLoader{outcomes: []pagination.Outcome{
		pagination.Loaded, pagination.Loaded, pagination.Loaded, pagination.Loaded, pagination.Loaded,
	}}

	s := NewSentinel()
	rendered := make(chan pagination.Outcome)
	done := make(chan struct{})

	// Renderer on its own goroutine: the first page fills the viewport, so
	// the layout pass a little later reports the sentinel off screen
	go func() {
		defer close(done)
		for range rendered {
			time.Sleep(2 * time.Millisecond)
			s.Report(false)
		}
	}()

	opts := quietOptions(func(o pagination.Outcome, err error) { rendered <- o })
	opts.RearmAfterLoad = true
	b, err := Bind(context.Background(), s, loader, opts)
	require.NoError(t, err)

	s.Report(true)
	require.Eventually(t, func() bool { return loader.Calls() >= 1 }, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	b.Close()
	close(rendered)
	<-done

	assert.Equal(t, 1, loader.Calls(), "one load per visibility transition")
	assert.False(t, s.Visible())
}

func TestBind_NoRearmByDefault(t *testing.T) {
	loader := &stubLoader{outcomes: []pagination.Outcome{pagination.Loaded, pagination.Loaded}}

	s := NewSentinel()
	s.Report(true)
	b, err := Bind(context.Background(), s, loader, quietOptions(nil))
	require.NoError(t, err)
	defer b.Close()

	require.Eventually(t, func() bool { return loader.Calls() == 1 }, 2*time.Second, time.Millisecond)
	assert.False(t, s.Pending())

	// The renderer owns the re-arm: Rearm plus a fresh report loads again
	b.Rearm()
	s.Report(true)
	require.Eventually(t, func() bool { return loader.Calls() == 2 }, 2*time.Second, time.Millisecond)
}

func TestSentinel_DrivesController(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPartition("OP01", testutil.MakeCards("OP01", 5))
	mock.SetPartition("OP02", testutil.MakeCards("OP02", 2))

	cfg := client.DefaultConfig(mock.URL(), "TriggerTest/1.0")
	cfg.RequestsPerSecond = 0
	c, err := client.New(cfg)
	require.NoError(t, err)
	defer c.Close()

	logger := zerolog.Nop()
	ctrl, err := pagination.New(c, pagination.Options{Logger: &logger})
	require.NoError(t, err)

	ctx := context.Background()
	outcome, err := ctrl.Initialize(ctx, catalog.Sequence{"OP01", "OP02"}, 2)
	require.NoError(t, err)
	require.Equal(t, pagination.Loaded, outcome)

	s := NewSentinel()
	// Sentinel stays on screen: every layout pass reports it visible
	opts := quietOptions(func(pagination.Outcome, error) { s.Report(true) })
	opts.RearmAfterLoad = true
	b, err := Bind(ctx, s, ctrl, opts)
	require.NoError(t, err)
	defer b.Close()

	s.Report(true)
	require.Eventually(t, func() bool {
		return ctrl.State().Phase == pagination.PhaseExhausted && !ctrl.Busy()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Len(t, ctrl.Items(), 7)
}

func waitFired(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not fire")
	}
}

func assertNotFired(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Error("trigger fired unexpectedly")
	case <-time.After(30 * time.Millisecond):
	}
}
