package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

type fakeService struct {
	mu    sync.Mutex
	rows  []Row
	calls []string
	fail  map[string]error
}

func newFakeService(rows ...Row) *fakeService {
	return &fakeService{rows: rows, fail: make(map[string]error)}
}

func (f *fakeService) List(context.Context) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["list"]; err != nil {
		return nil, err
	}
	return append([]Row(nil), f.rows...), nil
}

func (f *fakeService) Activate(_ context.Context, id string) error {
	return f.set(id, "activate", module.StatusActive)
}

func (f *fakeService) Deactivate(_ context.Context, id string) error {
	return f.set(id, "deactivate", module.StatusInactive)
}

func (f *fakeService) Uninstall(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "uninstall:"+id)
	if err := f.fail["uninstall"]; err != nil {
		return err
	}
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeService) set(id, call string, status module.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call+":"+id)
	if err := f.fail[call]; err != nil {
		return err
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Status = status
		}
	}
	return nil
}

func sampleRows() []Row {
	return []Row{
		{ID: "Core", Name: "Core", Priority: 100, Core: true, Status: module.StatusActive, State: "booted"},
		{ID: "Blog", Name: "Blog", Version: "1.0.0", Priority: 10, Status: module.StatusInactive, State: "booted"},
		{ID: "Shop", Name: "Shop", Version: "2.1.0", Status: module.StatusInactive, State: "registered"},
	}
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(sampleRows(), newFakeService())

	assert.Equal(t, ViewList, m.GetViewMode())
	assert.Len(t, m.Rows(), 3)
	assert.True(t, m.useUnicode)

	selected, ok := m.GetSelectedModule()
	require.True(t, ok)
	assert.Equal(t, "Core", selected.ID)
}

func TestCountByStatus(t *testing.T) {
	m := NewModel(sampleRows(), nil)
	counts := m.CountByStatus()
	assert.Equal(t, 1, counts[module.StatusActive])
	assert.Equal(t, 2, counts[module.StatusInactive])
}

func TestCursorWraps(t *testing.T) {
	m := NewModel(sampleRows(), nil)

	m.MoveCursorUp()
	assert.Equal(t, 2, m.cursor)
	m.MoveCursorDown()
	assert.Equal(t, 0, m.cursor)

	m.SetCursor(1)
	assert.Equal(t, 1, m.cursor)
	m.SetCursor(10)
	assert.Equal(t, 1, m.cursor)

	empty := NewModel(nil, nil)
	empty.MoveCursorDown()
	assert.Equal(t, 0, empty.cursor)
}

func TestSetRowsKeepsCursorOnModule(t *testing.T) {
	m := NewModel(sampleRows(), nil)
	m.SetCursor(2)

	rows := sampleRows()
	m.setRows([]Row{rows[2], rows[0]})

	selected, ok := m.GetSelectedModule()
	require.True(t, ok)
	assert.Equal(t, "Shop", selected.ID)
}

func TestSetRowsLeavesDetailWhenModuleGone(t *testing.T) {
	m := NewModel(sampleRows(), nil)
	m.selectedID = "Blog"
	m.viewMode = ViewDetail

	rows := sampleRows()
	m.setRows([]Row{rows[0]})

	assert.Equal(t, ViewList, m.GetViewMode())
	assert.Empty(t, m.selectedID)
}

func TestLoadModulesCmd(t *testing.T) {
	svc := newFakeService(sampleRows()...)
	msg := loadModulesCmd(context.Background(), svc)()

	loaded, ok := msg.(ModulesLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Error)
	assert.Len(t, loaded.Rows, 3)

	msg = loadModulesCmd(context.Background(), nil)()
	loaded, ok = msg.(ModulesLoadedMsg)
	require.True(t, ok)
	assert.Error(t, loaded.Error)
}

func TestActionCmd(t *testing.T) {
	svc := newFakeService(sampleRows()...)

	msg := actionCmd(context.Background(), svc, ActionActivate, "Blog")()
	assert.Equal(t, ActionCompleteMsg{Action: ActionActivate, ModuleID: "Blog"}, msg)

	svc.fail["deactivate"] = errors.New("core module")
	msg = actionCmd(context.Background(), svc, ActionDeactivate, "Core")()
	failed, ok := msg.(ActionErrorMsg)
	require.True(t, ok)
	assert.EqualError(t, failed.Error, "core module")

	msg = actionCmd(context.Background(), svc, Action("publish"), "Blog")()
	_, ok = msg.(ActionErrorMsg)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg = actionCmd(ctx, svc, ActionDeactivate, "Core")()
	assert.Equal(t, ActionCancelledMsg{Action: ActionDeactivate, ModuleID: "Core"}, msg)

	assert.Equal(t, []string{"activate:Blog", "deactivate:Core", "deactivate:Core"}, svc.calls)
}
