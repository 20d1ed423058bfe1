package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// Model is the main dashboard model
type Model struct {
	// Core data
	rows    []Row
	service ModuleService
	ctx     context.Context

	// UI state
	viewMode   ViewMode
	cursor     int
	selectedID string

	// Component state
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	// Operation state
	loading       map[string]bool
	operations    map[string]Operation
	operationCtxs map[string]context.CancelFunc
	errors        map[string]string
	showError     bool
	errorMsg      string
	refreshing    bool

	// Confirmation state
	confirmAction Action
	confirmModule string

	// Dimensions
	width  int
	height int

	useUnicode bool
}

// Operation tracks an in-progress async action
type Operation struct {
	Action    Action
	ModuleID  string
	StartedAt time.Time
}

// Option customises a Model.
type Option func(*Model)

// WithContext sets the parent context of every service call.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// WithUnicode toggles unicode status icons.
func WithUnicode(enabled bool) Option {
	return func(m *Model) { m.useUnicode = enabled }
}

// NewModel creates a new dashboard model. rows is the initial listing; Init
// reloads it from svc.
func NewModel(rows []Row, svc ModuleService, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := Model{
		rows:          append([]Row(nil), rows...),
		service:       svc,
		ctx:           context.Background(),
		viewMode:      ViewList,
		spinner:       s,
		help:          help.New(),
		keys:          defaultKeyMap(),
		loading:       make(map[string]bool),
		operations:    make(map[string]Operation),
		operationCtxs: make(map[string]context.CancelFunc),
		errors:        make(map[string]string),
		useUnicode:    true,
		width:         80,
		height:        24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadModulesCmd(m.ctx, m.service))
}

// CountByStatus returns counts of modules in each status
func (m *Model) CountByStatus() map[module.Status]int {
	counts := make(map[module.Status]int)
	for _, r := range m.rows {
		counts[r.Status]++
	}
	return counts
}

// Rows returns the displayed modules in host order.
func (m *Model) Rows() []Row {
	return append([]Row(nil), m.rows...)
}

// GetSelectedModule returns the row under the cursor
func (m *Model) GetSelectedModule() (Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.cursor], true
}

// GetModuleByID returns a row by module id
func (m *Model) GetModuleByID(id string) (Row, int, bool) {
	for i, r := range m.rows {
		if r.ID == id {
			return r, i, true
		}
	}
	return Row{}, -1, false
}

// setRows replaces the listing, keeping the cursor on the same module when
// it still exists.
func (m *Model) setRows(rows []Row) {
	current, _ := m.GetSelectedModule()
	m.rows = rows
	m.cursor = 0
	if _, i, ok := m.GetModuleByID(current.ID); ok {
		m.cursor = i
	}
	if m.selectedID != "" {
		if _, _, ok := m.GetModuleByID(m.selectedID); !ok {
			m.selectedID = ""
			if m.viewMode == ViewDetail {
				m.viewMode = ViewList
			}
		}
	}
}

// MoveCursorUp moves cursor up with wrapping
func (m *Model) MoveCursorUp() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor--
	if m.cursor < 0 {
		m.cursor = len(m.rows) - 1
	}
}

// MoveCursorDown moves cursor down with wrapping
func (m *Model) MoveCursorDown() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor++
	if m.cursor >= len(m.rows) {
		m.cursor = 0
	}
}

// SetCursor sets cursor to specific index
func (m *Model) SetCursor(index int) {
	if index >= 0 && index < len(m.rows) {
		m.cursor = index
	}
}

// IsLoading checks if a module has an action in progress
func (m *Model) IsLoading(id string) bool {
	return m.loading[id]
}

// GetError returns the last error message recorded for a module
func (m *Model) GetError(id string) string {
	return m.errors[id]
}

// GetViewMode returns the current view mode
func (m *Model) GetViewMode() ViewMode {
	return m.viewMode
}

// IsRefreshing reports whether a listing reload is in flight
func (m *Model) IsRefreshing() bool {
	return m.refreshing
}

func (m *Model) finish(id string) {
	if cancel, ok := m.operationCtxs[id]; ok {
		cancel()
	}
	delete(m.loading, id)
	delete(m.operations, id)
	delete(m.operationCtxs, id)
}

func (m *Model) cancelAll() {
	for id := range m.operationCtxs {
		m.finish(id)
	}
}
