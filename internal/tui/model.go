package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"restorepoint/internal/checkpoint"
	"restorepoint/internal/config"
	"restorepoint/internal/logging"
)

// Backend is the checkpoint API the TUI drives. *checkpoint.Manager
// implements it. Calls are made from tea.Cmds, one at a time.
type Backend interface {
	Root() string
	Initialized() bool
	IsLargeDirectory() (bool, int, error)
	NeedsElevation() bool
	List(ctx context.Context) ([]checkpoint.Checkpoint, error)
	Status(ctx context.Context, id string) ([]checkpoint.FileStatus, error)
	Diff(ctx context.Context, id, file string) (string, error)
	HasPendingChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, files []string, message string) error
	ResetToCheckpoint(ctx context.Context, id string) (string, error)
	RevertFiles(ctx context.Context, id string, files []string) error
	DeleteCheckpoint(ctx context.Context, id string) error
	Identity(ctx context.Context) (checkpoint.Identity, error)
	SetIdentity(ctx context.Context, id checkpoint.Identity) error
}

// StatusLevel selects the status bar icon and color.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (l StatusLevel) String() string {
	switch l {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "info"
	}
}

// focusArea is the panel receiving navigation keys.
type focusArea int

const (
	focusCheckpoints focusArea = iota
	focusFiles
)

// dialogKind is the modal currently shown, if any.
type dialogKind int

const (
	dialogNone dialogKind = iota
	dialogConfirm
	dialogLabel
	dialogIdentityName
	dialogIdentityEmail
)

const maxLogEntries = 200

// Model represents the TUI application state.
type Model struct {
	width  int
	height int
	styles *Styles

	backend Backend
	logger  *logging.ScopedLogger
	logs    <-chan logging.LogEntry

	checkpointList     list.Model
	checkpointDelegate checkpointDelegate
	checkpoints        []checkpoint.Checkpoint
	files              []checkpoint.FileStatus
	filesFor           string // checkpoint id the file list belongs to
	fileCursor         int
	marked             map[string]bool
	focus              focusArea
	pending            bool
	identity           checkpoint.Identity
	loaded             bool

	// working is set while a backend call started by the model is running;
	// stale records a refresh requested meanwhile.
	working   bool
	stale     bool
	currentOp string

	statusLevel   StatusLevel
	statusMessage string
	statusSpinner spinner.Model

	logPanelOpen bool
	logEntries   []logging.LogEntry

	diffOpen  bool
	diffTitle string
	diffView  viewport.Model

	dialog         dialogKind
	confirmAction  string
	confirmTarget  string
	confirmMessage string
	confirmFiles   []string
	input          textinput.Model
	labelFiles     []string
	draftIdentity  checkpoint.Identity
	labelAfterID   bool

	lastCtrlCTime time.Time
}

// NewModel creates a TUI model for backend. logs may be nil.
func NewModel(cfg *config.Config, backend Backend, logs logging.LogSource) Model {
	styles := NewStyles(cfg.Theme)

	delegate := newCheckpointDelegate(styles)
	checkpointList := list.New([]list.Item{}, delegate, 0, 0)
	checkpointList.SetShowTitle(false)
	checkpointList.SetShowStatusBar(false)
	checkpointList.SetFilteringEnabled(false)
	checkpointList.SetShowHelp(false)
	checkpointList.SetShowPagination(false)

	statusSpinner := spinner.New()
	statusSpinner.Spinner = spinner.MiniDot
	statusSpinner.Style = styles.AccentStyle()

	input := textinput.New()
	input.CharLimit = 200

	m := Model{
		styles:             styles,
		backend:            backend,
		logger:             logging.NopLogger(),
		checkpointList:     checkpointList,
		checkpointDelegate: delegate,
		marked:             make(map[string]bool),
		statusSpinner:      statusSpinner,
		input:              input,
		diffView:           viewport.New(0, 0),
		working:            true,
		statusLevel:        StatusLoading,
		statusMessage:      "Loading checkpoints…",
	}
	if logs != nil {
		m.logger = logs.For("tui")
		m.logs = logs.Entries()
	}
	m.logger.Info("tui initialized", "root", backend.Root())
	return m
}

// Init returns the initial command to run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshCmd(""),
		m.waitForLog(),
		m.statusSpinner.Tick,
	)
}

// selectedCheckpoint returns the highlighted checkpoint, if any.
func (m Model) selectedCheckpoint() (checkpoint.Checkpoint, bool) {
	item, ok := m.checkpointList.SelectedItem().(checkpointItem)
	if !ok {
		return checkpoint.Checkpoint{}, false
	}
	return item.checkpoint, true
}

// markedFiles returns the selected file paths in list order.
func (m Model) markedFiles() []string {
	var files []string
	for _, f := range m.files {
		if m.marked[f.Path] {
			files = append(files, f.Path)
		}
	}
	return files
}
