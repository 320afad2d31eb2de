package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"restorepoint/internal/checkpoint"
	"restorepoint/internal/config"
)

// fakeBackend is an in-memory Backend that records mutating calls.
type fakeBackend struct {
	mu sync.Mutex

	root        string
	initialized bool
	large       bool
	elevated    bool
	checkpoints []checkpoint.Checkpoint
	files       map[string][]checkpoint.FileStatus
	pending     bool
	identity    checkpoint.Identity
	diff        string
	backup      string
	err         error // returned by every mutating call when set

	statusCalls []string
	commits     []commitCall
	resets      []string
	deletes     []string
	reverts     []commitCall
	identities  []checkpoint.Identity
}

type commitCall struct {
	files []string
	text  string // label or checkpoint id
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		root:        "/home/user/project",
		initialized: true,
		checkpoints: []checkpoint.Checkpoint{
			{ID: "c3c3c3c", Age: "1 minute ago", Label: "third"},
			{ID: "b2b2b2b", Age: "2 hours ago", Label: "second"},
			{ID: "a1a1a1a", Age: "3 days ago", Label: "first"},
		},
		files: map[string][]checkpoint.FileStatus{
			"c3c3c3c": {
				{Code: "M", Path: "main.go"},
				{Code: "??", Path: "notes.txt"},
			},
			"b2b2b2b": {
				{Code: "D", Path: "old.go"},
			},
		},
		identity: checkpoint.Identity{Name: "Test User", Email: "test@example.com"},
		diff:     "diff --git a/main.go b/main.go\n@@ -1 +1 @@\n-old\n+new",
		backup:   "bak_20261015_134501",
	}
}

func (f *fakeBackend) Root() string                         { return f.root }
func (f *fakeBackend) Initialized() bool                    { return f.initialized }
func (f *fakeBackend) IsLargeDirectory() (bool, int, error) { return f.large, 501, nil }
func (f *fakeBackend) NeedsElevation() bool                 { return f.elevated }

func (f *fakeBackend) List(context.Context) ([]checkpoint.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkpoints, nil
}

func (f *fakeBackend) Status(_ context.Context, id string) ([]checkpoint.FileStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, id)
	return f.files[id], nil
}

func (f *fakeBackend) Diff(context.Context, string, string) (string, error) {
	return f.diff, nil
}

func (f *fakeBackend) HasPendingChanges(context.Context) (bool, error) {
	return f.pending, nil
}

func (f *fakeBackend) Commit(_ context.Context, files []string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, commitCall{files: files, text: message})
	return f.err
}

func (f *fakeBackend) ResetToCheckpoint(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, id)
	return f.backup, f.err
}

func (f *fakeBackend) RevertFiles(_ context.Context, id string, files []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverts = append(f.reverts, commitCall{files: files, text: id})
	return f.err
}

func (f *fakeBackend) DeleteCheckpoint(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.err
}

func (f *fakeBackend) Identity(context.Context) (checkpoint.Identity, error) {
	return f.identity, nil
}

func (f *fakeBackend) SetIdentity(_ context.Context, id checkpoint.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities = append(f.identities, id)
	return f.err
}

// newTestModel returns a sized model that has completed its first refresh.
func newTestModel(t *testing.T) (Model, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	return loadedModel(t, backend), backend
}

func loadedModel(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := NewModel(&config.Config{Theme: "mocha"}, backend, nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return deliver(t, m, m.Init())
}

// update feeds msg to the model and returns the new model.
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

// press sends a key and returns the new model with the resulting command.
func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+d":
		msg = tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+r":
		msg = tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// typeText types s into the focused input one rune at a time.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// collect runs cmd and any batched commands, returning the messages the
// backend produced. Spinner ticks and cursor blinks are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case refreshedMsg, filesLoadedMsg, diffLoadedMsg, operationDoneMsg, logEntryMsg, tea.QuitMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

// deliver runs cmd and feeds the backend messages back into the model.
func deliver(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		m = update(t, m, msg)
	}
	return m
}

// only returns the single backend message produced by cmd.
func only[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	msgs := collect(cmd)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages %v, want 1", len(msgs), msgs)
	}
	msg, ok := msgs[0].(T)
	if !ok {
		t.Fatalf("got %T, want %T", msgs[0], *new(T))
	}
	return msg
}
