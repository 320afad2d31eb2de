// pattern: Imperative Shell

package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"restorepoint/internal/checkpoint"
	"restorepoint/internal/events"
	"restorepoint/internal/logging"
	"restorepoint/internal/process"
)

// doubleCtrlCWindow is the maximum time between two ctrl+c presses to trigger quit.
const doubleCtrlCWindow = 500 * time.Millisecond

// statusClearDelay is how long a success message stays in the status bar.
const statusClearDelay = 4 * time.Second

// refreshedMsg carries everything shown by the main screen.
type refreshedMsg struct {
	checkpoints []checkpoint.Checkpoint
	pending     bool
	identity    checkpoint.Identity
	filesFor    string
	files       []checkpoint.FileStatus
	err         error
}

// filesLoadedMsg is sent when the changes of one checkpoint are loaded.
type filesLoadedMsg struct {
	id    string
	files []checkpoint.FileStatus
	err   error
}

// diffLoadedMsg is sent when a diff is ready for the diff view.
type diffLoadedMsg struct {
	title string
	patch string
	err   error
}

// operationDoneMsg is sent when a mutating operation completes.
type operationDoneMsg struct {
	action string
	detail string
	err    error
}

// logEntryMsg delivers one entry from the logging channel.
type logEntryMsg struct {
	entry logging.LogEntry
}

// clearStatusMsg is sent after a timed delay to clear the status bar.
type clearStatusMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		layout := ComputeLayout(m.width, m.height, m.logPanelOpen)
		m.checkpointList.SetSize(layout.List.Width, layout.ListHeight())
		m.diffView.Width = m.width
		m.diffView.Height = max(m.height-3, 1)
		return m, nil

	case spinner.TickMsg:
		if !m.working && m.statusLevel != StatusLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.statusSpinner, cmd = m.statusSpinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		return m.handleRefreshed(msg)

	case filesLoadedMsg:
		m.working = false
		if msg.err != nil {
			m.setError("Loading changes failed", msg.err)
			cmd := m.flushStale()
			return m, cmd
		}
		m.setFiles(msg.id, msg.files)
		if m.statusLevel == StatusLoading {
			m.clearStatus()
		}
		cmd := m.flushStale()
		return m, cmd

	case diffLoadedMsg:
		m.working = false
		if msg.err != nil {
			m.setError("Diff failed", msg.err)
			cmd := m.flushStale()
			return m, cmd
		}
		m.clearStatus()
		m.openDiff(msg.title, msg.patch)
		cmd := m.flushStale()
		return m, cmd

	case operationDoneMsg:
		return m.handleOperationDone(msg)

	case events.OperationStartedMsg:
		m.currentOp = msg.Operation
		return m, nil

	case events.OperationFinishedMsg:
		if m.currentOp == msg.Operation {
			m.currentOp = ""
		}
		return m, nil

	case events.WorkTreeChangedMsg:
		m.logger.Debug("work tree changed", "path", msg.Path)
		cmd := m.startWork("", m.refreshCmd(m.selectedID()))
		return m, cmd

	case logEntryMsg:
		m.logEntries = append(m.logEntries, msg.entry)
		if len(m.logEntries) > maxLogEntries {
			m.logEntries = slices.Clone(m.logEntries[len(m.logEntries)-maxLogEntries:])
		}
		return m, m.waitForLog()

	case clearStatusMsg:
		if m.statusLevel == StatusSuccess {
			m.clearStatus()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle quit shortcuts first (ctrl+d always, ctrl+c double-press)
	if msg.Type == tea.KeyCtrlD {
		return m, tea.Quit
	}
	if msg.Type == tea.KeyCtrlC {
		now := time.Now()
		if !m.lastCtrlCTime.IsZero() && now.Sub(m.lastCtrlCTime) <= doubleCtrlCWindow {
			return m, tea.Quit
		}
		m.lastCtrlCTime = now
		m.setInfo("Press ctrl+c again to quit")
		return m, nil
	}

	switch m.dialog {
	case dialogConfirm:
		return m.handleConfirmKey(msg)
	case dialogLabel, dialogIdentityName, dialogIdentityEmail:
		return m.handleInputKey(msg)
	}

	if m.diffOpen {
		return m.handleDiffKey(msg)
	}

	// Clear error with Escape
	if msg.Type == tea.KeyEscape && m.statusLevel == StatusError {
		m.clearStatus()
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "l", "L":
		m.logPanelOpen = !m.logPanelOpen
		return m.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	case "ctrl+r":
		cmd := m.startWork("Refreshing…", m.refreshCmd(m.selectedID()))
		return m, cmd
	case "i":
		m.openIdentityDialog(false, nil)
		cmd := m.input.Focus()
		return m, cmd
	}

	if m.focus == focusFiles {
		return m.handleFilesKey(msg)
	}
	return m.handleCheckpointKey(msg)
}

func (m Model) handleCheckpointKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.checkpointList.CursorUp()
		cmd := m.selectionChanged()
		return m, cmd
	case "down", "j":
		m.checkpointList.CursorDown()
		cmd := m.selectionChanged()
		return m, cmd
	case "home", "g":
		m.checkpointList.Select(0)
		cmd := m.selectionChanged()
		return m, cmd
	case "end", "G":
		m.checkpointList.Select(max(len(m.checkpoints)-1, 0))
		cmd := m.selectionChanged()
		return m, cmd
	case "tab", "right":
		if len(m.files) > 0 {
			m.setFocus(focusFiles)
		}
		return m, nil
	case "enter", "v":
		c, ok := m.selectedCheckpoint()
		if !ok {
			return m, nil
		}
		cmd := m.startWork("Loading diff…", m.diffCmd("Changes since "+c.Label, c.ID, ""))
		return m, cmd
	case "n":
		return m.beginSnapshot(nil)
	case "r":
		c, ok := m.selectedCheckpoint()
		if !ok {
			return m, nil
		}
		m.openConfirm("restore", c.ID, nil, fmt.Sprintf(
			"Restore %q?\n\nUncommitted changes are stashed and the current\nhistory is kept on a backup branch.", c.Label))
		return m, nil
	case "d":
		c, ok := m.selectedCheckpoint()
		if !ok {
			return m, nil
		}
		m.openConfirm("delete", c.ID, nil, fmt.Sprintf(
			"Delete checkpoint %q?\n\nLater checkpoints are kept; this one is removed from history.", c.Label))
		return m, nil
	}
	return m, nil
}

func (m Model) handleFilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.fileCursor > 0 {
			m.fileCursor--
		}
	case "down", "j":
		if m.fileCursor < len(m.files)-1 {
			m.fileCursor++
		}
	case "tab", "left", "esc":
		m.setFocus(focusCheckpoints)
	case " ", "space":
		if f, ok := m.cursorFile(); ok {
			m.marked[f.Path] = !m.marked[f.Path]
			if !m.marked[f.Path] {
				delete(m.marked, f.Path)
			}
		}
	case "a":
		if len(m.marked) == len(m.files) {
			m.marked = make(map[string]bool)
		} else {
			for _, f := range m.files {
				m.marked[f.Path] = true
			}
		}
	case "enter", "v":
		f, ok := m.cursorFile()
		if !ok || f.Untracked() {
			return m, nil
		}
		cmd := m.startWork("Loading diff…", m.diffCmd(f.Path, m.filesFor, f.Path))
		return m, cmd
	case "s":
		return m.beginSnapshot(m.actionFiles())
	case "x":
		files := m.actionFiles()
		var restorable []string
		for _, path := range files {
			if !m.isUntracked(path) {
				restorable = append(restorable, path)
			}
		}
		c, ok := m.selectedCheckpoint()
		if !ok || len(restorable) == 0 {
			return m, nil
		}
		m.openConfirm("restore_files", c.ID, restorable, fmt.Sprintf(
			"Restore %d file(s) from %q?\n\n%s", len(restorable), c.Label, strings.Join(restorable, "\n")))
	}
	return m, nil
}

func (m Model) handleDiffKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter":
		m.diffOpen = false
		return m, nil
	case "g", "home":
		m.diffView.GotoTop()
		return m, nil
	case "G", "end":
		m.diffView.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.diffView, cmd = m.diffView.Update(msg)
	return m, cmd
}

// handleConfirmKey processes key events when the confirmation dialog is open.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.closeDialog()
		return m, nil

	case tea.KeyEnter:
		action, target, files := m.confirmAction, m.confirmTarget, m.confirmFiles
		m.closeDialog()

		switch action {
		case "restore":
			cmd := m.startWork("Restoring checkpoint…", m.operation(action, func(ctx context.Context, b Backend) (string, error) {
				return b.ResetToCheckpoint(ctx, target)
			}))
			return m, cmd
		case "delete":
			cmd := m.startWork("Deleting checkpoint…", m.operation(action, func(ctx context.Context, b Backend) (string, error) {
				return "", b.DeleteCheckpoint(ctx, target)
			}))
			return m, cmd
		case "restore_files":
			cmd := m.startWork("Restoring files…", m.operation(action, func(ctx context.Context, b Backend) (string, error) {
				return fmt.Sprint(len(files)), b.RevertFiles(ctx, target, files)
			}))
			return m, cmd
		case "large_snapshot":
			m.openLabelDialog(files)
			cmd := m.input.Focus()
			return m, cmd
		}
		return m, nil
	}

	switch msg.String() {
	case "y", "Y":
		return m.handleConfirmKey(tea.KeyMsg{Type: tea.KeyEnter})
	case "n", "N":
		return m.handleConfirmKey(tea.KeyMsg{Type: tea.KeyEscape})
	}
	return m, nil
}

// handleInputKey processes key events for the label and identity prompts.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.closeDialog()
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}

		switch m.dialog {
		case dialogLabel:
			files := m.labelFiles
			m.closeDialog()
			cmd := m.startWork("Creating checkpoint…", m.operation("snapshot", func(ctx context.Context, b Backend) (string, error) {
				return value, b.Commit(ctx, files, value)
			}))
			return m, cmd

		case dialogIdentityName:
			m.draftIdentity.Name = value
			m.dialog = dialogIdentityEmail
			m.input.Placeholder = "you@example.com"
			m.input.SetValue(m.identity.Email)
			m.input.CursorEnd()
			return m, nil

		case dialogIdentityEmail:
			m.draftIdentity.Email = value
			id := m.draftIdentity
			next, files := m.labelAfterID, m.labelFiles
			m.closeDialog()
			m.labelAfterID, m.labelFiles = next, files
			cmd := m.startWork("Saving identity…", m.operation("identity", func(ctx context.Context, b Backend) (string, error) {
				return id.Name + " <" + id.Email + ">", b.SetIdentity(ctx, id)
			}))
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleRefreshed(msg refreshedMsg) (tea.Model, tea.Cmd) {
	m.working = false
	if msg.err != nil {
		m.setError("Refresh failed", msg.err)
		cmd := m.flushStale()
		return m, cmd
	}

	m.loaded = true
	m.checkpoints = msg.checkpoints
	m.pending = msg.pending
	m.identity = msg.identity
	m.checkpointList.SetItems(toListItems(msg.checkpoints))
	for i, c := range msg.checkpoints {
		if c.ID == msg.filesFor {
			m.checkpointList.Select(i)
			break
		}
	}
	m.setFiles(msg.filesFor, msg.files)
	if m.statusLevel == StatusLoading {
		m.clearStatus()
	}
	cmd := m.flushStale()
	return m, cmd
}

func (m Model) handleOperationDone(msg operationDoneMsg) (tea.Model, tea.Cmd) {
	m.working = false
	if msg.err != nil {
		if msg.action == "identity" {
			m.labelAfterID, m.labelFiles = false, nil
		}
		m.setError(actionTitle(msg.action)+" failed", msg.err)
		cmd := m.flushStale()
		return m, cmd
	}

	var text string
	switch msg.action {
	case "snapshot":
		text = fmt.Sprintf("Created checkpoint %q", msg.detail)
		m.marked = make(map[string]bool)
	case "restore":
		text = "Restored. Previous history kept on branch " + msg.detail
	case "delete":
		text = "Checkpoint deleted"
	case "restore_files":
		text = "Restored " + msg.detail + " file(s) as a new checkpoint"
		m.marked = make(map[string]bool)
	case "identity":
		text = "Identity set to " + msg.detail
		m.identity = m.draftIdentity
		if m.labelAfterID {
			files := m.labelFiles
			m.labelAfterID, m.labelFiles = false, nil
			m.setSuccess(text)
			cmd := m.snapshotPrompt(files)
			return m, cmd
		}
	}
	m.setSuccess(text)
	m.stale = false

	refresh := m.startWork("", m.refreshCmd(""))
	return m, tea.Batch(refresh, clearStatusAfter(statusClearDelay))
}

// beginSnapshot asks for whatever is still missing before a snapshot: the
// git identity, confirmation for a large first snapshot, then the label.
func (m Model) beginSnapshot(files []string) (tea.Model, tea.Cmd) {
	if m.working {
		m.setInfo("Busy, try again in a moment")
		return m, nil
	}
	if !m.identity.Complete() {
		m.openIdentityDialog(true, files)
		cmd := m.input.Focus()
		return m, cmd
	}
	cmd := m.snapshotPrompt(files)
	return m, cmd
}

// snapshotPrompt opens the large-directory confirmation or the label dialog.
func (m *Model) snapshotPrompt(files []string) tea.Cmd {
	if !m.backend.Initialized() {
		if large, entries, err := m.backend.IsLargeDirectory(); err == nil && large {
			m.openConfirm("large_snapshot", "", files, fmt.Sprintf(
				"%s contains at least %d files and directories.\n\nCreate the first checkpoint anyway?", m.backend.Root(), entries))
			return nil
		}
	}
	m.openLabelDialog(files)
	return m.input.Focus()
}

// startWork runs cmd unless another backend call is in flight. A refresh
// requested meanwhile is remembered and run afterwards; other work is
// refused. An empty message keeps the status bar unchanged.
func (m *Model) startWork(message string, cmd tea.Cmd) tea.Cmd {
	if m.working {
		if message == "" || strings.HasPrefix(message, "Refreshing") {
			m.stale = true
			return nil
		}
		m.setInfo("Busy, try again in a moment")
		return nil
	}
	m.working = true
	if message != "" {
		m.statusLevel = StatusLoading
		m.statusMessage = message
	}
	return tea.Batch(m.statusSpinner.Tick, cmd)
}

// flushStale runs the refresh requested while the model was busy.
func (m *Model) flushStale() tea.Cmd {
	if !m.stale || m.working {
		return nil
	}
	m.stale = false
	return m.startWork("", m.refreshCmd(m.selectedID()))
}

// selectionChanged loads the changes of a newly highlighted checkpoint.
func (m *Model) selectionChanged() tea.Cmd {
	c, ok := m.selectedCheckpoint()
	if !ok || c.ID == m.filesFor {
		return nil
	}
	if m.working {
		m.stale = true
		return nil
	}
	return m.startWork("", m.filesCmd(c.ID))
}

// selectedID returns the highlighted checkpoint id, or "" for the newest.
func (m Model) selectedID() string {
	c, _ := m.selectedCheckpoint()
	return c.ID
}

func (m *Model) setFiles(id string, files []checkpoint.FileStatus) {
	if id != m.filesFor {
		m.fileCursor = 0
		m.marked = make(map[string]bool)
	}
	m.filesFor = id
	m.files = files

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}
	for path := range m.marked {
		if !present[path] {
			delete(m.marked, path)
		}
	}
	if m.fileCursor >= len(files) {
		m.fileCursor = max(len(files)-1, 0)
	}
	if len(files) == 0 && m.focus == focusFiles {
		m.setFocus(focusCheckpoints)
	}
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.checkpointDelegate = m.checkpointDelegate.WithFocus(f == focusCheckpoints)
	m.checkpointList.SetDelegate(m.checkpointDelegate)
}

func (m Model) cursorFile() (checkpoint.FileStatus, bool) {
	if m.fileCursor < 0 || m.fileCursor >= len(m.files) {
		return checkpoint.FileStatus{}, false
	}
	return m.files[m.fileCursor], true
}

// actionFiles returns the marked files, or the file under the cursor when
// nothing is marked.
func (m Model) actionFiles() []string {
	if files := m.markedFiles(); len(files) > 0 {
		return files
	}
	if f, ok := m.cursorFile(); ok {
		return []string{f.Path}
	}
	return nil
}

func (m Model) isUntracked(path string) bool {
	for _, f := range m.files {
		if f.Path == path {
			return f.Untracked()
		}
	}
	return false
}

func (m *Model) openConfirm(action, target string, files []string, message string) {
	m.dialog = dialogConfirm
	m.confirmAction = action
	m.confirmTarget = target
	m.confirmFiles = files
	m.confirmMessage = message
}

func (m *Model) openLabelDialog(files []string) {
	m.dialog = dialogLabel
	m.labelFiles = files
	m.input.Reset()
	m.input.Placeholder = "Checkpoint label"
}

func (m *Model) openIdentityDialog(thenLabel bool, files []string) {
	m.dialog = dialogIdentityName
	m.labelAfterID = thenLabel
	m.labelFiles = files
	m.draftIdentity = checkpoint.Identity{}
	m.input.Reset()
	m.input.Placeholder = "Your name"
	m.input.SetValue(m.identity.Name)
	m.input.CursorEnd()
}

func (m *Model) closeDialog() {
	m.dialog = dialogNone
	m.confirmAction = ""
	m.confirmTarget = ""
	m.confirmFiles = nil
	m.confirmMessage = ""
	m.labelFiles = nil
	m.labelAfterID = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) openDiff(title, patch string) {
	m.diffOpen = true
	m.diffTitle = title
	if patch == "" {
		m.diffView.SetContent(m.styles.HelpStyle().Render("No differences."))
	} else {
		m.diffView.SetContent(m.renderDiff(patch))
	}
	m.diffView.GotoTop()
}

func (m *Model) setInfo(message string) {
	m.statusLevel = StatusInfo
	m.statusMessage = message
}

func (m *Model) setSuccess(message string) {
	m.statusLevel = StatusSuccess
	m.statusMessage = message
}

func (m *Model) setError(prefix string, err error) {
	m.logger.Warn(prefix, "error", err.Error())
	m.statusLevel = StatusError
	m.statusMessage = prefix + ": " + errorSummary(err)
}

func (m *Model) clearStatus() {
	m.statusLevel = StatusInfo
	m.statusMessage = ""
}

// errorSummary condenses an error to one line, preferring the last line of
// command output over the command line itself.
func errorSummary(err error) string {
	if errors.Is(err, process.ErrAlreadyRunning) {
		return "another git command is still running"
	}
	var perr *process.Error
	if errors.As(err, &perr) {
		lines := strings.Split(strings.TrimSpace(perr.Output), "\n")
		if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
			return perr.Kind.String() + ": " + last
		}
		return perr.Kind.String()
	}
	first, _, _ := strings.Cut(err.Error(), "\n")
	return first
}

func actionTitle(action string) string {
	switch action {
	case "snapshot":
		return "Snapshot"
	case "restore":
		return "Restore"
	case "delete":
		return "Delete"
	case "restore_files":
		return "Restoring files"
	case "identity":
		return "Saving identity"
	default:
		return action
	}
}

// refreshCmd reloads identity, checkpoints, pending state and the changes
// of the checkpoint selectID (or the newest one). The calls run in order
// inside one command so they never compete for the runner.
func (m Model) refreshCmd(selectID string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx := context.Background()
		var msg refreshedMsg
		var err error

		if msg.identity, err = backend.Identity(ctx); err != nil {
			msg.err = err
			return msg
		}
		if msg.checkpoints, err = backend.List(ctx); err != nil {
			msg.err = err
			return msg
		}
		if msg.pending, err = backend.HasPendingChanges(ctx); err != nil {
			msg.err = err
			return msg
		}
		if len(msg.checkpoints) == 0 {
			return msg
		}

		msg.filesFor = msg.checkpoints[0].ID
		for _, c := range msg.checkpoints {
			if c.ID == selectID {
				msg.filesFor = selectID
				break
			}
		}
		msg.files, msg.err = backend.Status(ctx, msg.filesFor)
		return msg
	}
}

func (m Model) filesCmd(id string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		files, err := backend.Status(context.Background(), id)
		return filesLoadedMsg{id: id, files: files, err: err}
	}
}

func (m Model) diffCmd(title, id, file string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		patch, err := backend.Diff(context.Background(), id, file)
		return diffLoadedMsg{title: title, patch: patch, err: err}
	}
}

func (m Model) operation(action string, fn func(ctx context.Context, b Backend) (string, error)) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		detail, err := fn(context.Background(), backend)
		return operationDoneMsg{action: action, detail: detail, err: err}
	}
}

// waitForLog returns a command that delivers the next log entry.
func (m Model) waitForLog() tea.Cmd {
	if m.logs == nil {
		return nil
	}
	logs := m.logs
	return func() tea.Msg {
		entry, ok := <-logs
		if !ok {
			return nil
		}
		return logEntryMsg{entry: entry}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
