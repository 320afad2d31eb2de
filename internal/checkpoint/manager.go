// pattern: Imperative Shell

package checkpoint

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"golang.org/x/sys/unix"

	"restorepoint/internal/events"
	"restorepoint/internal/logging"
	"restorepoint/internal/process"
)

// Runner executes command chains. *process.Runner implements it.
type Runner interface {
	Execute(ctx context.Context, chain []process.Command, opts process.Options) (process.Result, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithGit sets the git binary. Defaults to "git" looked up on PATH.
func WithGit(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.gitBin = path
		}
	}
}

// WithNotifier registers a callback receiving OperationStartedMsg and
// OperationFinishedMsg around every operation.
func WithNotifier(n events.Notifier) Option {
	return func(m *Manager) { m.notify = n }
}

// WithLogger sets the logger used for operation outcomes.
func WithLogger(l *logging.ScopedLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithLargeDirectory sets the probe depth and entry threshold used by
// IsLargeDirectory.
func WithLargeDirectory(maxDepth, threshold int) Option {
	return func(m *Manager) {
		if maxDepth > 0 {
			m.maxDepth = maxDepth
		}
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// WithConfirm registers the question asked before the first snapshot of a
// large directory. It receives the number of entries counted so far.
func WithConfirm(confirm func(entries int) bool) Option {
	return func(m *Manager) { m.confirm = confirm }
}

// WithClock overrides the time source used for backup branch names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager manages checkpoints of one directory. Every operation builds a
// command chain and hands it to the Runner; the Manager itself keeps no
// state between calls besides the root path.
type Manager struct {
	root   string
	runner Runner
	gitBin string
	notify events.Notifier
	logger *logging.ScopedLogger

	maxDepth  int
	threshold int
	confirm   func(entries int) bool
	now       func() time.Time
}

// NewManager creates a Manager for root.
func NewManager(root string, runner Runner, opts ...Option) *Manager {
	m := &Manager{
		root:      root,
		runner:    runner,
		gitBin:    "git",
		logger:    logging.NopLogger(),
		maxDepth:  3,
		threshold: 500,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the managed directory.
func (m *Manager) Root() string {
	return m.root
}

// Initialized reports whether root is inside a git work tree.
func (m *Manager) Initialized() bool {
	_, err := m.openRepository()
	return err == nil
}

// NeedsElevation reports whether the current user cannot write to root.
// Mutating operations are then run through the privilege helper.
func (m *Manager) NeedsElevation() bool {
	return unix.Access(m.root, unix.W_OK) != nil
}

// IsLargeDirectory counts the entries of root up to the configured depth,
// the root itself included, and reports whether they exceed the threshold.
// Counting stops as soon as the threshold is passed.
func (m *Manager) IsLargeDirectory() (bool, int, error) {
	count := 0
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == m.root {
				return err
			}
			return nil
		}
		count++
		if count > m.threshold {
			return filepath.SkipAll
		}
		if d.IsDir() && path != m.root && depth(m.root, path) >= m.maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return false, count, err
	}
	return count > m.threshold, count, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func (m *Manager) openRepository() (*git.Repository, error) {
	return git.PlainOpenWithOptions(m.root, &git.PlainOpenOptions{DetectDotGit: true})
}

// hasHead reports whether the repository has at least one commit.
func (m *Manager) hasHead() bool {
	repo, err := m.openRepository()
	if err != nil {
		return false
	}
	_, err = repo.Head()
	return err == nil
}

func (m *Manager) git(args ...string) process.Command {
	return process.Command{Name: m.gitBin, Args: args}
}

// mutate runs a chain that changes the repository, elevated when root is
// not writable.
func (m *Manager) mutate(ctx context.Context, chain ...process.Command) (process.Result, error) {
	return m.runner.Execute(ctx, chain, process.Options{Dir: m.root, Elevate: m.NeedsElevation()})
}

// query runs a read-only chain without logging the command line.
func (m *Manager) query(ctx context.Context, chain ...process.Command) (process.Result, error) {
	return m.runner.Execute(ctx, chain, process.Options{Dir: m.root, Quiet: true})
}

// begin announces op and returns the function that announces its end.
// Call it as: defer m.begin("op")(&err)
func (m *Manager) begin(op string) func(*error) {
	m.emit(events.OperationStartedMsg{Operation: op})
	return func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		switch {
		case err == nil:
			m.logger.Debug("operation finished", "operation", op)
		case errors.Is(err, process.ErrAlreadyRunning):
			m.logger.Debug("operation skipped, runner busy", "operation", op)
		default:
			m.logger.Warn("operation failed", "operation", op, "error", err.Error())
		}
		m.emit(events.OperationFinishedMsg{Operation: op, Err: err})
	}
}

func (m *Manager) emit(msg any) {
	if m.notify != nil {
		m.notify(msg)
	}
}
