// pattern: Imperative Shell

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restorepoint/internal/process"
)

// Init creates a repository in root. It is a no-op when one already exists.
func (m *Manager) Init(ctx context.Context) (err error) {
	if m.Initialized() {
		return nil
	}
	defer m.begin("init")(&err)
	_, err = m.mutate(ctx, m.git("init"))
	return err
}

// AddFiles stages files. A single "." stages everything.
func (m *Manager) AddFiles(ctx context.Context, files []string) (err error) {
	if len(files) == 0 {
		return ErrEmptyArgument
	}
	defer m.begin("add")(&err)
	_, err = m.mutate(ctx, m.git(append([]string{"add"}, addArgs(files)...)...))
	return err
}

// Commit creates a checkpoint labelled message from files, or from every
// change when files is empty. The repository is initialized first if
// needed; a large directory is confirmed before its first snapshot.
func (m *Manager) Commit(ctx context.Context, files []string, message string) (err error) {
	if message == "" {
		return ErrEmptyArgument
	}

	var chain []process.Command
	if !m.Initialized() {
		if err := m.confirmLarge(); err != nil {
			return err
		}
		chain = append(chain, m.git("init"))
	}
	chain = append(chain,
		m.git(append([]string{"add"}, addArgs(files)...)...),
		m.git("commit", "-m", message),
	)

	defer m.begin("commit")(&err)
	_, err = m.mutate(ctx, chain...)
	return err
}

func (m *Manager) confirmLarge() error {
	if m.confirm == nil {
		return nil
	}
	large, entries, err := m.IsLargeDirectory()
	if err != nil || !large {
		return nil
	}
	if !m.confirm(entries) {
		return ErrDeclined
	}
	return nil
}

// Stash shelves uncommitted changes. With files, only those paths are
// stashed under StashLabel.
func (m *Manager) Stash(ctx context.Context, files []string) (err error) {
	args := []string{"stash"}
	if len(files) > 0 {
		args = append(args, "push", "-m", StashLabel, "--")
		args = append(args, files...)
	}
	defer m.begin("stash")(&err)
	_, err = m.mutate(ctx, m.git(args...))
	return err
}

// PopStash applies and drops the most recent stash.
func (m *Manager) PopStash(ctx context.Context) (err error) {
	defer m.begin("stash pop")(&err)
	_, err = m.mutate(ctx, m.git("stash", "pop"))
	return err
}

// CleanUp removes untracked files and directories, ignored ones included.
func (m *Manager) CleanUp(ctx context.Context) (err error) {
	defer m.begin("clean")(&err)
	_, err = m.mutate(ctx, m.git("clean", "-fdx"))
	return err
}

// ResetToCheckpoint stashes uncommitted work, keeps the current history on
// a new backup branch and hard-resets HEAD to id. The backup branch name is
// returned even when a later step fails, since the branch may exist.
func (m *Manager) ResetToCheckpoint(ctx context.Context, id string) (branch string, err error) {
	if id == "" {
		return "", ErrEmptyArgument
	}
	branch = BackupBranchName(m.now())
	defer m.begin("reset")(&err)
	_, err = m.mutate(ctx,
		m.git("stash"),
		m.git("branch", branch),
		m.git("reset", "--hard", id),
	)
	return branch, err
}

// CreateBackupBranch creates a backup branch at HEAD without moving it.
func (m *Manager) CreateBackupBranch(ctx context.Context) (branch string, err error) {
	branch = BackupBranchName(m.now())
	defer m.begin("backup")(&err)
	if _, err = m.mutate(ctx, m.git("branch", branch)); err != nil {
		return "", err
	}
	return branch, nil
}

// DeleteCheckpoint removes id from the current history by replaying its
// descendants onto its parent. Uncommitted work is stashed around the
// rebase. A conflicting rebase is aborted, so the history still contains
// id, and the rebase error is returned.
func (m *Manager) DeleteCheckpoint(ctx context.Context, id string) (err error) {
	if id == "" {
		return ErrEmptyArgument
	}
	defer m.begin("delete")(&err)

	if _, err := m.query(ctx, m.git("merge-base", "--is-ancestor", id, "HEAD")); err != nil {
		if errors.Is(err, process.NonZeroExit) {
			return fmt.Errorf("%w: %s", ErrNotInHistory, id)
		}
		return err
	}

	before := m.stashTop(ctx)
	if _, err := m.mutate(ctx, m.git("stash")); err != nil {
		return err
	}
	stashed := m.stashTop(ctx) != before

	res, err := m.query(ctx, m.git("rev-parse", "--verify", "--quiet", id+"^"))
	if err != nil {
		err = fmt.Errorf("resolve parent of %s: %w", id, err)
		if stashed {
			err = m.unstash(ctx, id, err)
		}
		return err
	}
	parent := strings.TrimSpace(res.Output)

	if _, err := m.mutate(ctx, m.git("rebase", "--onto", parent, id)); err != nil {
		if _, abortErr := m.mutate(ctx, m.git("rebase", "--abort")); abortErr != nil {
			m.logger.Warn("rebase abort failed", "id", id, "error", abortErr.Error())
			return err
		}
		if stashed {
			err = m.unstash(ctx, id, err)
		}
		return err
	}
	if stashed {
		_, err = m.mutate(ctx, m.git("stash", "pop"))
	}
	return err
}

// unstash pops the stash taken before a failed delete. A failed pop leaves
// the work in the stash; that is logged and added to cause.
func (m *Manager) unstash(ctx context.Context, id string, cause error) error {
	if _, err := m.mutate(ctx, m.git("stash", "pop")); err != nil {
		m.logger.Warn("stash pop failed, uncommitted changes left in stash", "id", id, "error", err.Error())
		return fmt.Errorf("%w (uncommitted changes left in stash: %v)", cause, err)
	}
	return cause
}

// stashTop returns the hash of refs/stash, or "" when there is none.
func (m *Manager) stashTop(ctx context.Context) string {
	res, err := m.query(ctx, m.git("rev-parse", "--verify", "--quiet", "refs/stash"))
	if err != nil {
		return ""
	}
	return res.Output
}

// RevertFiles restores files to their content at id and records the result
// as a new checkpoint. Other uncommitted work is stashed first.
func (m *Manager) RevertFiles(ctx context.Context, id string, files []string) (err error) {
	if id == "" || len(files) == 0 {
		return ErrEmptyArgument
	}
	checkout := append([]string{"checkout", id, "--"}, files...)
	defer m.begin("revert")(&err)
	_, err = m.mutate(ctx,
		m.git("stash"),
		m.git(checkout...),
		m.git("commit", "-m", restoredMessage(files)),
	)
	return err
}

// SetIdentity stores the global git author name and email.
func (m *Manager) SetIdentity(ctx context.Context, id Identity) (err error) {
	if !id.Complete() {
		return ErrEmptyArgument
	}
	defer m.begin("set identity")(&err)
	_, err = m.runner.Execute(ctx, []process.Command{
		m.git("config", "--global", "user.name", id.Name),
		m.git("config", "--global", "user.email", id.Email),
	}, process.Options{Dir: m.root})
	return err
}
