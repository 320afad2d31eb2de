// pattern: Imperative Shell

package checkpoint

import (
	"context"
	"errors"

	"restorepoint/internal/process"
)

// List returns the checkpoints of the current branch, newest first. An
// uninitialized directory or a repository without commits has none.
func (m *Manager) List(ctx context.Context) (checkpoints []Checkpoint, err error) {
	if !m.hasHead() {
		return nil, nil
	}
	defer m.begin("list")(&err)
	res, err := m.query(ctx, m.git("log", "--pretty=format:"+logFormat))
	if err != nil {
		return nil, err
	}
	return parseLog(res.Output), nil
}

// Status lists the files that differ between id and the working tree,
// followed by untracked files.
func (m *Manager) Status(ctx context.Context, id string) (files []FileStatus, err error) {
	if id == "" {
		return nil, ErrEmptyArgument
	}
	defer m.begin("status")(&err)

	diff, err := m.query(ctx, m.git("diff", "--name-status", "-z", id))
	if err != nil {
		return nil, err
	}
	others, err := m.query(ctx, m.git("ls-files", "-z", "--others", "--exclude-standard"))
	if err != nil {
		return nil, err
	}
	return mergeUntracked(parseNameStatus(diff.Raw), splitNUL(others.Raw)), nil
}

// HasPendingChanges reports whether the working tree differs from HEAD.
// An uninitialized directory always has pending changes.
func (m *Manager) HasPendingChanges(ctx context.Context) (pending bool, err error) {
	if !m.Initialized() {
		return true, nil
	}
	defer m.begin("pending")(&err)
	res, err := m.query(ctx, m.git("status", "--porcelain"))
	if err != nil {
		return false, err
	}
	return res.Output != "", nil
}

// Diff returns the patch between id and the working tree, restricted to
// file when it is not empty.
func (m *Manager) Diff(ctx context.Context, id, file string) (patch string, err error) {
	if id == "" {
		return "", ErrEmptyArgument
	}
	args := []string{"diff", id}
	if file != "" {
		args = append(args, "--", file)
	}
	defer m.begin("diff")(&err)
	res, err := m.query(ctx, m.git(args...))
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Identity returns the global git author identity. Unset fields are empty.
func (m *Manager) Identity(ctx context.Context) (id Identity, err error) {
	defer m.begin("identity")(&err)
	if id.Name, err = m.configValue(ctx, "user.name"); err != nil {
		return Identity{}, err
	}
	if id.Email, err = m.configValue(ctx, "user.email"); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (m *Manager) configValue(ctx context.Context, key string) (string, error) {
	res, err := m.query(ctx, m.git("config", "--global", "--get", key))
	var perr *process.Error
	if errors.As(err, &perr) && perr.Kind == process.NonZeroExit && perr.ExitCode == 1 {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// CurrentBranch returns the checked out branch, or "" on a detached HEAD.
func (m *Manager) CurrentBranch(ctx context.Context) (branch string, err error) {
	defer m.begin("branch")(&err)
	res, err := m.query(ctx, m.git("branch", "--show-current"))
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// BackupBranches lists the branches created by ResetToCheckpoint and
// CreateBackupBranch, oldest first.
func (m *Manager) BackupBranches(ctx context.Context) (branches []string, err error) {
	defer m.begin("backups")(&err)
	res, err := m.query(ctx, m.git("branch", "--list", "--format=%(refname:short)", backupPrefix+"*"))
	if err != nil {
		return nil, err
	}
	return parseLines(res.Output), nil
}
