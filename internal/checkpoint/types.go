// pattern: Functional Core

package checkpoint

import (
	"errors"
	"time"
)

// UntrackedCode is the status code given to files git does not track.
const UntrackedCode = "??"

// StashLabel is the message attached to stashes created for a file subset.
const StashLabel = "stash created by restorepoint"

const backupPrefix = "bak_"

var (
	// ErrEmptyArgument is returned, without running anything, when an
	// operation is given an empty id, file list, message or identity field.
	ErrEmptyArgument = errors.New("checkpoint: empty argument")

	// ErrDeclined is returned when the first snapshot of a large directory
	// was not confirmed.
	ErrDeclined = errors.New("checkpoint: snapshot of large directory declined")

	// ErrNotInHistory is returned by DeleteCheckpoint for a commit that is
	// not an ancestor of HEAD.
	ErrNotInHistory = errors.New("checkpoint: not part of the current history")
)

// Checkpoint is one commit as shown by the log, newest first.
type Checkpoint struct {
	ID    string // abbreviated hash
	Age   string // relative committer date, e.g. "2 hours ago"
	Label string // commit subject
}

// Title is the one-line list text: "<age> - <label>".
func (c Checkpoint) Title() string {
	return c.Age + " - " + c.Label
}

// FileStatus is a path with its git name-status code, or UntrackedCode.
type FileStatus struct {
	Code string
	Path string
}

// Untracked reports whether the file is not tracked by git.
func (f FileStatus) Untracked() bool {
	return f.Code == UntrackedCode
}

func (f FileStatus) String() string {
	return f.Code + "\t" + f.Path
}

// Identity is the global git author identity.
type Identity struct {
	Name  string
	Email string
}

// Complete reports whether both name and email are set.
func (i Identity) Complete() bool {
	return i.Name != "" && i.Email != ""
}

// BackupBranchName returns the branch name used to preserve history before
// a hard reset, e.g. bak_20261015_134501.
func BackupBranchName(t time.Time) string {
	return backupPrefix + t.Format("20060102_150405")
}
