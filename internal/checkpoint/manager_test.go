package checkpoint

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"

	"restorepoint/internal/events"
	"restorepoint/internal/logging"
	"restorepoint/internal/process"
)

const testGitConfig = `[user]
	name = Test User
	email = test@example.com
[init]
	defaultBranch = main
[commit]
	gpgsign = false
`

// newTestManager returns a Manager for an empty directory, with HOME
// pointing at a scratch directory holding a known git identity.
func newTestManager(t *testing.T, opts ...Option) (*Manager, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	writeFile(t, filepath.Join(home, ".gitconfig"), testGitConfig)

	root := t.TempDir()
	return NewManager(root, process.New(process.Config{}, nil), opts...), root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func mustCommit(t *testing.T, m *Manager, label string) {
	t.Helper()
	if err := m.Commit(context.Background(), nil, label); err != nil {
		t.Fatalf("Commit(%q) error = %v", label, err)
	}
}

func mustList(t *testing.T, m *Manager) []Checkpoint {
	t.Helper()
	list, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return list
}

func labels(list []Checkpoint) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Label
	}
	return out
}

func TestManager_FirstCommitInitializes(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	if m.Initialized() {
		t.Fatal("Initialized() = true before first commit")
	}
	pending, err := m.HasPendingChanges(ctx)
	if err != nil || !pending {
		t.Fatalf("HasPendingChanges() = %v, %v; want true", pending, err)
	}
	if list := mustList(t, m); len(list) != 0 {
		t.Fatalf("List() = %v before init, want empty", list)
	}

	writeFile(t, filepath.Join(root, "a.txt"), "one\n")
	if err := m.Commit(ctx, []string{"."}, "first"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if !m.Initialized() {
		t.Error("Initialized() = false after commit")
	}
	if got := labels(mustList(t, m)); !reflect.DeepEqual(got, []string{"first"}) {
		t.Errorf("labels = %v, want [first]", got)
	}
	pending, err = m.HasPendingChanges(ctx)
	if err != nil || pending {
		t.Errorf("HasPendingChanges() = %v, %v; want false", pending, err)
	}
}

func TestManager_CommitTwiceInitializesOnce(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "one\n")
	mustCommit(t, m, "first")
	gitDir := filepath.Join(root, ".git")
	before, err := os.Stat(gitDir)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "b.txt"), "two\n")
	mustCommit(t, m, "second")

	after, err := os.Stat(gitDir)
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(before, after) {
		t.Error(".git was recreated")
	}
	if got := labels(mustList(t, m)); !reflect.DeepEqual(got, []string{"second", "first"}) {
		t.Errorf("labels = %v, want [second first]", got)
	}
}

func TestManager_CommitWithoutChangesFails(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "one\n")
	mustCommit(t, m, "first")

	err := m.Commit(context.Background(), nil, "empty")
	if !errors.Is(err, process.NonZeroExit) {
		t.Fatalf("Commit() error = %v, want NonZeroExit", err)
	}
	if n := len(mustList(t, m)); n != 1 {
		t.Errorf("checkpoint count = %d, want 1", n)
	}
}

func TestManager_CommitSelectedFiles(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "one\n")
	writeFile(t, filepath.Join(root, "b.txt"), "two\n")
	if err := m.Commit(context.Background(), []string{"a.txt"}, "only a"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	tracked := mustGit(t, root, "ls-files")
	if tracked != "a.txt" {
		t.Errorf("tracked files = %q, want a.txt", tracked)
	}
}

func TestManager_LargeDirectoryDeclined(t *testing.T) {
	var asked int
	m, root := newTestManager(t,
		WithLargeDirectory(3, 5),
		WithConfirm(func(entries int) bool {
			asked = entries
			return false
		}),
	)
	for i := range 10 {
		writeFile(t, filepath.Join(root, "f"+string(rune('a'+i))), "x")
	}

	err := m.Commit(context.Background(), nil, "first")
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("Commit() error = %v, want ErrDeclined", err)
	}
	if asked <= 5 {
		t.Errorf("confirm got %d entries, want > 5", asked)
	}
	if m.Initialized() {
		t.Error("repository initialized after decline")
	}
}

func TestManager_LargeDirectoryConfirmed(t *testing.T) {
	m, root := newTestManager(t,
		WithLargeDirectory(3, 2),
		WithConfirm(func(int) bool { return true }),
	)
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")

	mustCommit(t, m, "first")
	if !m.Initialized() {
		t.Error("Initialized() = false after confirmed commit")
	}
}

func TestManager_IsLargeDirectoryHonoursDepth(t *testing.T) {
	m, root := newTestManager(t, WithLargeDirectory(2, 100))
	writeFile(t, filepath.Join(root, "x", "y", "z", "deep.txt"), "x")

	large, entries, err := m.IsLargeDirectory()
	if err != nil {
		t.Fatalf("IsLargeDirectory() error = %v", err)
	}
	if large {
		t.Error("large = true, want false")
	}
	// root, x and x/y
	if entries != 3 {
		t.Errorf("entries = %d, want 3", entries)
	}
}

func TestManager_IsLargeDirectoryStopsAtThreshold(t *testing.T) {
	m, root := newTestManager(t, WithLargeDirectory(3, 4))
	for i := range 20 {
		writeFile(t, filepath.Join(root, "f"+string(rune('a'+i))), "x")
	}

	large, entries, err := m.IsLargeDirectory()
	if err != nil {
		t.Fatalf("IsLargeDirectory() error = %v", err)
	}
	if !large || entries != 5 {
		t.Errorf("IsLargeDirectory() = %v, %d; want true, 5", large, entries)
	}
}

func TestManager_Status(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "a.txt"), "one\n")
	mustCommit(t, m, "first")
	id := mustList(t, m)[0].ID

	writeFile(t, filepath.Join(root, "a.txt"), "changed\n")
	writeFile(t, filepath.Join(root, "b.txt"), "new\n")

	got, err := m.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	want := []FileStatus{{"M", "a.txt"}, {"??", "b.txt"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Status() = %v, want %v", got, want)
	}
}

func TestManager_StatusKeepsSurroundingSpaces(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "one\n")
	mustCommit(t, m, "first")
	id := mustList(t, m)[0].ID

	writeFile(t, filepath.Join(root, " lead.txt"), "x\n")
	writeFile(t, filepath.Join(root, "trail.txt "), "y\n")

	got, err := m.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	want := []FileStatus{{"??", " lead.txt"}, {"??", "trail.txt "}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}

func TestManager_StatusStagedFileNotUntracked(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "one\n")
	mustCommit(t, m, "first")
	id := mustList(t, m)[0].ID

	writeFile(t, filepath.Join(root, "c.txt"), "staged\n")
	mustGit(t, root, "add", "c.txt")

	got, err := m.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	want := []FileStatus{{"A", "c.txt"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Status() = %v, want %v", got, want)
	}
}

func TestManager_ResetToCheckpoint(t *testing.T) {
	at := time.Date(2026, 10, 15, 13, 45, 1, 0, time.Local)
	m, root := newTestManager(t, WithClock(func() time.Time { return at }))
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "a.txt"), "1")
	mustCommit(t, m, "v1")
	writeFile(t, filepath.Join(root, "a.txt"), "2")
	mustCommit(t, m, "v2")
	oldHead := mustGit(t, root, "rev-parse", "HEAD")
	target := mustList(t, m)[1].ID

	writeFile(t, filepath.Join(root, "a.txt"), "uncommitted")

	branch, err := m.ResetToCheckpoint(ctx, target)
	if err != nil {
		t.Fatalf("ResetToCheckpoint() error = %v", err)
	}
	if branch != "bak_20261015_134501" {
		t.Errorf("branch = %q", branch)
	}
	if !regexp.MustCompile(`^bak_\d{8}_\d{6}$`).MatchString(branch) {
		t.Errorf("branch %q does not match bak_ pattern", branch)
	}

	if head, want := mustGit(t, root, "rev-parse", "HEAD"), mustGit(t, root, "rev-parse", target); head != want {
		t.Errorf("HEAD = %s, want %s", head, want)
	}
	mustGit(t, root, "merge-base", "--is-ancestor", oldHead, branch)
	if got := readFile(t, filepath.Join(root, "a.txt")); got != "1" {
		t.Errorf("a.txt = %q, want 1", got)
	}
	if stash := mustGit(t, root, "stash", "list"); stash == "" {
		t.Error("uncommitted change was not stashed")
	}

	backups, err := m.BackupBranches(ctx)
	if err != nil {
		t.Fatalf("BackupBranches() error = %v", err)
	}
	if !reflect.DeepEqual(backups, []string{branch}) {
		t.Errorf("BackupBranches() = %v, want [%s]", backups, branch)
	}
}

func TestManager_DeleteCheckpointSplicesHistory(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "a.txt"), "a")
	mustCommit(t, m, "c1")
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	mustCommit(t, m, "c2")
	writeFile(t, filepath.Join(root, "c.txt"), "c")
	mustCommit(t, m, "c3")

	list := mustList(t, m)
	c2, c1 := list[1].ID, list[2].ID
	c1Full := mustGit(t, root, "rev-parse", c1)

	writeFile(t, filepath.Join(root, "a.txt"), "work in progress")

	if err := m.DeleteCheckpoint(ctx, c2); err != nil {
		t.Fatalf("DeleteCheckpoint() error = %v", err)
	}

	if got := labels(mustList(t, m)); !reflect.DeepEqual(got, []string{"c3", "c1"}) {
		t.Errorf("labels = %v, want [c3 c1]", got)
	}
	if parent := mustGit(t, root, "rev-parse", "HEAD^"); parent != c1Full {
		t.Errorf("parent of c3 = %s, want %s", parent, c1Full)
	}
	if _, err := os.Stat(filepath.Join(root, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("b.txt still present: %v", err)
	}
	if got := readFile(t, filepath.Join(root, "a.txt")); got != "work in progress" {
		t.Errorf("a.txt = %q, uncommitted work lost", got)
	}
	if stash := mustGit(t, root, "stash", "list"); stash != "" {
		t.Errorf("stash list = %q, want empty", stash)
	}
}

func TestManager_DeleteCheckpointConflict(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3"} {
		writeFile(t, filepath.Join(root, "a.txt"), v)
		mustCommit(t, m, "c"+v)
	}
	c2 := mustList(t, m)[1].ID

	err := m.DeleteCheckpoint(ctx, c2)
	if !errors.Is(err, process.NonZeroExit) {
		t.Fatalf("DeleteCheckpoint() error = %v, want NonZeroExit", err)
	}
	if got := labels(mustList(t, m)); !reflect.DeepEqual(got, []string{"c3", "c2", "c1"}) {
		t.Errorf("labels = %v, want [c3 c2 c1]", got)
	}
	if _, err := os.Stat(filepath.Join(root, ".git", "rebase-merge")); !os.IsNotExist(err) {
		t.Error("rebase still in progress")
	}
}

// scriptedRunner answers each git invocation from a queue keyed by its
// arguments. Unknown invocations succeed with no output.
type scriptedRunner struct {
	replies map[string][]scriptedReply
	calls   []string
}

type scriptedReply struct {
	output string
	err    error
}

func (r *scriptedRunner) Execute(_ context.Context, chain []process.Command, _ process.Options) (process.Result, error) {
	key := strings.Join(chain[0].Args, " ")
	r.calls = append(r.calls, key)
	queue := r.replies[key]
	if len(queue) == 0 {
		return process.Result{}, nil
	}
	reply := queue[0]
	if len(queue) > 1 {
		r.replies[key] = queue[1:]
	}
	return process.Result{Output: reply.output, Raw: reply.output}, reply.err
}

func TestManager_DeleteCheckpointReportsLostStash(t *testing.T) {
	conflict := &process.Error{Kind: process.NonZeroExit, Command: "git rebase", ExitCode: 1, Err: errors.New("exit status 1")}
	popFailed := &process.Error{Kind: process.NonZeroExit, Command: "git stash pop", Output: "error: local changes would be overwritten", ExitCode: 1, Err: errors.New("exit status 1")}
	r := &scriptedRunner{replies: map[string][]scriptedReply{
		"rev-parse --verify --quiet refs/stash": {{err: conflict}, {output: "57a5h"}},
		"rev-parse --verify --quiet c2^":        {{output: "c1"}},
		"rebase --onto c1 c2":                   {{err: conflict}},
		"stash pop":                             {{err: popFailed}},
	}}
	lm := logging.NewTestLogManager(50)
	t.Cleanup(func() { _ = lm.Close() })
	m := NewManager(t.TempDir(), r, WithLogger(lm.For("checkpoint")))

	err := m.DeleteCheckpoint(context.Background(), "c2")
	if !errors.Is(err, process.NonZeroExit) {
		t.Fatalf("DeleteCheckpoint() error = %v, want NonZeroExit", err)
	}
	if !strings.Contains(err.Error(), "left in stash") {
		t.Errorf("error = %q, want mention of the stash", err)
	}
	if !slices.Contains(r.calls, "rebase --abort") {
		t.Errorf("calls = %v, want rebase --abort", r.calls)
	}

	var warned bool
	for _, e := range lm.Drain() {
		if e.Level == "WARN" && strings.Contains(e.Message, "stash pop failed") && e.Fields["id"] == "c2" {
			warned = true
		}
	}
	if !warned {
		t.Error("failed stash pop was not logged")
	}
}

func TestManager_DeleteCheckpointRestoresStashOnConflict(t *testing.T) {
	conflict := &process.Error{Kind: process.NonZeroExit, Command: "git rebase", ExitCode: 1, Err: errors.New("exit status 1")}
	r := &scriptedRunner{replies: map[string][]scriptedReply{
		"rev-parse --verify --quiet refs/stash": {{err: conflict}, {output: "57a5h"}},
		"rev-parse --verify --quiet c2^":        {{output: "c1"}},
		"rebase --onto c1 c2":                   {{err: conflict}},
	}}
	m := NewManager(t.TempDir(), r)

	err := m.DeleteCheckpoint(context.Background(), "c2")
	if !errors.Is(err, conflict) {
		t.Fatalf("DeleteCheckpoint() error = %v, want the rebase error", err)
	}
	if strings.Contains(err.Error(), "left in stash") {
		t.Errorf("error = %q, stash was restored", err)
	}
	if got := r.calls[len(r.calls)-1]; got != "stash pop" {
		t.Errorf("last call = %q, want stash pop", got)
	}
}

func TestManager_DeleteRootCheckpointFails(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "a")
	mustCommit(t, m, "c1")
	writeFile(t, filepath.Join(root, "a.txt"), "dirty")

	err := m.DeleteCheckpoint(context.Background(), mustList(t, m)[0].ID)
	if err == nil {
		t.Fatal("DeleteCheckpoint() of root commit succeeded")
	}
	if got := readFile(t, filepath.Join(root, "a.txt")); got != "dirty" {
		t.Errorf("a.txt = %q, stash not restored", got)
	}
	if n := len(mustList(t, m)); n != 1 {
		t.Errorf("checkpoint count = %d, want 1", n)
	}
}

func TestManager_DeleteCheckpointNotInHistory(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "a")
	mustCommit(t, m, "c1")
	mustGit(t, root, "checkout", "-q", "-b", "side")
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	mustCommit(t, m, "side")
	side := mustList(t, m)[0].ID
	mustGit(t, root, "checkout", "-q", "main")

	err := m.DeleteCheckpoint(context.Background(), side)
	if !errors.Is(err, ErrNotInHistory) {
		t.Fatalf("DeleteCheckpoint() error = %v, want ErrNotInHistory", err)
	}
}

func TestManager_RevertFiles(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "a.txt"), "a1")
	writeFile(t, filepath.Join(root, "b.txt"), "b1")
	mustCommit(t, m, "v1")
	writeFile(t, filepath.Join(root, "a.txt"), "a2")
	writeFile(t, filepath.Join(root, "b.txt"), "b2")
	mustCommit(t, m, "v2")
	v1 := mustList(t, m)[1].ID

	if err := m.RevertFiles(ctx, v1, []string{"a.txt"}); err != nil {
		t.Fatalf("RevertFiles() error = %v", err)
	}

	list := mustList(t, m)
	if len(list) != 3 || list[0].Label != "Restored files: a.txt" {
		t.Fatalf("checkpoints = %v", labels(list))
	}
	if diff := mustGit(t, root, "diff", v1, "HEAD", "--", "a.txt"); diff != "" {
		t.Errorf("a.txt differs from v1:\n%s", diff)
	}
	if diff := mustGit(t, root, "diff", "HEAD~1", "HEAD", "--", "b.txt"); diff != "" {
		t.Errorf("b.txt changed:\n%s", diff)
	}
}

func TestManager_Identity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	id, err := m.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id != (Identity{Name: "Test User", Email: "test@example.com"}) {
		t.Errorf("Identity() = %+v", id)
	}

	want := Identity{Name: "Grace O'Hara", Email: "grace@example.com"}
	if err := m.SetIdentity(ctx, want); err != nil {
		t.Fatalf("SetIdentity() error = %v", err)
	}
	if id, _ = m.Identity(ctx); id != want {
		t.Errorf("Identity() after set = %+v, want %+v", id, want)
	}
}

func TestManager_IdentityUnset(t *testing.T) {
	m, _ := newTestManager(t)
	if err := os.Remove(filepath.Join(os.Getenv("HOME"), ".gitconfig")); err != nil {
		t.Fatal(err)
	}

	id, err := m.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id != (Identity{}) {
		t.Errorf("Identity() = %+v, want empty", id)
	}
}

func TestManager_DiffAndBranches(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "a.txt"), "old\n")
	writeFile(t, filepath.Join(root, "b.txt"), "same\n")
	mustCommit(t, m, "v1")
	id := mustList(t, m)[0].ID
	writeFile(t, filepath.Join(root, "a.txt"), "new\n")

	patch, err := m.Diff(ctx, id, "a.txt")
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if !strings.Contains(patch, "-old") || !strings.Contains(patch, "+new") {
		t.Errorf("Diff() = %q", patch)
	}
	if patch, _ := m.Diff(ctx, id, "b.txt"); patch != "" {
		t.Errorf("Diff(b.txt) = %q, want empty", patch)
	}

	branch, err := m.CurrentBranch(ctx)
	if err != nil || branch != "main" {
		t.Errorf("CurrentBranch() = %q, %v; want main", branch, err)
	}

	backup, err := m.CreateBackupBranch(ctx)
	if err != nil {
		t.Fatalf("CreateBackupBranch() error = %v", err)
	}
	if got := mustGit(t, root, "rev-parse", backup); got != mustGit(t, root, "rev-parse", "HEAD") {
		t.Errorf("backup branch at %s, want HEAD", got)
	}
}

func TestManager_StashAndPop(t *testing.T) {
	m, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	mustCommit(t, m, "v1")
	writeFile(t, filepath.Join(root, "a.txt"), "a changed")
	writeFile(t, filepath.Join(root, "b.txt"), "b changed")

	if err := m.Stash(ctx, []string{"a.txt"}); err != nil {
		t.Fatalf("Stash() error = %v", err)
	}
	if got := readFile(t, filepath.Join(root, "a.txt")); got != "a" {
		t.Errorf("a.txt = %q after stash", got)
	}
	if got := readFile(t, filepath.Join(root, "b.txt")); got != "b changed" {
		t.Errorf("b.txt = %q, should not be stashed", got)
	}
	if list := mustGit(t, root, "stash", "list"); !strings.Contains(list, StashLabel) {
		t.Errorf("stash list = %q, want label", list)
	}

	if err := m.PopStash(ctx); err != nil {
		t.Fatalf("PopStash() error = %v", err)
	}
	if got := readFile(t, filepath.Join(root, "a.txt")); got != "a changed" {
		t.Errorf("a.txt = %q after pop", got)
	}
}

func TestManager_CleanUp(t *testing.T) {
	m, root := newTestManager(t)

	writeFile(t, filepath.Join(root, "a.txt"), "a")
	mustCommit(t, m, "v1")
	writeFile(t, filepath.Join(root, "junk", "tmp.txt"), "x")

	if err := m.CleanUp(context.Background()); err != nil {
		t.Fatalf("CleanUp() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "junk")); !os.IsNotExist(err) {
		t.Error("untracked directory survived clean")
	}
}

func TestManager_NotifiesAroundOperations(t *testing.T) {
	var got []any
	m, root := newTestManager(t, WithNotifier(func(msg any) { got = append(got, msg) }))
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	mustCommit(t, m, "v1")

	want := []any{
		events.OperationStartedMsg{Operation: "commit"},
		events.OperationFinishedMsg{Operation: "commit"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("notifications = %#v, want %#v", got, want)
	}
}

func TestManager_NeedsElevation(t *testing.T) {
	m, root := newTestManager(t)
	if m.NeedsElevation() {
		t.Error("NeedsElevation() = true for writable temp dir")
	}

	if os.Geteuid() == 0 {
		t.Skip("root can write anywhere")
	}
	if err := os.Chmod(root, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(root, 0755) })
	if !m.NeedsElevation() {
		t.Error("NeedsElevation() = false for read-only dir")
	}
}

// recordingRunner captures chains without running them.
type recordingRunner struct {
	calls []recordedCall
	err   error
}

type recordedCall struct {
	chain []process.Command
	opts  process.Options
}

func (r *recordingRunner) Execute(_ context.Context, chain []process.Command, opts process.Options) (process.Result, error) {
	r.calls = append(r.calls, recordedCall{chain: chain, opts: opts})
	return process.Result{}, r.err
}

func TestManager_EmptyArgumentsRunNothing(t *testing.T) {
	r := &recordingRunner{}
	m := NewManager(t.TempDir(), r)
	ctx := context.Background()

	if branch, err := m.ResetToCheckpoint(ctx, ""); branch != "" || !errors.Is(err, ErrEmptyArgument) {
		t.Errorf("ResetToCheckpoint(\"\") = %q, %v", branch, err)
	}
	checks := map[string]error{
		"AddFiles":         m.AddFiles(ctx, nil),
		"Commit":           m.Commit(ctx, nil, ""),
		"DeleteCheckpoint": m.DeleteCheckpoint(ctx, ""),
		"RevertFiles id":   m.RevertFiles(ctx, "", []string{"a"}),
		"RevertFiles none": m.RevertFiles(ctx, "abc", nil),
		"SetIdentity":      m.SetIdentity(ctx, Identity{Name: "x"}),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrEmptyArgument) {
			t.Errorf("%s error = %v, want ErrEmptyArgument", name, err)
		}
	}
	if _, err := m.Status(ctx, ""); !errors.Is(err, ErrEmptyArgument) {
		t.Errorf("Status(\"\") error = %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(r.calls))
	}
}

func TestManager_CommandChains(t *testing.T) {
	r := &recordingRunner{}
	dir := t.TempDir()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewManager(dir, r, WithGit("/usr/bin/git"), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	_ = m.Stash(ctx, []string{"-rf", "a b.txt"})
	_, _ = m.ResetToCheckpoint(ctx, "abc123")
	_ = m.RevertFiles(ctx, "abc123", []string{"x.txt"})
	_ = m.AddFiles(ctx, []string{"."})

	want := []string{
		"/usr/bin/git stash push -m 'stash created by restorepoint' -- -rf 'a b.txt'",
		"/usr/bin/git stash && /usr/bin/git branch bak_20260102_030405 && /usr/bin/git reset --hard abc123",
		"/usr/bin/git stash && /usr/bin/git checkout abc123 -- x.txt && /usr/bin/git commit -m 'Restored files: x.txt'",
		"/usr/bin/git add .",
	}
	if len(r.calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(r.calls), len(want))
	}
	for i, call := range r.calls {
		if got := process.Describe(call.chain); got != want[i] {
			t.Errorf("call %d = %q, want %q", i, got, want[i])
		}
		if call.opts.Dir != dir || call.opts.Elevate || call.opts.Quiet {
			t.Errorf("call %d opts = %+v", i, call.opts)
		}
	}
}

func TestManager_QueriesAreQuiet(t *testing.T) {
	r := &recordingRunner{}
	m := NewManager(t.TempDir(), r)

	_, _ = m.Diff(context.Background(), "abc", "")
	_, _ = m.BackupBranches(context.Background())

	for i, call := range r.calls {
		if !call.opts.Quiet {
			t.Errorf("call %d (%s) not quiet", i, process.Describe(call.chain))
		}
	}
	if len(r.calls) != 2 {
		t.Errorf("got %d calls, want 2", len(r.calls))
	}
}
