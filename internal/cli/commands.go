// pattern: Imperative Shell
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"restorepoint/internal/checkpoint"
)

// Backend is the checkpoint API the commands drive. *checkpoint.Manager
// implements it.
type Backend interface {
	Root() string
	Initialized() bool
	List(ctx context.Context) ([]checkpoint.Checkpoint, error)
	Status(ctx context.Context, id string) ([]checkpoint.FileStatus, error)
	Diff(ctx context.Context, id, file string) (string, error)
	Commit(ctx context.Context, files []string, message string) error
	ResetToCheckpoint(ctx context.Context, id string) (string, error)
	RevertFiles(ctx context.Context, id string, files []string) error
	DeleteCheckpoint(ctx context.Context, id string) error
	Stash(ctx context.Context, files []string) error
	PopStash(ctx context.Context) error
	CleanUp(ctx context.Context) error
	Identity(ctx context.Context) (checkpoint.Identity, error)
	SetIdentity(ctx context.Context, id checkpoint.Identity) error
	BackupBranches(ctx context.Context) ([]string, error)
	CreateBackupBranch(ctx context.Context) (string, error)
}

// Opener opens the backend for the working directory. Options are applied
// on top of the ones derived from the configuration.
type Opener func(opts ...checkpoint.Option) (Backend, error)

// Env is what commands need from the outside world.
type Env struct {
	Ctx     context.Context
	Out     io.Writer
	In      io.Reader
	Open    Opener
	NoColor bool
}

func (e *Env) context() context.Context {
	if e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

func (e *Env) palette() palette {
	if e.NoColor {
		return plainPalette()
	}
	return colorPalette()
}

// confirm asks a yes/no question on Out and reads the answer from In.
// Anything but y or yes is a no.
func (e *Env) confirm(question string) bool {
	fmt.Fprintf(e.out(), "%s [y/N] ", question)
	in := e.In
	if in == nil {
		in = os.Stdin
	}
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// BuildApp creates and configures the CLI application with all commands and groups.
func BuildApp(version string, env *Env) *App {
	app := NewApp(version)

	app.AddCommand(&Command{
		Name:    "list",
		Summary: "List checkpoints, newest first",
		Usage:   "Usage: restorepoint list",
		Run:     func(args []string) error { return runList(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "status",
		Summary: "Show files changed since a checkpoint",
		Usage:   "Usage: restorepoint status [id]",
		Run:     func(args []string) error { return runStatus(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "diff",
		Summary: "Show the diff against a checkpoint",
		Usage:   "Usage: restorepoint diff [id] [file]",
		Run:     func(args []string) error { return runDiff(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "snapshot",
		Summary: "Create a checkpoint",
		Usage:   "Usage: restorepoint snapshot -m <label> [--yes] [files...]",
		Run:     func(args []string) error { return runSnapshot(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "restore",
		Summary: "Reset the directory to a checkpoint, keeping a backup branch",
		Usage:   "Usage: restorepoint restore <id>",
		Run:     func(args []string) error { return runRestore(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "restore-files",
		Summary: "Restore files from a checkpoint as a new checkpoint",
		Usage:   "Usage: restorepoint restore-files <id> <files...>",
		Run:     func(args []string) error { return runRestoreFiles(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "delete",
		Summary: "Remove a checkpoint from history",
		Usage:   "Usage: restorepoint delete <id>",
		Run:     func(args []string) error { return runDelete(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "stash",
		Summary: "Shelve uncommitted changes",
		Usage:   "Usage: restorepoint stash [files...]",
		Run:     func(args []string) error { return runStash(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "unstash",
		Summary: "Re-apply the most recent stash",
		Usage:   "Usage: restorepoint unstash",
		Run:     func(args []string) error { return runUnstash(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "cleanup",
		Summary: "Delete untracked and ignored files",
		Usage:   "Usage: restorepoint cleanup [--yes]",
		Run:     func(args []string) error { return runCleanup(env, args) },
	})
	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: restorepoint version",
		Run: func(args []string) error {
			fmt.Fprintln(env.out(), version)
			return nil
		},
	})

	RegisterIdentityCommands(app.AddGroup("identity", "Show or set the global git identity"), env)
	RegisterBackupCommands(app.AddGroup("backup", "List or create backup branches"), env)

	return app
}
