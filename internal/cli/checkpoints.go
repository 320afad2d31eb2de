// pattern: Imperative Shell
package cli

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"restorepoint/internal/checkpoint"
)

var (
	errNotInitialized = errors.New("no checkpoints in this directory yet (create one with 'restorepoint snapshot -m <label>')")
	errNoIdentity     = errors.New("git identity is not configured (run 'restorepoint identity set --name <name> --email <email>')")
)

func runList(env *Env, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	b, err := env.Open()
	if err != nil {
		return err
	}
	list, err := b.List(env.context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(env.out(), "No checkpoints yet.")
		return nil
	}
	fmt.Fprint(env.out(), formatCheckpoints(env.palette(), list))
	return nil
}

func runStatus(env *Env, args []string) error {
	if len(args) > 1 {
		return errUsage
	}
	id := "HEAD"
	if len(args) == 1 {
		id = args[0]
	}

	b, err := env.Open()
	if err != nil {
		return err
	}
	if !b.Initialized() {
		return errNotInitialized
	}
	files, err := b.Status(env.context(), id)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(env.out(), "No changes.")
		return nil
	}
	fmt.Fprint(env.out(), formatStatus(env.palette(), files))
	return nil
}

func runDiff(env *Env, args []string) error {
	if len(args) > 2 {
		return errUsage
	}
	id, file := "HEAD", ""
	if len(args) > 0 {
		id = args[0]
	}
	if len(args) > 1 {
		file = args[1]
	}

	b, err := env.Open()
	if err != nil {
		return err
	}
	if !b.Initialized() {
		return errNotInitialized
	}
	patch, err := b.Diff(env.context(), id, file)
	if err != nil {
		return err
	}
	if patch == "" {
		fmt.Fprintln(env.out(), "No differences.")
		return nil
	}
	fmt.Fprint(env.out(), colorizeDiff(env.palette(), patch))
	return nil
}

func runSnapshot(env *Env, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	message := fs.StringP("message", "m", "", "checkpoint label")
	yes := fs.BoolP("yes", "y", false, "do not ask before the first snapshot of a large directory")
	if err := fs.Parse(args); err != nil || *message == "" {
		return errUsage
	}

	var b Backend
	var opts []checkpoint.Option
	if !*yes {
		opts = append(opts, checkpoint.WithConfirm(func(entries int) bool {
			return env.confirm(fmt.Sprintf("%s contains at least %d files and directories. Create the first checkpoint anyway?", b.Root(), entries))
		}))
	}
	b, err := env.Open(opts...)
	if err != nil {
		return err
	}

	id, err := b.Identity(env.context())
	if err != nil {
		return err
	}
	if !id.Complete() {
		return errNoIdentity
	}

	if err := b.Commit(env.context(), fs.Args(), *message); err != nil {
		if errors.Is(err, checkpoint.ErrDeclined) {
			fmt.Fprintln(env.out(), "Aborted.")
			return nil
		}
		return err
	}
	fmt.Fprintf(env.out(), "Created checkpoint %q\n", *message)
	return nil
}

func runRestore(env *Env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	b, err := env.Open()
	if err != nil {
		return err
	}
	branch, err := b.ResetToCheckpoint(env.context(), args[0])
	if err != nil {
		return err
	}
	p := env.palette()
	fmt.Fprintf(env.out(), "Restored %s. Previous history kept on branch %s\n", p.yellow(args[0]), p.green(branch))
	return nil
}

func runRestoreFiles(env *Env, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, files := args[0], args[1:]
	b, err := env.Open()
	if err != nil {
		return err
	}
	if err := b.RevertFiles(env.context(), id, files); err != nil {
		return err
	}
	fmt.Fprintf(env.out(), "Restored %d file(s) from %s\n", len(files), env.palette().yellow(id))
	return nil
}

func runDelete(env *Env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	b, err := env.Open()
	if err != nil {
		return err
	}
	if err := b.DeleteCheckpoint(env.context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(env.out(), "Deleted checkpoint %s\n", env.palette().yellow(args[0]))
	return nil
}

func runStash(env *Env, args []string) error {
	fs := flag.NewFlagSet("stash", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	b, err := env.Open()
	if err != nil {
		return err
	}
	if err := b.Stash(env.context(), fs.Args()); err != nil {
		return err
	}
	fmt.Fprintln(env.out(), "Stashed uncommitted changes.")
	return nil
}

func runUnstash(env *Env, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	b, err := env.Open()
	if err != nil {
		return err
	}
	if err := b.PopStash(env.context()); err != nil {
		return err
	}
	fmt.Fprintln(env.out(), "Re-applied stashed changes.")
	return nil
}

func runCleanup(env *Env, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	yes := fs.BoolP("yes", "y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil || fs.NArg() > 0 {
		return errUsage
	}
	b, err := env.Open()
	if err != nil {
		return err
	}
	if !*yes && !env.confirm(fmt.Sprintf("Delete all untracked and ignored files in %s?", b.Root())) {
		fmt.Fprintln(env.out(), "Aborted.")
		return nil
	}
	if err := b.CleanUp(env.context()); err != nil {
		return err
	}
	fmt.Fprintln(env.out(), "Removed untracked files.")
	return nil
}
