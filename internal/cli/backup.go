// pattern: Imperative Shell
package cli

import (
	"fmt"
)

// RegisterBackupCommands registers the backup command group commands.
func RegisterBackupCommands(group *Group, env *Env) {
	group.AddCommand(&Command{
		Name:    "list",
		Summary: "List backup branches created by restore",
		Usage:   "Usage: restorepoint backup list",
		Run: func(args []string) error {
			if len(args) > 0 {
				return errUsage
			}
			b, err := env.Open()
			if err != nil {
				return err
			}
			branches, err := b.BackupBranches(env.context())
			if err != nil {
				return err
			}
			if len(branches) == 0 {
				fmt.Fprintln(env.out(), "No backup branches.")
				return nil
			}
			for _, name := range branches {
				fmt.Fprintln(env.out(), name)
			}
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "create",
		Summary: "Create a backup branch at the current checkpoint",
		Usage:   "Usage: restorepoint backup create",
		Run: func(args []string) error {
			if len(args) > 0 {
				return errUsage
			}
			b, err := env.Open()
			if err != nil {
				return err
			}
			name, err := b.CreateBackupBranch(env.context())
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out(), "Created backup branch %s\n", env.palette().green(name))
			return nil
		},
	})
}
