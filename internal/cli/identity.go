// pattern: Imperative Shell
package cli

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"restorepoint/internal/checkpoint"
)

// RegisterIdentityCommands registers the identity command group commands.
func RegisterIdentityCommands(group *Group, env *Env) {
	group.AddCommand(&Command{
		Name:    "get",
		Summary: "Print the global git name and email",
		Usage:   "Usage: restorepoint identity get",
		Run: func(args []string) error {
			if len(args) > 0 {
				return errUsage
			}
			b, err := env.Open()
			if err != nil {
				return err
			}
			id, err := b.Identity(env.context())
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out(), "name:  %s\nemail: %s\n", orUnset(id.Name), orUnset(id.Email))
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "set",
		Summary: "Set the global git name and email",
		Usage:   "Usage: restorepoint identity set --name <name> --email <email>",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("identity set", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			name := fs.String("name", "", "author name")
			email := fs.String("email", "", "author email")
			if err := fs.Parse(args); err != nil || fs.NArg() > 0 {
				return errUsage
			}
			id := checkpoint.Identity{Name: *name, Email: *email}
			if !id.Complete() {
				return errUsage
			}

			b, err := env.Open()
			if err != nil {
				return err
			}
			if err := b.SetIdentity(env.context(), id); err != nil {
				return err
			}
			fmt.Fprintf(env.out(), "Identity set to %s <%s>\n", id.Name, id.Email)
			return nil
		},
	})
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
