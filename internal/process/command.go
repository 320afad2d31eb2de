// pattern: Functional Core

package process

import (
	"fmt"
	"strings"
)

// Command is one argument vector. It is never parsed by a shell.
type Command struct {
	Name string
	Args []string
}

// Cmd builds a Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func (c Command) argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command for logs, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, a := range c.argv() {
		parts = append(parts, displayArg(a))
	}
	return strings.Join(parts, " ")
}

// Describe renders a chain the way a user would type it.
func Describe(chain []Command) string {
	parts := make([]string, len(chain))
	for i, c := range chain {
		parts[i] = c.String()
	}
	return strings.Join(parts, " && ")
}

func displayArg(a string) string {
	if a == "" || strings.ContainsAny(a, " \t\n'\"\\$`|&;<>()*?[]#~") {
		return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return a
}

// chainScript turns a chain into a shell script that refers to every
// argument only through positional parameters. $1 is the working directory;
// the argv elements of the chain follow in order. The script text therefore
// never contains caller data, and steps are joined with && so the first
// failing step stops the chain.
func chainScript(dir string, chain []Command) (string, []string) {
	if dir == "" {
		dir = "."
	}
	params := []string{dir}

	var sb strings.Builder
	sb.WriteString(`cd -- "$1"`)
	n := 2
	for _, c := range chain {
		sb.WriteString(" &&")
		for _, a := range c.argv() {
			fmt.Fprintf(&sb, ` "${%d}"`, n)
			params = append(params, a)
			n++
		}
	}
	return sb.String(), params
}
