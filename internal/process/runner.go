// pattern: Imperative Shell

package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	"restorepoint/internal/logging"
)

const shellName = "restorepoint"

// Exit codes with a fixed meaning. sh uses 126/127 for a program that cannot
// be executed or found; pkexec uses the same pair for a dismissed prompt and
// failed authorization.
const (
	exitCannotExecute = 126
	exitNotFound      = 127
)

// Config selects the interpreter and the privilege helper.
type Config struct {
	Shell    string // defaults to /bin/sh
	Elevator string // defaults to pkexec
}

// Options control a single Execute call.
type Options struct {
	Dir     string // working directory for the chain
	Quiet   bool   // do not log the command line
	Elevate bool   // run through the privilege helper
}

// Result carries the combined, whitespace-trimmed output of a chain and the
// exit code of the process that ran it (-1 when it never exited normally).
// Raw is the same output untrimmed, for NUL separated listings whose
// entries may start or end with spaces.
type Result struct {
	Output   string
	Raw      string
	ExitCode int
}

// Runner executes one command chain at a time. A second call while one is
// in flight fails with ErrAlreadyRunning instead of queueing.
type Runner struct {
	cfg    Config
	logger *logging.ScopedLogger

	mu      sync.Mutex
	running bool
}

// New creates a Runner.
func New(cfg Config, logger *logging.ScopedLogger) *Runner {
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	if cfg.Elevator == "" {
		cfg.Elevator = "pkexec"
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Running reports whether a chain is currently executing.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Execute runs chain in opts.Dir and blocks until it terminates. The steps
// are joined with shell && semantics: the first failing step ends the chain
// and its status becomes the chain's status. The Result is populated on
// failure too.
func (r *Runner) Execute(ctx context.Context, chain []Command, opts Options) (Result, error) {
	if len(chain) == 0 {
		return Result{}, errors.New("process: empty command chain")
	}

	if !r.acquire() {
		r.logger.Debug("refusing command, runner busy", "command", Describe(chain))
		return Result{}, ErrAlreadyRunning
	}
	defer r.release()

	display := Describe(chain)
	if !opts.Quiet {
		r.logger.Info(display, "dir", opts.Dir, "elevated", opts.Elevate)
	}

	script, params := chainScript(opts.Dir, chain)
	args := append([]string{"-c", script, shellName}, params...)
	name := r.cfg.Shell
	if opts.Elevate {
		name = r.cfg.Elevator
		args = append([]string{r.cfg.Shell}, args...)
	}

	res, err := run(ctx, name, args)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	perr := classify(err, res, opts.Elevate)
	perr.Command = display
	if !opts.Quiet {
		r.logger.Warn("command failed", "command", display, "kind", perr.Kind.String(), "exit_code", res.ExitCode)
	}
	return res, perr
}

func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// run starts a single process, gathers stdout and stderr into one buffer in
// arrival order, and waits for it.
func run(ctx context.Context, name string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminateProcessGroup(cmd) }

	// The same *bytes.Buffer for both streams means exec serializes writes.
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	raw := output.String()
	res := Result{Output: strings.TrimSpace(raw), Raw: raw, ExitCode: -1}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	return res, err
}

func classify(err error, res Result, elevated bool) *Error {
	perr := &Error{Output: res.Output, ExitCode: res.ExitCode, Err: err}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		perr.Kind = LaunchFailure
		return perr
	}

	switch code := exitErr.ExitCode(); {
	case code < 0:
		perr.Kind = AbnormalExit
	case elevated && (code == exitCannotExecute || code == exitNotFound):
		perr.Kind = ElevationDenied
	case code == exitCannotExecute || code == exitNotFound:
		perr.Kind = LaunchFailure
	default:
		perr.Kind = NonZeroExit
	}
	return perr
}
