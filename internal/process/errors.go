package process

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned when Execute is called while a previous call
// on the same Runner has not finished. No process is started.
var ErrAlreadyRunning = errors.New("process: already running")

// Kind classifies how a command chain failed. A Kind is itself an error so
// callers can write errors.Is(err, process.NonZeroExit).
type Kind int

const (
	LaunchFailure   Kind = iota + 1 // shell, helper or program could not be started
	AbnormalExit                    // terminated by a signal
	NonZeroExit                     // exited with a non-zero status
	ElevationDenied                 // privilege prompt dismissed or authentication failed
)

func (k Kind) String() string {
	switch k {
	case LaunchFailure:
		return "launch failure"
	case AbnormalExit:
		return "abnormal exit"
	case NonZeroExit:
		return "non-zero exit"
	case ElevationDenied:
		return "elevation denied"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) Error() string {
	return k.String()
}

// Error describes a failed command chain. Output holds the combined output
// collected before the failure.
type Error struct {
	Kind     Kind
	Command  string
	Output   string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s: %v", e.Command, e.Kind, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the failure Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e != nil && e.Kind == k
}

// OutputOf returns the combined output carried by err, if any.
func OutputOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Output
	}
	return ""
}
