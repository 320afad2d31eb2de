// Package events holds the notifications the checkpoint manager publishes to
// observers such as the terminal UI.
package events

// OperationStartedMsg is sent before a checkpoint operation starts its first command.
type OperationStartedMsg struct {
	Operation string
}

// OperationFinishedMsg is sent after a checkpoint operation returns.
type OperationFinishedMsg struct {
	Operation string
	Err       error
}

// WorkTreeChangedMsg is sent when files under the watched directory change.
type WorkTreeChangedMsg struct {
	Path string
}

// Notifier receives any of the messages above. bubbletea's Program.Send fits.
type Notifier func(msg any)
