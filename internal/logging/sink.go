// pattern: Imperative Shell

package logging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var errSinkClosed = errors.New("logging: channel sink closed")

// ChannelSink is the zapcore.WriteSyncer feeding the TUI log panel. Every
// JSON line zap writes is decoded into a LogEntry and queued on a buffered
// channel. When the panel falls behind, the oldest queued entry is dropped;
// Write never blocks the runner or the checkpoint manager.
type ChannelSink struct {
	mu     sync.Mutex
	out    chan LogEntry
	closed bool
}

// NewChannelSink returns a sink holding up to size undelivered entries.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{out: make(chan LogEntry, max(size, 1))}
}

// Write queues the entry encoded in line. Lines that are not zap JSON are
// accepted and discarded.
func (s *ChannelSink) Write(line []byte) (int, error) {
	entry, ok := decodeLine(line)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errSinkClosed
	}
	if ok {
		s.publish(entry)
	}
	return len(line), nil
}

// publish queues e, evicting the oldest entries until it fits. Callers hold mu.
func (s *ChannelSink) publish(e LogEntry) {
	for {
		select {
		case s.out <- e:
			return
		default:
		}
		select {
		case <-s.out:
		default:
		}
	}
}

func (s *ChannelSink) Sync() error { return nil }

// Close ends the entry stream. Later calls are no-ops.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return nil
}

// Entries is the stream read by the TUI.
func (s *ChannelSink) Entries() <-chan LogEntry {
	return s.out
}

// decodeLine maps the keys set in encoderConfig onto a LogEntry. Whatever
// is left over becomes Fields.
func decodeLine(line []byte) (LogEntry, bool) {
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return LogEntry{}, false
	}

	e := LogEntry{Timestamp: time.Now(), Level: "INFO", Scope: "app"}
	if msg, ok := take[string](fields, "msg"); ok {
		e.Message = msg
	}
	if level, ok := take[string](fields, "level"); ok {
		e.Level = ParseLevel(level)
	}
	if scope, ok := take[string](fields, "logger"); ok {
		e.Scope = scope
	}
	if ts, ok := take[float64](fields, "ts"); ok {
		e.Timestamp = time.UnixMicro(int64(ts * 1e6))
	}
	delete(fields, "caller")
	delete(fields, "stacktrace")
	e.Fields = fields
	return e, true
}

func take[T any](fields map[string]any, key string) (T, bool) {
	v, ok := fields[key].(T)
	if ok {
		delete(fields, key)
	}
	return v, ok
}
