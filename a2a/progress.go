package a2a

import (
	"sync"
	"time"

	"github.com/agentgrid/relay/hub"
)

// ProgressLine is one queued narration line with its capture time.
type ProgressLine struct {
	At   time.Time
	Text string
}

// ProgressBuffer queues narration lines until the executor drains them
// into working status updates between steps. It implements
// hub.ProgressSink, so it can be handed to a Hub as the narration target.
type ProgressBuffer struct {
	mu    sync.Mutex
	lines []ProgressLine
}

// NewProgressBuffer creates an empty buffer.
func NewProgressBuffer() *ProgressBuffer {
	return &ProgressBuffer{}
}

// Push implements hub.ProgressSink, stamping the line with the current
// time.
func (b *ProgressBuffer) Push(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, ProgressLine{At: time.Now(), Text: message})
}

// Drain atomically removes and returns the queued lines in push order.
func (b *ProgressBuffer) Drain() []ProgressLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.lines
	b.lines = nil
	return out
}

var _ hub.ProgressSink = (*ProgressBuffer)(nil)
