package utterance

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out utterance ids scoped to one capture session.
type Generator struct {
	sessionID string
	counter   uint64
}

func NewGenerator(sessionID string) *Generator {
	return &Generator{sessionID: sessionID}
}

// Next returns "<sessionId>-utt-<n>", starting at 1.
func (g *Generator) Next() string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-utt-%d", g.sessionID, n)
}

// Count returns how many ids were handed out.
func (g *Generator) Count() uint64 {
	return atomic.LoadUint64(&g.counter)
}
