// Package handler supplies a reference application handler for the
// tracker server: spec.md leaves handle_diff entirely external, so
// LoggingHandler exists purely as a demo/test stand-in, the way
// gossip.Membership's onMembershipChanged callback is just a log line in
// the teacher rather than real application logic.
package handler

import (
	"log"

	"presenced/internal/tracker"
)

// LoggingHandler adapts every diff into a log.Printf line, grouped the
// same way the teacher logs membership and ring changes.
type LoggingHandler struct {
	Name string
}

var _ tracker.Handler = (*LoggingHandler)(nil)

// Init implements tracker.Handler.
func (h *LoggingHandler) Init() error {
	log.Printf("[%s] presence handler ready", h.Name)
	return nil
}

// HandleDiff implements tracker.Handler.
func (h *LoggingHandler) HandleDiff(diffs []tracker.TopicDiff) error {
	for _, d := range diffs {
		for _, j := range d.Joins {
			log.Printf("[%s] %s: join %s %v", h.Name, d.Topic, j.Key, j.Meta)
		}
		for _, l := range d.Leaves {
			log.Printf("[%s] %s: leave %s %v", h.Name, d.Topic, l.Key, l.Meta)
		}
	}
	return nil
}
