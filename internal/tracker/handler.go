package tracker

import "presenced/internal/crdt"

// KeyMeta is a (key, meta) pair as surfaced to the application handler,
// the same shape as crdt.Presence but named for the handler-facing API
// rather than the CRDT's internal contract.
type KeyMeta struct {
	Key  string
	Meta crdt.Meta
}

// TopicDiff is one topic's joins and leaves since the last diff the
// handler was shown.
type TopicDiff struct {
	Topic  string
	Joins  []KeyMeta
	Leaves []KeyMeta
}

// Handler is the application's diff callback contract (spec's
// `{init, handle_diff}` capability interface). The server holds one
// Handler per namespace and threads diffs through it; calls run off the
// actor goroutine, one at a time (see Server.dispatchDiff).
type Handler interface {
	// Init is called once, synchronously, before the server starts
	// processing its mailbox.
	Init() error
	// HandleDiff is called with the non-empty per-topic diffs
	// accumulated since the previous call. A non-nil error is fatal to
	// the server (ErrHandlerContract).
	HandleDiff(diffs []TopicDiff) error
}

func keyMetaList(tps []crdt.TopicPresence, topic string) []KeyMeta {
	var out []KeyMeta
	for _, tp := range tps {
		if tp.Topic == topic {
			out = append(out, KeyMeta{Key: tp.Key, Meta: tp.Meta})
		}
	}
	return out
}

// groupDiff groups raw joined/left TopicPresence lists (as returned by
// crdt.State operations) into the per-topic shape the handler expects,
// dropping any topic whose join and leave lists are both empty.
func groupDiff(joined, left []crdt.TopicPresence) []TopicDiff {
	topics := make(map[string]bool)
	for _, tp := range joined {
		topics[tp.Topic] = true
	}
	for _, tp := range left {
		topics[tp.Topic] = true
	}

	diffs := make([]TopicDiff, 0, len(topics))
	for topic := range topics {
		j := keyMetaList(joined, topic)
		l := keyMetaList(left, topic)
		if len(j) == 0 && len(l) == 0 {
			continue
		}
		diffs = append(diffs, TopicDiff{Topic: topic, Joins: j, Leaves: l})
	}
	return diffs
}
