package tracker

import "errors"

// ErrNoPresence is returned by Update when (pid, topic, key) names no
// live local presence.
var ErrNoPresence = errors.New("tracker: no presence for (pid, topic, key)")

// ErrHandlerContract is the error a server fatally stops on when the
// application handler's HandleDiff returns a non-nil error.
var ErrHandlerContract = errors.New("tracker: handler contract violation")

// ErrUnknownReplica is returned by Replicas-adjacent lookups for a name
// the registry has never observed.
var ErrUnknownReplica = errors.New("tracker: unknown replica")

// ErrStopped is returned by public API calls made after the server has
// stopped.
var ErrStopped = errors.New("tracker: server stopped")
