package tracker

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"presenced/internal/crdt"
	"presenced/internal/registry"
	"presenced/internal/transport"
	"presenced/internal/wire"
)

// ReplicaInfo is a registry.Record projected for the public API, so
// callers outside this module never need to import internal/registry.
type ReplicaInfo struct {
	Name            string
	Vsn             int64
	Status          string
	LastHeartbeatAt time.Time
}

// Server is the tracker server of spec.md §4.3: a single-threaded
// cooperative actor. Every public method below enqueues a request onto
// the mailbox and blocks for a reply (where applicable); the run loop is
// the only goroutine that ever touches state, crdt, reg, pending,
// silentPeriods or currentSampleCount.
type Server struct {
	cfg     Config
	selfRef crdt.ReplicaRef
	topic   string

	tr      transport.Transport
	handler Handler
	state   *crdt.State
	reg     *registry.Registry

	pending            map[string]pendingClock
	silentPeriods      int
	currentSampleCount int
	linked             map[string]bool

	mailbox     chan any
	unsubscribe func()
	stopped     chan struct{}

	eg          *errgroup.Group
	handlerErrs chan error

	rnd *rand.Rand
}

// serverName names the tracker namespace. Every replica derives the same
// transport topic from it, so all replicas publish and subscribe on one
// topic; the node name only identifies a replica within it.
const serverName = "presence"

// Start boots a tracker server: validates cfg, calls handler.Init,
// generates self_ref, subscribes to the namespaced topic, and schedules
// the stuttered first heartbeat, all per spec.md §4.3's Start-up.
func Start(cfg Config, nodeName string, tr transport.Transport, handler Handler) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := handler.Init(); err != nil {
		return nil, fmt.Errorf("tracker: handler init: %w", err)
	}

	selfRef := crdt.ReplicaRef{Name: nodeName, Vsn: newVsn()}
	eg := &errgroup.Group{}
	eg.SetLimit(1)

	s := &Server{
		cfg:                cfg,
		selfRef:            selfRef,
		topic:              "phx_presence:" + serverName,
		tr:                 tr,
		handler:            handler,
		state:              crdt.New(selfRef),
		reg:                registry.New(),
		pending:            make(map[string]pendingClock),
		linked:             make(map[string]bool),
		mailbox:            make(chan any, 64),
		stopped:            make(chan struct{}),
		eg:                 eg,
		handlerErrs:        make(chan error, 1),
		currentSampleCount: cfg.ClockSamplePeriods,
		rnd:                rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	s.unsubscribe = tr.Subscribe(s.topic, s.onTransportMessage)
	go s.run()
	return s, nil
}

// SelfRef returns this server's (name, vsn) identity.
func (s *Server) SelfRef() crdt.ReplicaRef { return s.selfRef }

// Topic returns the namespaced pub/sub topic this server subscribes to.
func (s *Server) Topic() string { return s.topic }

func (s *Server) run() {
	var jitter time.Duration
	if max := int64(s.cfg.BroadcastPeriod / 4); max > 0 {
		jitter = time.Duration(s.rnd.Int63n(max + 1))
	}
	timer := time.NewTimer(jitter)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.handleHeartbeatTick()
			timer.Reset(s.cfg.BroadcastPeriod)

		case err := <-s.handlerErrs:
			log.Printf("[%s] %v, stopping tracker", s.selfRef.Name, err)
			s.shutdown()
			return

		case msg := <-s.mailbox:
			switch m := msg.(type) {
			case trackReq:
				s.handleTrack(m)
			case untrackKeyReq:
				s.handleUntrackKey(m)
			case untrackAllReq:
				s.handleUntrackAll(m)
			case updateReq:
				s.handleUpdate(m)
			case listReq:
				s.handleList(m)
			case replicasReq:
				s.handleReplicas(m)
			case replicaReq:
				s.handleReplica(m)
			case sessionDownEvent:
				s.handleSessionDown(m)
			case inboundHeartbeatEvent:
				s.handleInboundHeartbeat(m)
			case inboundTransferReqEvent:
				s.handleInboundTransferReq(m)
			case inboundTransferAckEvent:
				s.handleInboundTransferAck(m)
			case stopEvent:
				s.shutdown()
				close(m.done)
				return
			default:
				log.Printf("[%s] ignoring unrecognized mailbox value %T", s.selfRef.Name, msg)
			}
		}
	}
}

func (s *Server) shutdown() {
	close(s.stopped)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// dispatchDiff hands non-empty diffs to the handler off the actor
// goroutine: errgroup.Group with a concurrency limit of 1 runs handler
// calls one at a time, in the order they were scheduled. The actor does
// not wait for the call it schedules, but while an earlier handler call
// is still running, scheduling the next one waits for it to return. A
// non-nil error is surfaced on handlerErrs, which the run
// loop's select picks up as a fatal condition (spec.md §7's
// handler_contract_violation).
func (s *Server) dispatchDiff(diffs []TopicDiff) {
	if len(diffs) == 0 {
		return
	}
	s.eg.Go(func() error {
		if err := s.handler.HandleDiff(diffs); err != nil {
			wrapped := fmt.Errorf("%w: %v", ErrHandlerContract, err)
			select {
			case s.handlerErrs <- wrapped:
			default:
			}
			return wrapped
		}
		return nil
	})
}

func (s *Server) enqueue(msg any) {
	select {
	case s.mailbox <- msg:
	case <-s.stopped:
	}
}

func (s *Server) send(msg any) bool {
	select {
	case s.mailbox <- msg:
		return true
	case <-s.stopped:
		return false
	}
}

// onTransportMessage is the transport.Subscribe callback: it runs on
// whatever goroutine the transport dispatches on, so it only ever
// translates a wire message into a mailbox event and enqueues it.
func (s *Server) onTransportMessage(from string, msg any) {
	switch m := msg.(type) {
	case wire.Heartbeat:
		s.enqueue(inboundHeartbeatEvent{from: m.From, delta: m.Delta, clocks: m.Clocks})
	case wire.TransferReq:
		s.enqueue(inboundTransferReqEvent{from: m.From, reqID: m.ReqID})
	case wire.TransferAck:
		s.enqueue(inboundTransferAckEvent{from: m.From, reqID: m.ReqID, snapshot: m.Snapshot})
	default:
		if s.cfg.LogLevel == LogDebug {
			log.Printf("[%s] ignoring unknown message %T from %s", s.selfRef.Name, msg, from)
		}
	}
}

// Track attaches pid to (topic, key) with meta, returning the assigned
// phx_ref.
func (s *Server) Track(pid, topic, key string, meta crdt.Meta) (string, error) {
	reply := make(chan trackReply, 1)
	if !s.send(trackReq{pid: pid, topic: topic, key: key, meta: meta, reply: reply}) {
		return "", ErrStopped
	}
	select {
	case rep := <-reply:
		return rep.ref, rep.err
	case <-s.stopped:
		return "", ErrStopped
	}
}

// Untrack removes the (pid, topic, key) presence, if any.
func (s *Server) Untrack(pid, topic, key string) error {
	reply := make(chan error, 1)
	if !s.send(untrackKeyReq{pid: pid, topic: topic, key: key, reply: reply}) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-s.stopped:
		return ErrStopped
	}
}

// UntrackAll removes every presence owned by pid.
func (s *Server) UntrackAll(pid string) error {
	reply := make(chan struct{})
	if !s.send(untrackAllReq{pid: pid, reply: reply}) {
		return ErrStopped
	}
	select {
	case <-reply:
		return nil
	case <-s.stopped:
		return ErrStopped
	}
}

// Update replaces the meta for an existing (pid, topic, key) presence,
// returning the new phx_ref. Returns ErrNoPresence if no such presence
// exists.
func (s *Server) Update(pid, topic, key string, meta crdt.Meta) (string, error) {
	reply := make(chan trackReply, 1)
	if !s.send(updateReq{pid: pid, topic: topic, key: key, meta: meta, reply: reply}) {
		return "", ErrStopped
	}
	select {
	case rep := <-reply:
		return rep.ref, rep.err
	case <-s.stopped:
		return "", ErrStopped
	}
}

// List returns the locally-visible presences for topic.
func (s *Server) List(topic string) []crdt.Presence {
	reply := make(chan []crdt.Presence, 1)
	if !s.send(listReq{topic: topic, reply: reply}) {
		return nil
	}
	select {
	case ps := <-reply:
		return ps
	case <-s.stopped:
		return nil
	}
}

// Replicas returns a snapshot of the replica registry, for introspection.
func (s *Server) Replicas() []ReplicaInfo {
	reply := make(chan []ReplicaInfo, 1)
	if !s.send(replicasReq{reply: reply}) {
		return nil
	}
	select {
	case rs := <-reply:
		return rs
	case <-s.stopped:
		return nil
	}
}

// Replica returns the registry's view of a single named peer, or
// ErrUnknownReplica if name has never been heard from.
func (s *Server) Replica(name string) (ReplicaInfo, error) {
	reply := make(chan replicaReply, 1)
	if !s.send(replicaReq{name: name, reply: reply}) {
		return ReplicaInfo{}, ErrStopped
	}
	select {
	case rep := <-reply:
		return rep.info, rep.err
	case <-s.stopped:
		return ReplicaInfo{}, ErrStopped
	}
}

// SessionTerminated signals that the local session pid has died; the
// server treats it as untrack(pid) without a link to detach, matching
// spec.md §4.3's "session terminated unexpectedly" handling.
func (s *Server) SessionTerminated(pid string) {
	s.enqueue(sessionDownEvent{pid: pid})
}

// Stop unsubscribes from the transport and halts the actor loop.
func (s *Server) Stop() {
	done := make(chan struct{})
	select {
	case s.mailbox <- stopEvent{done: done}:
		<-done
	case <-s.stopped:
	}
}
