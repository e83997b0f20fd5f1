package wire

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"presenced/internal/clock"
	"presenced/internal/crdt"
)

// HeartbeatToStruct encodes a Heartbeat as a structpb.Struct suitable for
// a gRPC unary call payload.
func HeartbeatToStruct(hb Heartbeat) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"topic":  hb.Topic,
		"from":   refToMap(hb.From),
		"delta":  snapshotToMap(hb.Delta),
		"clocks": clocksToMap(hb.Clocks),
	})
}

// StructToHeartbeat decodes a Heartbeat previously built by
// HeartbeatToStruct.
func StructToHeartbeat(pb *structpb.Struct) (Heartbeat, error) {
	m := pb.AsMap()
	from, err := mapToRef(m["from"])
	if err != nil {
		return Heartbeat{}, fmt.Errorf("wire: decode heartbeat: %w", err)
	}
	delta, err := mapToSnapshot(m["delta"])
	if err != nil {
		return Heartbeat{}, fmt.Errorf("wire: decode heartbeat delta: %w", err)
	}
	clocks, err := mapToClocks(m["clocks"])
	if err != nil {
		return Heartbeat{}, fmt.Errorf("wire: decode heartbeat clocks: %w", err)
	}
	topic, _ := m["topic"].(string)
	return Heartbeat{Topic: topic, From: from, Delta: delta, Clocks: clocks}, nil
}

// TransferReqToStruct encodes a TransferReq.
func TransferReqToStruct(tr TransferReq) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"topic":  tr.Topic,
		"req_id": tr.ReqID,
		"from":   refToMap(tr.From),
		"clocks": clocksToMap(tr.Clocks),
	})
}

// StructToTransferReq decodes a TransferReq.
func StructToTransferReq(pb *structpb.Struct) (TransferReq, error) {
	m := pb.AsMap()
	from, err := mapToRef(m["from"])
	if err != nil {
		return TransferReq{}, fmt.Errorf("wire: decode transfer_req: %w", err)
	}
	clocks, err := mapToClocks(m["clocks"])
	if err != nil {
		return TransferReq{}, fmt.Errorf("wire: decode transfer_req clocks: %w", err)
	}
	reqID, _ := m["req_id"].(string)
	topic, _ := m["topic"].(string)
	return TransferReq{Topic: topic, ReqID: reqID, From: from, Clocks: clocks}, nil
}

// TransferAckToStruct encodes a TransferAck.
func TransferAckToStruct(ta TransferAck) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"topic":    ta.Topic,
		"req_id":   ta.ReqID,
		"from":     refToMap(ta.From),
		"snapshot": snapshotToMap(ta.Snapshot),
	})
}

// StructToTransferAck decodes a TransferAck.
func StructToTransferAck(pb *structpb.Struct) (TransferAck, error) {
	m := pb.AsMap()
	from, err := mapToRef(m["from"])
	if err != nil {
		return TransferAck{}, fmt.Errorf("wire: decode transfer_ack: %w", err)
	}
	snap, err := mapToSnapshot(m["snapshot"])
	if err != nil {
		return TransferAck{}, fmt.Errorf("wire: decode transfer_ack snapshot: %w", err)
	}
	reqID, _ := m["req_id"].(string)
	topic, _ := m["topic"].(string)
	return TransferAck{Topic: topic, ReqID: reqID, From: from, Snapshot: snap}, nil
}

func refToMap(ref crdt.ReplicaRef) map[string]any {
	return map[string]any{"name": ref.Name, "vsn": ref.Vsn}
}

func mapToRef(v any) (crdt.ReplicaRef, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return crdt.ReplicaRef{}, fmt.Errorf("expected a ref object, got %T", v)
	}
	name, _ := m["name"].(string)
	vsn, err := asInt64(m["vsn"])
	if err != nil {
		return crdt.ReplicaRef{}, fmt.Errorf("ref.vsn: %w", err)
	}
	return crdt.ReplicaRef{Name: name, Vsn: vsn}, nil
}

func clocksToMap(clocks map[string]crdt.ClockEntry) map[string]any {
	out := make(map[string]any, len(clocks))
	for name, ce := range clocks {
		out[name] = map[string]any{
			"vsn":          ce.Vsn,
			"vector_clock": vectorClockToMap(ce.Clock),
		}
	}
	return out
}

func mapToClocks(v any) (map[string]crdt.ClockEntry, error) {
	if v == nil {
		return map[string]crdt.ClockEntry{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a clocks object, got %T", v)
	}
	out := make(map[string]crdt.ClockEntry, len(m))
	for name, raw := range m {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("clocks[%s]: expected an object, got %T", name, raw)
		}
		vsn, err := asInt64(entry["vsn"])
		if err != nil {
			return nil, fmt.Errorf("clocks[%s].vsn: %w", name, err)
		}
		vc, err := mapToVectorClock(entry["vector_clock"])
		if err != nil {
			return nil, fmt.Errorf("clocks[%s].vector_clock: %w", name, err)
		}
		out[name] = crdt.ClockEntry{Vsn: vsn, Clock: vc}
	}
	return out, nil
}

func vectorClockToMap(vc clock.VectorClock) map[string]any {
	out := make(map[string]any, len(vc))
	for name, counter := range vc {
		out[name] = counter
	}
	return out
}

func mapToVectorClock(v any) (clock.VectorClock, error) {
	vc := clock.New()
	if v == nil {
		return vc, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a vector clock object, got %T", v)
	}
	for name, raw := range m {
		counter, err := asInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		vc.Set(name, counter)
	}
	return vc, nil
}

func snapshotToMap(s crdt.Snapshot) map[string]any {
	entries := make([]any, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, map[string]any{
			"owner_name":  e.Owner.Name,
			"owner_vsn":   e.Owner.Vsn,
			"pid":         e.Pid,
			"topic":       e.Topic,
			"key":         e.Key,
			"meta":        map[string]any(e.Meta),
			"tag_counter": e.Tag.Counter,
			"deleted":     e.Deleted,
		})
	}
	return map[string]any{
		"entries": entries,
		"clocks":  clocksToMap(s.Clocks),
	}
}

func mapToSnapshot(v any) (crdt.Snapshot, error) {
	if v == nil {
		return crdt.Snapshot{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return crdt.Snapshot{}, fmt.Errorf("expected a snapshot object, got %T", v)
	}

	clocks, err := mapToClocks(m["clocks"])
	if err != nil {
		return crdt.Snapshot{}, err
	}

	rawEntries, _ := m["entries"].([]any)
	entries := make([]crdt.EntrySnapshot, 0, len(rawEntries))
	for i, raw := range rawEntries {
		em, ok := raw.(map[string]any)
		if !ok {
			return crdt.Snapshot{}, fmt.Errorf("entries[%d]: expected an object, got %T", i, raw)
		}
		ownerVsn, err := asInt64(em["owner_vsn"])
		if err != nil {
			return crdt.Snapshot{}, fmt.Errorf("entries[%d].owner_vsn: %w", i, err)
		}
		tagCounter, err := asInt64(em["tag_counter"])
		if err != nil {
			return crdt.Snapshot{}, fmt.Errorf("entries[%d].tag_counter: %w", i, err)
		}
		ownerName, _ := em["owner_name"].(string)
		pid, _ := em["pid"].(string)
		topic, _ := em["topic"].(string)
		key, _ := em["key"].(string)
		deleted, _ := em["deleted"].(bool)
		meta, _ := em["meta"].(map[string]any)

		owner := crdt.ReplicaRef{Name: ownerName, Vsn: ownerVsn}
		entries = append(entries, crdt.EntrySnapshot{
			Owner:   owner,
			Pid:     pid,
			Topic:   topic,
			Key:     key,
			Meta:    crdt.Meta(meta),
			Tag:     crdt.Tag{Ref: owner, Counter: tagCounter},
			Deleted: deleted,
		})
	}

	return crdt.Snapshot{Clocks: clocks, Entries: entries}, nil
}

// asInt64 accommodates structpb's lossy number representation: every
// numeric field round-trips through a protobuf double, so counters and
// vsns come back as float64 rather than the int64 they were encoded
// from.
func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
