package state

import (
	"fmt"

	"adlottery/core/events"
	"adlottery/core/types"
)

type storedEvent struct {
	Seq         uint64
	CommittedAt uint64
	Type        string
	Keys        []string
	Values      []string
}

func encodeEvent(seq uint64, committedAt int64, evt *types.Event) storedEvent {
	keys := evt.SortedKeys()
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = evt.Attributes[k]
	}
	var ts uint64
	if committedAt > 0 {
		ts = uint64(committedAt)
	}
	return storedEvent{Seq: seq, CommittedAt: ts, Type: evt.Type, Keys: keys, Values: values}
}

func (s storedEvent) record() (events.Record, error) {
	if len(s.Keys) != len(s.Values) {
		return events.Record{}, fmt.Errorf("state: event %d has %d keys and %d values", s.Seq, len(s.Keys), len(s.Values))
	}
	attrs := make(map[string]string, len(s.Keys))
	for i, k := range s.Keys {
		attrs[k] = s.Values[i]
	}
	return events.Record{
		Seq:         s.Seq,
		CommittedAt: int64(s.CommittedAt),
		Event:       &types.Event{Type: s.Type, Attributes: attrs},
	}, nil
}

// LastEventSeq returns the sequence number of the most recently appended
// event. Zero means the log is empty.
func (m *Manager) LastEventSeq() (uint64, error) {
	var seq uint64
	if _, err := m.KVGet(eventSeqKey, &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// AppendEvents assigns consecutive sequence numbers to evts and stages them
// in the event log. Sequence numbers start at one.
func (m *Manager) AppendEvents(evts []*types.Event, committedAt int64) ([]events.Record, error) {
	if len(evts) == 0 {
		return nil, nil
	}
	seq, err := m.LastEventSeq()
	if err != nil {
		return nil, err
	}
	out := make([]events.Record, 0, len(evts))
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		seq++
		stored := encodeEvent(seq, committedAt, evt)
		if err := m.KVPut(formatKey(eventRecFormat, seq), stored); err != nil {
			return nil, err
		}
		out = append(out, events.Record{Seq: seq, CommittedAt: committedAt, Event: evt.Clone()})
	}
	if err := m.KVPut(eventSeqKey, seq); err != nil {
		return nil, err
	}
	return out, nil
}

// EventsAfter returns up to limit committed events with a sequence number
// greater than after, in sequence order.
func (m *Manager) EventsAfter(after uint64, limit int) ([]events.Record, error) {
	last, err := m.LastEventSeq()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	out := make([]events.Record, 0)
	for seq := after + 1; seq <= last && len(out) < limit; seq++ {
		var stored storedEvent
		ok, err := m.KVGet(formatKey(eventRecFormat, seq), &stored)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec, err := stored.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
