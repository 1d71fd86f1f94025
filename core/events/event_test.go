package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type opaqueEvent struct{}

func (opaqueEvent) EventType() string { return "test.opaque" }

func TestRenderSkipsEventsWithoutPayload(t *testing.T) {
	if Render(nil) != nil {
		t.Fatalf("expected nil for nil event")
	}
	if Render(opaqueEvent{}) != nil {
		t.Fatalf("expected nil for event without payload")
	}
	rendered := Render(StakePoolCreated{
		Admin:      common.HexToAddress("0x01"),
		APYRateBps: 1000,
		MinStake:   big.NewInt(10),
	})
	if rendered == nil || rendered.Type != TypeStakePoolCreated {
		t.Fatalf("unexpected rendering: %+v", rendered)
	}
	if rendered.Attributes["apyBps"] != "1000" {
		t.Fatalf("unexpected apy attribute %q", rendered.Attributes["apyBps"])
	}
	if rendered.Attributes["maxStake"] != "0" {
		t.Fatalf("nil amount should render as zero, got %q", rendered.Attributes["maxStake"])
	}
}

func TestBufferDrainPreservesOrder(t *testing.T) {
	buf := &Buffer{}
	buf.Emit(StakePoolCreated{APYRateBps: 1})
	buf.Emit(opaqueEvent{})
	buf.Emit(StakePoolCreated{APYRateBps: 2})
	if buf.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", buf.Len())
	}
	drained := buf.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained events, got %d", len(drained))
	}
	if drained[0].Attributes["apyBps"] != "1" || drained[1].Attributes["apyBps"] != "2" {
		t.Fatalf("events out of order: %+v", drained)
	}
	if buf.Len() != 0 {
		t.Fatalf("drain should reset the buffer")
	}

	buf.Emit(StakePoolCreated{})
	buf.Discard()
	if buf.Len() != 0 {
		t.Fatalf("discard should drop buffered events")
	}

	var nilBuf *Buffer
	nilBuf.Emit(StakePoolCreated{})
	if nilBuf.Len() != 0 || nilBuf.Drain() != nil {
		t.Fatalf("nil buffer should be inert")
	}
}

func TestSinkFuncDelivers(t *testing.T) {
	var got []uint64
	sink := SinkFunc(func(rec Record) { got = append(got, rec.Seq) })
	sink.Deliver(Record{Seq: 4})
	sink.Deliver(Record{Seq: 5})
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("unexpected deliveries %v", got)
	}
	var nilSink SinkFunc
	nilSink.Deliver(Record{Seq: 1})
}
