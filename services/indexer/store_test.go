package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"adlottery/core/events"
	"adlottery/core/types"
	"adlottery/observability/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "index.db")
	store, err := Open(dsn, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(seq uint64, typ string) events.Record {
	return events.Record{
		Seq:         seq,
		CommittedAt: int64(1_000 + seq),
		Event: &types.Event{Type: typ, Attributes: map[string]string{
			"seq": fmt.Sprint(seq),
		}},
	}
}

type sliceSource []events.Record

func (s sliceSource) Events(_ context.Context, after uint64, limit int) ([]events.Record, error) {
	out := make([]events.Record, 0, limit)
	for _, rec := range s {
		if rec.Seq > after && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestDeliverAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.Deliver(record(1, events.TypeStakeOpened))
	store.Deliver(record(2, events.TypeAdSubmitted))
	store.Deliver(record(3, events.TypeStakeOpened))
	store.Deliver(record(3, events.TypeStakeOpened))

	last, err := store.LastSeq(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, last)

	after, err := store.After(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.EqualValues(t, 2, after[0].Seq)
	require.Equal(t, "2", after[0].Event.Attribute("seq"))
	require.EqualValues(t, 1_002, after[0].CommittedAt)

	stakes, err := store.ByType(ctx, events.TypeStakeOpened, 0)
	require.NoError(t, err)
	require.Len(t, stakes, 2)
	require.EqualValues(t, 3, stakes[0].Seq)
}

func TestCatchUpResumesFromLastSeq(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	src := make(sliceSource, 0, 250)
	for i := uint64(1); i <= 250; i++ {
		src = append(src, record(i, events.TypeVoteCast))
	}
	require.NoError(t, store.Index(ctx, src[0]))

	n, err := store.CatchUp(ctx, src)
	require.NoError(t, err)
	require.Equal(t, 249, n)

	n, err = store.CatchUp(ctx, src)
	require.NoError(t, err)
	require.Zero(t, n)

	last, err := store.LastSeq(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 250, last)
}

func TestDeliverRecoversAfterFailedInsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	src := sliceSource{
		record(1, events.TypeStakeOpened),
		record(2, events.TypeVoteCast),
		record(3, events.TypeVoteCast),
	}
	store.Follow(src)

	store.Deliver(events.Record{Seq: 1})
	last, err := store.LastSeq(ctx)
	require.NoError(t, err)
	require.Zero(t, last)

	store.Deliver(src[1])
	indexed, err := store.After(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, indexed, 3)
	require.Equal(t, events.TypeStakeOpened, indexed[0].Event.Type)

	store.Deliver(record(4, events.TypeAdSubmitted))
	last, err = store.LastSeq(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, last)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("  ", nil)
	require.Error(t, err)
}
