package storage

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"swaprouter/core/events"
	"swaprouter/native/router"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	store.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return store
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestRecordAndListOutcomes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := &router.SwapOutcome{
		AssetIn:      addr(0xA0),
		AmountIn:     big.NewInt(1000),
		AssetOut:     addr(0xB0),
		AmountOutNet: big.NewInt(99_000),
		Fee:          big.NewInt(1000),
		Beneficiary:  addr(0x04),
		Venue:        router.VenueAggregated,
	}
	require.NoError(t, store.RecordOutcome(ctx, first))
	second := first.Clone()
	second.Venue = router.VenueCallback
	second.AmountOutNet = big.NewInt(50_000)
	second.Fee = big.NewInt(500)
	require.NoError(t, store.RecordOutcome(ctx, second))

	rows, err := store.ListOutcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Newest first.
	require.Equal(t, router.VenueCallback, rows[0].Venue)
	require.Equal(t, big.NewInt(50_000), rows[0].AmountOutNet)
	require.Equal(t, router.VenueAggregated, rows[1].Venue)
	require.Equal(t, big.NewInt(1000), rows[1].AmountIn)
	require.Equal(t, time.Unix(1_700_000_000, 0).UTC(), rows[0].RecordedAt)

	require.Equal(t, big.NewInt(500), rows[0].Fee)
	require.Equal(t, big.NewInt(1000), rows[1].Fee)

	stats, err := store.StatsByVenue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats[router.VenueAggregated].Count)
	require.Equal(t, int64(1), stats[router.VenueCallback].Count)
	require.Equal(t, big.NewInt(1000), stats[router.VenueAggregated].Fees)
	require.Equal(t, big.NewInt(500), stats[router.VenueCallback].Fees)
}

func TestStatsByVenueSumsFees(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, fee := range []int64{250, 750, 1} {
		outcome := &router.SwapOutcome{
			AssetIn:      addr(0xA0),
			AmountIn:     big.NewInt(100),
			AssetOut:     addr(0xB0),
			AmountOutNet: big.NewInt(99),
			Fee:          big.NewInt(fee),
			Beneficiary:  addr(0x04),
			Venue:        router.VenueSplit,
		}
		require.NoError(t, store.RecordOutcome(ctx, outcome))
	}

	stats, err := store.StatsByVenue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats[router.VenueSplit].Count)
	require.Equal(t, big.NewInt(1001), stats[router.VenueSplit].Fees)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestRecorderPersistsSwapEvents(t *testing.T) {
	store := openTestStore(t)
	recorder := NewRecorder(store, nil)

	recorder.Emit(events.SwapSuccessful{
		AssetIn:      addr(0xA0),
		AmountIn:     big.NewInt(42),
		AssetOut:     addr(0xB0),
		AmountOutNet: big.NewInt(41),
		Fee:          big.NewInt(1),
		Beneficiary:  addr(0x04),
		Venue:        router.VenueSplit,
	})
	// Non-swap events are ignored.
	recorder.Emit(events.PauseChanged{Paused: true})

	rows, err := store.ListOutcomes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, router.VenueSplit, rows[0].Venue)
	require.Equal(t, big.NewInt(42), rows[0].AmountIn)
	require.Equal(t, big.NewInt(1), rows[0].Fee)
}
