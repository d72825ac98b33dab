package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"swaprouter/core/events"
	"swaprouter/native/router"
)

// ErrPathRequired is returned when the backing store path is missing.
var ErrPathRequired = errors.New("storage: database path must be configured")

const schema = `
CREATE TABLE IF NOT EXISTS swap_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    venue TEXT NOT NULL,
    asset_in TEXT NOT NULL,
    amount_in TEXT NOT NULL,
    asset_out TEXT NOT NULL,
    amount_out_net TEXT NOT NULL,
    fee TEXT NOT NULL,
    beneficiary TEXT NOT NULL,
    recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_swap_outcomes_venue ON swap_outcomes(venue);
`

// Store persists the append-only swap audit trail.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open initialises the backing sqlite store at the supplied path.
func Open(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetNowFunc overrides the timestamp source, primarily for deterministic
// tests.
func (s *Store) SetNowFunc(now func() time.Time) {
	if s == nil || now == nil {
		return
	}
	s.now = now
}

// RecordOutcome appends one settled swap to the audit trail.
func (s *Store) RecordOutcome(ctx context.Context, outcome *router.SwapOutcome) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage not configured")
	}
	if outcome == nil {
		return fmt.Errorf("nil outcome")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO swap_outcomes(venue, asset_in, amount_in, asset_out, amount_out_net, fee, beneficiary, recorded_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)
    `,
		outcome.Venue,
		ethcommon.BytesToAddress(outcome.AssetIn[:]).Hex(),
		amountText(outcome.AmountIn),
		ethcommon.BytesToAddress(outcome.AssetOut[:]).Hex(),
		amountText(outcome.AmountOutNet),
		amountText(outcome.Fee),
		ethcommon.BytesToAddress(outcome.Beneficiary[:]).Hex(),
		s.now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// OutcomeRow is one persisted audit entry.
type OutcomeRow struct {
	ID           int64
	Venue        string
	AssetIn      string
	AmountIn     *big.Int
	AssetOut     string
	AmountOutNet *big.Int
	Fee          *big.Int
	Beneficiary  string
	RecordedAt   time.Time
}

// ListOutcomes returns the most recent audit entries, newest first.
func (s *Store) ListOutcomes(ctx context.Context, limit int) ([]OutcomeRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, venue, asset_in, amount_in, asset_out, amount_out_net, fee, beneficiary, recorded_at
        FROM swap_outcomes ORDER BY id DESC LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRow
	for rows.Next() {
		var (
			row       OutcomeRow
			amountIn  string
			amountOut string
			fee       string
			recorded  int64
		)
		if err := rows.Scan(&row.ID, &row.Venue, &row.AssetIn, &amountIn, &row.AssetOut, &amountOut, &fee, &row.Beneficiary, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		row.AmountIn = parseAmount(amountIn)
		row.AmountOutNet = parseAmount(amountOut)
		row.Fee = parseAmount(fee)
		row.RecordedAt = time.Unix(recorded, 0).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

// VenueStats aggregates the audit trail for one venue.
type VenueStats struct {
	Count int64
	Fees  *big.Int
}

// StatsByVenue returns settled-swap counts and collected fee totals per
// venue. Fee amounts are summed as arbitrary-precision integers rather than
// in SQL, which would coerce the text column to floating point.
func (s *Store) StatsByVenue(ctx context.Context) (map[string]VenueStats, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT venue, fee FROM swap_outcomes`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]VenueStats)
	for rows.Next() {
		var (
			venue string
			fee   string
		)
		if err := rows.Scan(&venue, &fee); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		entry := stats[venue]
		if entry.Fees == nil {
			entry.Fees = big.NewInt(0)
		}
		entry.Count++
		entry.Fees.Add(entry.Fees, parseAmount(fee))
		stats[venue] = entry
	}
	return stats, rows.Err()
}

func amountText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(v string) *big.Int {
	parsed, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
	if !ok {
		return big.NewInt(0)
	}
	return parsed
}

// Recorder adapts the store into an events.Emitter that persists settled
// swaps and ignores everything else. Persistence failures are reported
// through the supplied callback rather than interrupting settlement.
type Recorder struct {
	store   *Store
	onError func(error)
}

// NewRecorder wraps the store for event subscription. onError may be nil.
func NewRecorder(store *Store, onError func(error)) *Recorder {
	return &Recorder{store: store, onError: onError}
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(ev events.Event) {
	if r == nil || r.store == nil || ev == nil {
		return
	}
	swap, ok := ev.(events.SwapSuccessful)
	if !ok {
		return
	}
	outcome := &router.SwapOutcome{
		AssetIn:      swap.AssetIn,
		AmountIn:     swap.AmountIn,
		AssetOut:     swap.AssetOut,
		AmountOutNet: swap.AmountOutNet,
		Fee:          swap.Fee,
		Beneficiary:  swap.Beneficiary,
		Venue:        swap.Venue,
	}
	if err := r.store.RecordOutcome(context.Background(), outcome); err != nil && r.onError != nil {
		r.onError(err)
	}
}
