package matchlog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"gamelobby/internal/services/lobby"

	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

const (
	defaultQueue  = 1024
	finalFlushTTL = 5 * time.Second
)

// Migrate creates the match_rounds table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("matchlog migrate: %w", err)
	}
	return nil
}

// Writer is a lobby.Recorder that batches rounds into Postgres. Record never
// blocks; rounds that do not fit the queue are dropped.
type Writer struct {
	db       *sql.DB
	rounds   chan lobby.Round
	interval time.Duration
}

func New(db *sql.DB, interval time.Duration, queue int) *Writer {
	if queue <= 0 {
		queue = defaultQueue
	}
	return &Writer{
		db:       db,
		rounds:   make(chan lobby.Round, queue),
		interval: interval,
	}
}

func (w *Writer) Record(r lobby.Round) {
	select {
	case w.rounds <- r:
	default:
		zap.L().Warn("matchlog.queue_full", zap.String("game", r.GameID))
	}
}

// Run flushes every interval until ctx is done, then flushes what is left.
func (w *Writer) Run(ctx context.Context) {
	tk := time.NewTicker(w.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTTL)
			w.flushLogged(fctx)
			cancel()
			return
		case <-tk.C:
			w.flushLogged(ctx)
		}
	}
}

func (w *Writer) flushLogged(ctx context.Context) {
	n, err := w.flush(ctx)
	if err != nil {
		zap.L().Error("matchlog.persist", zap.Int("rounds", n), zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Debug("matchlog.flushed", zap.Int("rounds", n))
	}
}

// flush drains the queue and writes the batch in one transaction.
func (w *Writer) flush(ctx context.Context) (int, error) {
	var batch []lobby.Round
drain:
	for {
		select {
		case r := <-w.rounds:
			batch = append(batch, r)
		default:
			break drain
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}
	return len(batch), persist(ctx, w.db, batch)
}

func persist(ctx context.Context, db *sql.DB, rounds []lobby.Round) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	const ins = `INSERT INTO match_rounds (game_id, players, mode, started_at)
	             VALUES ($1, $2, $3, $4)`
	for _, r := range rounds {
		players, err := json.Marshal(r.Players)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, ins, r.GameID, string(players), r.Mode, r.StartedAt.UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert round %s: %w", r.GameID, err)
		}
	}
	return tx.Commit()
}
