package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	qdb "github.com/questdb/go-questdb-client/v3"

	"github.com/kessler-oss/gridbuf/internal/telemetry"
)

// QuestDBConfig configures a QuestDB sink.
type QuestDBConfig struct {
	// Address of the QuestDB ILP-over-HTTP endpoint.
	//
	// Default: "localhost:9000"
	Address string

	// Table every row is inserted into.
	Table string
}

// DefaultQuestDBConfig returns the default QuestDB sink configuration
// for table.
func DefaultQuestDBConfig(table string) *QuestDBConfig {
	return &QuestDBConfig{
		Address: "localhost:9000",
		Table:   table,
	}
}

// QuestDB inserts rows drained from a grid as time series rows, one
// column per grid column plus the absolute row id.
type QuestDB struct {
	tel    *telemetry.Telemetry
	sender qdb.LineSender
	table  string

	inserted int64
	errors   int64
}

// NewQuestDB connects a QuestDB sink per cfg.
func NewQuestDB(ctx context.Context, cfg *QuestDBConfig) (*QuestDB, error) {
	tel := telemetry.NewTelemetry("sink", "questdb")

	sender, err := qdb.NewLineSender(ctx,
		qdb.WithAddress(cfg.Address),
		qdb.WithHttp(),
		qdb.WithAutoFlushRows(1000),
		qdb.WithRetryTimeout(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("sink: failed to connect to questdb: %w", err)
	}

	q := &QuestDB{tel: tel, sender: sender, table: cfg.Table}
	tel.NewCounter("inserted", q.getInserted)
	tel.NewCounter("errors", q.getErrors)

	return q, nil
}

func (q *QuestDB) getInserted() int64 { return q.inserted }
func (q *QuestDB) getErrors() int64   { return q.errors }

// InsertRow inserts row as one line, with abs_row as a long column and
// one col_N long column per cell, retrying transient failures with
// exponential backoff.
func (q *QuestDB) InsertRow(ctx context.Context, absRow int64, row []int64) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		query := q.sender.Table(q.table).Int64Column("abs_row", absRow)
		for i, v := range row {
			query = query.Int64Column(fmt.Sprintf("col_%d", i), v)
		}
		if writeErr := query.At(ctx, time.Now()); writeErr != nil {
			q.tel.LogWarn("questdb insert failed, retrying", "abs_row", absRow, "error", writeErr)
			return struct{}{}, writeErr
		}
		return struct{}{}, nil
	}, backoff.WithMaxTries(5))

	if err != nil {
		q.errors++
		q.tel.LogError("questdb insert gave up", err, "abs_row", absRow)
		return err
	}

	q.inserted++
	return nil
}

// Close flushes and closes the underlying sender.
func (q *QuestDB) Close(ctx context.Context) error {
	return q.sender.Close(ctx)
}
