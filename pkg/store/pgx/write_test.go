package pgx

import (
	"context"
	"reflect"
	"testing"

	"github.com/astrobio/biograph/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordedExec struct {
	sql  string
	args []any
}

type fakeTx struct {
	pgxv5.Tx
	batches   []*pgxv5.Batch
	execs     []recordedExec
	committed bool
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgxv5.Batch) pgxv5.BatchResults {
	t.batches = append(t.batches, b)
	return fakeBatchResults{}
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, recordedExec{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeBatchResults struct{ pgxv5.BatchResults }

func (fakeBatchResults) Close() error { return nil }

type fakeConn struct {
	pgxIConn
	tx          *fakeTx
	beginCalled bool
}

func (c *fakeConn) Begin(ctx context.Context) (pgxv5.Tx, error) {
	c.beginCalled = true
	return c.tx, nil
}

// Frequency must be written by its own statement: a data-modifying CTE and
// the main query of one statement share a snapshot, so an increment bundled
// into the mention-insert statement never sees the rows it just created and
// new entities would stay at frequency 0.
func TestUpsertMentionsSyncsFrequencyInSeparateStatement(t *testing.T) {
	tx := &fakeTx{}
	s := NewGraphDBStorage(&fakeConn{tx: tx})

	mentions := []store.Mention{
		{Name: "bone", Type: "genes_proteins"},
		{Name: "mice", Type: "organisms"},
	}
	if err := s.UpsertMentions(context.Background(), "A1", mentions); err != nil {
		t.Fatalf("UpsertMentions() error = %v", err)
	}

	if len(tx.batches) != 1 || len(tx.batches[0].QueuedQueries) != len(mentions) {
		t.Fatalf("expected one batch with %d queued upserts, got %+v", len(mentions), tx.batches)
	}
	for _, q := range tx.batches[0].QueuedQueries {
		if q.SQL != upsertMentionSQL {
			t.Errorf("unexpected batched statement: %s", q.SQL)
		}
	}

	if len(tx.execs) != 1 || tx.execs[0].sql != syncFrequencySQL {
		t.Fatalf("expected exactly one frequency sync statement after the batch, got %+v", tx.execs)
	}
	names, ok := tx.execs[0].args[0].([]string)
	if !ok || !reflect.DeepEqual(names, []string{"bone", "mice"}) {
		t.Fatalf("frequency sync arguments = %v, want [bone mice]", tx.execs[0].args)
	}

	if !tx.committed {
		t.Fatal("transaction was not committed")
	}
}

func TestUpsertMentionsEmptyIsNoop(t *testing.T) {
	conn := &fakeConn{tx: &fakeTx{}}
	s := NewGraphDBStorage(conn)

	if err := s.UpsertMentions(context.Background(), "A1", nil); err != nil {
		t.Fatalf("UpsertMentions() error = %v", err)
	}
	if conn.beginCalled {
		t.Fatal("expected no transaction for an empty mention set")
	}
}
