package datastore

import (
	"math/big"
	"testing"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/pkg/sats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPeopleTable(t *testing.T, s *Store) catalog.TableID {
	t.Helper()
	mtx := s.BeginMutTx()
	id, err := mtx.CreateTable("people",
		[]catalog.ColumnSchema{
			{ColID: 0, Name: "id", Type: sats.U32Type(), IsAutoinc: true},
			{ColID: 1, Name: "name", Type: sats.StringType()},
		},
		[]catalog.IndexSchema{
			{IndexID: 0, ColID: 1, Name: "people_name_idx", IsUnique: true},
		},
	)
	require.NoError(t, err)
	_, err = mtx.CreateSequence("people_id_seq", id, 0,
		big.NewInt(1), big.NewInt(1), big.NewInt(1<<31), big.NewInt(1))
	require.NoError(t, err)
	_, err = mtx.CommitMutTx()
	require.NoError(t, err)
	return id
}

func TestInsertAndScan(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	mtx := s.BeginMutTx()
	_, row, err := mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(0), sats.NewString("Alice"),
	}})
	require.NoError(t, err)
	v, _ := row.Column(0)
	u32, _ := v.AsU32()
	assert.Equal(t, uint32(1), u32)
	_, err = mtx.CommitMutTx()
	require.NoError(t, err)

	tx := s.BeginTx()
	defer tx.ReleaseTx()
	rows, err := tx.Scan(tableID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, _ := rows[0].Row.Column(1)
	s2, _ := name.AsString()
	assert.Equal(t, "Alice", s2)
}

func TestUniqueConstraintViolation(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	mtx := s.BeginMutTx()
	_, _, err := mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(0), sats.NewString("Alice"),
	}})
	require.NoError(t, err)

	_, _, err = mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(0), sats.NewString("Alice"),
	}})
	var uniqueErr *UniqueConstraintViolationError
	assert.ErrorAs(t, err, &uniqueErr)
	mtx.RollbackMutTx()
}

func TestRollbackIsolation(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	reader := s.BeginTx()
	defer reader.ReleaseTx()

	mtx := s.BeginMutTx()
	_, _, err := mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(0), sats.NewString("Carol"),
	}})
	require.NoError(t, err)
	mtx.RollbackMutTx()

	rows, err := reader.Scan(tableID)
	require.NoError(t, err)
	assert.Len(t, rows, 0)

	after := s.BeginTx()
	defer after.ReleaseTx()
	rows, err = after.Scan(tableID)
	require.NoError(t, err)
	assert.Len(t, rows, 0)
}

func TestSnapshotIsolationAcrossCommit(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	reader := s.BeginTx()
	defer reader.ReleaseTx()

	mtx := s.BeginMutTx()
	_, _, err := mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(0), sats.NewString("Dana"),
	}})
	require.NoError(t, err)
	_, err = mtx.CommitMutTx()
	require.NoError(t, err)

	rows, err := reader.Scan(tableID)
	require.NoError(t, err)
	assert.Len(t, rows, 0, "pre-existing snapshot must not observe a later commit")

	fresh := s.BeginTx()
	defer fresh.ReleaseTx()
	rows, err = fresh.Scan(tableID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUpdateViaDeleteInsert(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	mtx := s.BeginMutTx()
	rid, _, err := mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(0), sats.NewString("Eve"),
	}})
	require.NoError(t, err)
	_, err = mtx.CommitMutTx()
	require.NoError(t, err)

	mtx = s.BeginMutTx()
	ok, err := mtx.Delete(tableID, rid)
	require.NoError(t, err)
	assert.True(t, ok)
	_, _, err = mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(uint32(rid)), sats.NewString("Eve Updated"),
	}})
	require.NoError(t, err)
	_, err = mtx.CommitMutTx()
	require.NoError(t, err)

	tx := s.BeginTx()
	defer tx.ReleaseTx()
	rows, err := tx.Scan(tableID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, _ := rows[0].Row.Column(1)
	str, _ := name.AsString()
	assert.Equal(t, "Eve Updated", str)
}

func TestDropThenQueryNamesTable(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	mtx := s.BeginMutTx()
	require.NoError(t, mtx.DropTable(tableID))
	_, err := mtx.CommitMutTx()
	require.NoError(t, err)

	tx := s.BeginTx()
	defer tx.ReleaseTx()
	_, err = tx.TableIDFromName("people")
	require.Error(t, err)
	assert.Equal(t, "Unknown table: `people`", err.Error())
}

func TestSequenceBatchingAcrossTransactions(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	var lastID uint32
	for i := 0; i < 3; i++ {
		mtx := s.BeginMutTx()
		_, row, err := mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
			sats.NewU32(0), sats.NewString("x"),
		}})
		require.NoError(t, err)
		v, _ := row.Column(0)
		id, _ := v.AsU32()
		assert.Greater(t, id, lastID)
		lastID = id
		_, err = mtx.CommitMutTx()
		require.NoError(t, err)
	}
}

func TestRangeScanOrdering(t *testing.T) {
	s := New()
	tableID := createPeopleTable(t, s)

	mtx := s.BeginMutTx()
	for _, n := range []string{"Zeta", "Alpha", "Mid"} {
		_, _, err := mtx.Insert(tableID, &sats.ProductValue{Elements: []sats.AlgebraicValue{
			sats.NewU32(0), sats.NewString(n),
		}})
		require.NoError(t, err)
	}
	_, err := mtx.CommitMutTx()
	require.NoError(t, err)

	tx := s.BeginTx()
	defer tx.ReleaseTx()
	rows, err := tx.RangeScan(tableID, 0, Range{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	var last uint32
	for _, rw := range rows {
		v, _ := rw.Row.Column(0)
		id, _ := v.AsU32()
		assert.GreaterOrEqual(t, id, last)
		last = id
	}
}
