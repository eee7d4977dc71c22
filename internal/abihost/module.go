package abihost

import (
	"context"
	"encoding/binary"

	"github.com/spacetimedb-go/core/internal/bsatn"
	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/internal/datastore"
	"github.com/spacetimedb-go/core/internal/wasm"
	"github.com/spacetimedb-go/core/pkg/sats"
	satbsatn "github.com/spacetimedb-go/core/pkg/bsatn"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// spacetimeModule builds the "spacetime_10.0" host module (§4.6), the
// same export surface the teacher's internal/wasm/spacetime.go offered,
// now backed by h's real *datastore.Store rather than a byte-keyed map.
type spacetimeModule struct {
	h *Host
}

func newSpacetimeModule(h *Host) *spacetimeModule { return &spacetimeModule{h: h} }

func i32() api.ValueType { return api.ValueTypeI32 }

// instantiate registers every ABI export against the wazero runtime
// backing h's wasm.Runtime.
func (m *spacetimeModule) instantiate(ctx context.Context, r wazero.Runtime) error {
	b := r.NewHostModuleBuilder("spacetime_10.0")

	fn := func(goFn func(context.Context, []uint64), params, results []api.ValueType, name string) {
		b.NewFunctionBuilder().WithGoFunction(api.GoFunc(goFn), params, results).Export(name)
	}

	fn(m.datastoreInsertBsatn, []api.ValueType{i32(), i32(), i32()}, []api.ValueType{i32()}, "datastore_insert_bsatn")
	fn(m.datastoreUpdateBsatn, []api.ValueType{i32(), i32(), i32(), i32()}, []api.ValueType{i32()}, "datastore_update_bsatn")
	fn(m.datastoreDeleteAllByEqBsatn, []api.ValueType{i32(), i32(), i32(), i32()}, []api.ValueType{i32()}, "datastore_delete_all_by_eq_bsatn")
	fn(m.datastoreDeleteByIndexScanRangeBsatn, repeatI32(9), []api.ValueType{i32()}, "datastore_delete_by_index_scan_range_bsatn")
	fn(m.datastoreIndexScanRangeBsatn, repeatI32(9), []api.ValueType{i32()}, "datastore_index_scan_range_bsatn")
	fn(m.datastoreIndexScanRangeBsatn, repeatI32(9), []api.ValueType{i32()}, "datastore_btree_scan_bsatn")
	fn(m.datastoreTableScanBsatn, []api.ValueType{i32(), i32()}, []api.ValueType{i32()}, "datastore_table_scan_bsatn")
	fn(m.datastoreTableRowCount, []api.ValueType{i32(), i32()}, []api.ValueType{i32()}, "datastore_table_row_count")
	fn(m.rowIterBsatnAdvance, []api.ValueType{i32(), i32(), i32()}, []api.ValueType{i32()}, "row_iter_bsatn_advance")
	fn(m.rowIterBsatnClose, []api.ValueType{i32()}, []api.ValueType{i32()}, "row_iter_bsatn_close")
	fn(m.indexIDFromName, []api.ValueType{i32(), i32(), i32()}, []api.ValueType{i32()}, "index_id_from_name")
	fn(m.tableIDFromName, []api.ValueType{i32(), i32(), i32()}, []api.ValueType{i32()}, "table_id_from_name")
	fn(m.bytesSourceRead, []api.ValueType{i32(), i32(), i32()}, []api.ValueType{i32()}, "bytes_source_read")
	fn(m.bytesSourceGetLen, []api.ValueType{i32()}, []api.ValueType{i32()}, "bytes_source_get_len")
	fn(m.bytesSourceGetLen, []api.ValueType{i32()}, []api.ValueType{i32()}, "byte_buffer_source_get_len")
	fn(m.bytesSinkWrite, []api.ValueType{i32(), i32(), i32()}, []api.ValueType{i32()}, "bytes_sink_write")
	fn(m.consoleLog, repeatI32(7), []api.ValueType{}, "console_log")
	fn(m.dbCreateTable, []api.ValueType{i32(), i32(), i32(), i32(), i32()}, []api.ValueType{i32()}, "db_create_table")
	fn(m.debugLog, []api.ValueType{i32(), i32()}, []api.ValueType{i32()}, "debug_log")
	fn(m.bsatnSerialize, repeatI32(4), []api.ValueType{i32()}, "bsatn_serialize")
	fn(m.bsatnDeserialize, repeatI32(4), []api.ValueType{i32()}, "bsatn_deserialize")
	fn(m.volatileNonatomicScheduleImmediate, repeatI32(4), []api.ValueType{i32()}, "volatile_nonatomic_schedule_immediate")
	fn(m.identity, []api.ValueType{i32()}, []api.ValueType{i32()}, "identity")
	fn(m.logEnabled, []api.ValueType{i32()}, []api.ValueType{i32()}, "log_enabled")
	b.NewFunctionBuilder().WithGoFunction(api.GoFunc(m.spacetimeModuleAbiVersion), []api.ValueType{}, []api.ValueType{i32()}).Export("spacetime_module_abi_version")

	_, err := b.Instantiate(ctx)
	return err
}

func repeatI32(n int) []api.ValueType {
	out := make([]api.ValueType, n)
	for i := range out {
		out[i] = i32()
	}
	return out
}

// --- memory helpers -------------------------------------------------

func (m *spacetimeModule) readU32(ptr uint32) (uint32, bool) {
	b, err := m.h.readMemory(ptr, 4)
	if err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (m *spacetimeModule) writeU32(ptr uint32, v uint32) bool {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.h.writeMemory(ptr, b[:]) == nil
}

func (m *spacetimeModule) writeU64(ptr uint32, v uint64) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.h.writeMemory(ptr, b[:]) == nil
}

// --- schema/row helpers ----------------------------------------------

func schemaFor(tx *datastore.MutTxId, tableID catalog.TableID) (*catalog.TableSchema, error) {
	return tx.Schema(tableID)
}

// encodeRows draws each row's backing array from mem's size-classed
// pool (internal/wasm's MemoryManager) instead of letting EncodeRow's
// allocation stand alone — a table/index scan is the ABI's one
// per-row-allocation hot path, and the buffers are returned to the
// pool when the iterator they feed is closed (rowIter.release).
func encodeRows(mem *wasm.MemoryManager, schema *catalog.TableSchema, rows []datastore.RowWithID) ([][]byte, error) {
	rt := schema.RowType()
	out := make([][]byte, 0, len(rows))
	for _, r := range rows {
		enc, err := satbsatn.EncodeRow(rt.Product, r.Row)
		if err != nil {
			return nil, err
		}
		buf := mem.AllocateBuffer(len(enc))
		buf = append(buf[:0], enc...)
		out = append(out, buf)
	}
	return out, nil
}

// --- row insert/update/delete ------------------------------------------

func (m *spacetimeModule) datastoreInsertBsatn(ctx context.Context, stack []uint64) {
	tableID := catalog.TableID(uint32(stack[0]))
	dataPtr, dataLen := uint32(stack[1]), uint32(stack[2])

	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	data, err := m.h.readMemory(dataPtr, dataLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	schema, err := schemaFor(tx, tableID)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	row, err := satbsatn.DecodeRow(data, schema.RowType().Product)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	_, inserted, err := tx.Insert(tableID, row)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	// Write the possibly-autoinc-filled row back in place, mirroring the
	// real ABI's insert-overwrite contract.
	enc, err := satbsatn.EncodeRow(schema.RowType().Product, inserted)
	if err != nil || uint32(len(enc)) > dataLen {
		stack[0] = uint64(ErrnoBufferTooSmall)
		return
	}
	if err := m.h.writeMemory(dataPtr, enc); err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) datastoreUpdateBsatn(ctx context.Context, stack []uint64) {
	tableID := catalog.TableID(uint32(stack[0]))
	_ = uint32(stack[1]) // index_id: update-by-index-projection is not modeled; full-row replace instead (see DESIGN.md)
	rowPtr, rowLen := uint32(stack[2]), uint32(stack[3])

	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	data, err := m.h.readMemory(rowPtr, rowLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	schema, err := schemaFor(tx, tableID)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	row, err := satbsatn.DecodeRow(data, schema.RowType().Product)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	// No stable row identity is carried in the wire format, so update is
	// modeled as delete-then-insert keyed by the table's first unique
	// index (internal/eval's runUpdate is also delete-then-insert, of the
	// rows its WHERE clause selects).
	ixPos := -1
	for i, cand := range schema.Indexes {
		if cand.IsUnique {
			ixPos = i
			break
		}
	}
	if ixPos < 0 {
		stack[0] = uint64(ErrnoWrongIndexAlgo)
		return
	}
	ix := schema.Indexes[ixPos]
	key, _ := row.Column(colIndexOf(schema, ix.ColID))
	if _, err := tx.DeleteEq(tableID, ix.ColID, key); err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	if _, _, err := tx.Insert(tableID, row); err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	stack[0] = uint64(ErrnoOK)
}

func colIndexOf(schema *catalog.TableSchema, col catalog.ColID) int {
	for i, c := range schema.Columns {
		if c.ColID == col {
			return i
		}
	}
	return -1
}

func (m *spacetimeModule) datastoreDeleteAllByEqBsatn(ctx context.Context, stack []uint64) {
	tableID := catalog.TableID(uint32(stack[0]))
	keyPtr, keyLen := uint32(stack[1]), uint32(stack[2])

	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	schema, err := schemaFor(tx, tableID)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	if len(schema.Indexes) == 0 {
		stack[0] = uint64(ErrnoWrongIndexAlgo)
		return
	}
	keyBytes, err := m.h.readMemory(keyPtr, keyLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	col, _, _ := schema.ColumnByID(schema.Indexes[0].ColID)
	val, err := satbsatn.DecodeValue(keyBytes, col.Type)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	n, err := tx.DeleteEq(tableID, schema.Indexes[0].ColID, val)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	stack[0] = uint64(n)
}

// --- scans/iterators ---------------------------------------------------

func (m *spacetimeModule) datastoreTableScanBsatn(ctx context.Context, stack []uint64) {
	tableID := catalog.TableID(uint32(stack[0]))
	outPtr := uint32(stack[1])

	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	rows, err := tx.Scan(tableID)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	schema, err := schemaFor(tx, tableID)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	encoded, err := encodeRows(m.h.mem, schema, rows)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	id := m.h.registerIter(&rowIter{encoded: encoded, mem: m.h.mem})
	if !m.writeU32(outPtr, id) {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) datastoreIndexScanRangeBsatn(ctx context.Context, stack []uint64) {
	indexID := uint32(stack[0])
	startPtr, startLen := uint32(stack[1]), uint32(stack[2])
	endPtr, endLen := uint32(stack[3]), uint32(stack[4])
	_, _ = uint32(stack[5]), uint32(stack[6]) // start/end inclusive flags are ignored: the Range passed to RangeScan below is inclusive at both ends

	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	tableID, col, schema, err := resolveIndex(tx, catalog.IndexID(indexID))
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	colSchema, _, _ := schema.ColumnByID(col)
	rng := datastore.Range{}
	if startLen > 0 {
		b, _ := m.h.readMemory(startPtr, startLen)
		v, err := satbsatn.DecodeValue(b, colSchema.Type)
		if err != nil {
			stack[0] = uint64(ErrnoBsatnDecodeError)
			return
		}
		rng.Min = &v
	}
	if endLen > 0 {
		b, _ := m.h.readMemory(endPtr, endLen)
		v, err := satbsatn.DecodeValue(b, colSchema.Type)
		if err != nil {
			stack[0] = uint64(ErrnoBsatnDecodeError)
			return
		}
		rng.Max = &v
	}
	rows, err := tx.RangeScan(tableID, col, rng)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	encoded, err := encodeRows(m.h.mem, schema, rows)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	id := m.h.registerIter(&rowIter{encoded: encoded, mem: m.h.mem})
	stack[0] = uint64(id)
}

func (m *spacetimeModule) datastoreDeleteByIndexScanRangeBsatn(ctx context.Context, stack []uint64) {
	indexID := uint32(stack[0])
	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	tableID, col, schema, err := resolveIndex(tx, catalog.IndexID(indexID))
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	colSchema, _, _ := schema.ColumnByID(col)
	startPtr, startLen := uint32(stack[1]), uint32(stack[2])
	endPtr, endLen := uint32(stack[3]), uint32(stack[4])
	rng := datastore.Range{}
	if startLen > 0 {
		b, _ := m.h.readMemory(startPtr, startLen)
		v, _ := satbsatn.DecodeValue(b, colSchema.Type)
		rng.Min = &v
	}
	if endLen > 0 {
		b, _ := m.h.readMemory(endPtr, endLen)
		v, _ := satbsatn.DecodeValue(b, colSchema.Type)
		rng.Max = &v
	}
	rows, err := tx.RangeScan(tableID, col, rng)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	var n uint32
	for _, r := range rows {
		ok, err := tx.Delete(tableID, r.ID)
		if err != nil {
			stack[0] = uint64(errnoFor(err))
			return
		}
		if ok {
			n++
		}
	}
	stack[0] = uint64(n)
}

func resolveIndex(tx *datastore.MutTxId, indexID catalog.IndexID) (catalog.TableID, catalog.ColID, *catalog.TableSchema, error) {
	for _, schema := range tx.AllTables() {
		for _, ix := range schema.Indexes {
			if ix.IndexID == indexID {
				return schema.TableID, ix.ColID, schema, nil
			}
		}
	}
	return 0, 0, nil, &datastore.TableNotFoundError{Name: "?"}
}

func (m *spacetimeModule) datastoreTableRowCount(ctx context.Context, stack []uint64) {
	tableID := catalog.TableID(uint32(stack[0]))
	outPtr := uint32(stack[1])

	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	rows, err := tx.Scan(tableID)
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	if !m.writeU64(outPtr, uint64(len(rows))) {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) rowIterBsatnAdvance(ctx context.Context, stack []uint64) {
	iterID := uint32(stack[0])
	bufPtr, lenPtr := uint32(stack[1]), uint32(stack[2])

	it, ok := m.h.getIter(iterID)
	if !ok {
		stack[0] = uint64(ErrnoNoSuchIter)
		return
	}
	row, ok := it.next()
	if !ok {
		m.writeU32(lenPtr, 0)
		stack[0] = uint64(ErrnoExhausted)
		return
	}
	cap, ok := m.readU32(lenPtr)
	if !ok {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	if uint32(len(row)) > cap {
		m.writeU32(lenPtr, uint32(len(row)))
		stack[0] = uint64(ErrnoBufferTooSmall)
		return
	}
	if err := m.h.writeMemory(bufPtr, row); err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	m.writeU32(lenPtr, uint32(len(row)))
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) rowIterBsatnClose(ctx context.Context, stack []uint64) {
	m.h.closeIter(uint32(stack[0]))
	stack[0] = uint64(ErrnoOK)
}

// --- name lookups -------------------------------------------------------

func (m *spacetimeModule) indexIDFromName(ctx context.Context, stack []uint64) {
	namePtr, nameLen, outPtr := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])
	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	nameBytes, err := m.h.readMemory(namePtr, nameLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	name := string(nameBytes)
	for _, schema := range tx.AllTables() {
		if id, err := tx.IndexIDFromName(schema.TableID, name); err == nil {
			m.writeU32(outPtr, uint32(id))
			stack[0] = uint64(ErrnoOK)
			return
		}
	}
	stack[0] = uint64(ErrnoNoSuchIndex)
}

func (m *spacetimeModule) tableIDFromName(ctx context.Context, stack []uint64) {
	namePtr, nameLen, outPtr := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])
	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	nameBytes, err := m.h.readMemory(namePtr, nameLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	tableID, err := tx.TableIDFromName(string(nameBytes))
	if err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	m.writeU32(outPtr, uint32(tableID))
	stack[0] = uint64(ErrnoOK)
}

// --- byte source/sink (reducer arg passing, §4.6) -----------------------

func (m *spacetimeModule) bytesSourceRead(ctx context.Context, stack []uint64) {
	sourceID, bufPtr, lenPtr := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])
	cap, ok := m.readU32(lenPtr)
	if !ok {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	data, ok := m.h.runtime.GetByteSource(sourceID)
	if !ok {
		stack[0] = uint64(ErrnoNoSuchIter)
		return
	}
	if uint32(len(data)) > cap {
		m.writeU32(lenPtr, uint32(len(data)))
		stack[0] = uint64(ErrnoBufferTooSmall)
		return
	}
	if len(data) > 0 {
		m.h.writeMemory(bufPtr, data)
	}
	m.writeU32(lenPtr, uint32(len(data)))
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) bytesSourceGetLen(ctx context.Context, stack []uint64) {
	data, ok := m.h.runtime.GetByteSource(uint32(stack[0]))
	if !ok {
		stack[0] = uint64(ErrnoNoSuchIter)
		return
	}
	stack[0] = uint64(len(data))
}

func (m *spacetimeModule) bytesSinkWrite(ctx context.Context, stack []uint64) {
	sinkID, ptr, ln := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])
	data, err := m.h.readMemory(ptr, ln)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	if !m.h.runtime.WriteByteSink(sinkID, data) {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	stack[0] = uint64(ErrnoOK)
}

// --- logging (§4.6, the only guest-facing log surface) ------------------

func (m *spacetimeModule) consoleLog(ctx context.Context, stack []uint64) {
	level := uint32(stack[0])
	msgPtr, msgLen := uint32(stack[1]), uint32(stack[2])
	filePtr, fileLen := uint32(stack[3]), uint32(stack[4])
	line, col := uint32(stack[5]), uint32(stack[6])

	msg, err := m.h.readMemory(msgPtr, msgLen)
	if err != nil {
		return
	}
	file, _ := m.h.readMemory(filePtr, fileLen)
	m.h.log.Infof("[guest:%d] %s (%s:%d:%d)", level, string(msg), string(file), line, col)
}

func (m *spacetimeModule) debugLog(ctx context.Context, stack []uint64) {
	msgPtr, msgLen := uint32(stack[0]), uint32(stack[1])
	msg, err := m.h.readMemory(msgPtr, msgLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	m.h.log.Debugf("[guest] %s", string(msg))
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) logEnabled(ctx context.Context, stack []uint64) {
	stack[0] = 1
}

// --- DDL ------------------------------------------------------------

// dbCreateTable decodes a column descriptor list the module passed as
// BSATN-encoded (name, i64 sats.Kind) pairs via internal/bsatn's untyped
// codec — db_create_table has no module-schema context to resolve a
// sats.AlgebraicType from, unlike internal/eval's CREATE TABLE, whose SQL
// text already names the type (see DESIGN.md).
func (m *spacetimeModule) dbCreateTable(ctx context.Context, stack []uint64) {
	namePtr, nameLen := uint32(stack[0]), uint32(stack[1])
	colsPtr, colsLen := uint32(stack[2]), uint32(stack[3])

	tx, err := m.h.currentTx()
	if err != nil {
		stack[0] = uint64(ErrnoNotInTransaction)
		return
	}
	nameBytes, err := m.h.readMemory(namePtr, nameLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	colsBytes, err := m.h.readMemory(colsPtr, colsLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	decoded, _, err := bsatn.Unmarshal(colsBytes)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	pairs, _ := decoded.([]interface{})
	columns := make([]catalog.ColumnSchema, 0, len(pairs))
	for i, raw := range pairs {
		pair, _ := raw.([]interface{})
		if len(pair) != 2 {
			continue
		}
		colName, _ := pair[0].(string)
		kind, _ := pair[1].(int64)
		columns = append(columns, catalog.ColumnSchema{
			ColID: catalog.ColID(i),
			Name:  colName,
			Type:  sats.AlgebraicType{Kind: sats.Kind(kind)},
		})
	}
	if _, err := tx.CreateTable(string(nameBytes), columns, nil); err != nil {
		stack[0] = uint64(errnoFor(err))
		return
	}
	stack[0] = uint64(ErrnoOK)
}

// --- scheduling (SPEC_FULL supplemented feature 6) -----------------------

func (m *spacetimeModule) volatileNonatomicScheduleImmediate(ctx context.Context, stack []uint64) {
	namePtr, nameLen := uint32(stack[0]), uint32(stack[1])
	argsPtr, argsLen := uint32(stack[2]), uint32(stack[3])

	_, err := m.h.readMemory(namePtr, nameLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	args, err := m.h.readMemory(argsPtr, argsLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	m.h.sched.Schedule(datastore.ReducerID(0), args, 0)
	stack[0] = uint64(ErrnoOK)
}

// --- misc -------------------------------------------------------------

func (m *spacetimeModule) identity(ctx context.Context, stack []uint64) {
	outPtr := uint32(stack[0])
	var zero [32]byte
	if err := m.h.writeMemory(outPtr, zero[:]); err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) spacetimeModuleAbiVersion(ctx context.Context, stack []uint64) {
	stack[0] = uint64(m.h.cfg.ABIVersion)
}

// bsatnSerialize/bsatnDeserialize expose internal/bsatn's untyped
// reflection codec to the guest for ad-hoc values the host has no
// sats.AlgebraicType context for (row encode/decode instead goes
// through pkg/bsatn.EncodeRow/DecodeRow, which is schema-aware).
func (m *spacetimeModule) bsatnSerialize(ctx context.Context, stack []uint64) {
	valPtr, valLen := uint32(stack[0]), uint32(stack[1])
	outPtr, outLenPtr := uint32(stack[2]), uint32(stack[3])

	val, err := m.h.readMemory(valPtr, valLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	cap, ok := m.readU32(outLenPtr)
	if !ok {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	encoded, err := bsatn.Marshal(val)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	if uint32(len(encoded)) > cap {
		m.writeU32(outLenPtr, uint32(len(encoded)))
		stack[0] = uint64(ErrnoBufferTooSmall)
		return
	}
	m.h.writeMemory(outPtr, encoded)
	m.writeU32(outLenPtr, uint32(len(encoded)))
	stack[0] = uint64(ErrnoOK)
}

func (m *spacetimeModule) bsatnDeserialize(ctx context.Context, stack []uint64) {
	dataPtr, dataLen := uint32(stack[0]), uint32(stack[1])
	outPtr, outLenPtr := uint32(stack[2]), uint32(stack[3])

	data, err := m.h.readMemory(dataPtr, dataLen)
	if err != nil {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	cap, ok := m.readU32(outLenPtr)
	if !ok {
		stack[0] = uint64(ErrnoOutOfBounds)
		return
	}
	_, n, err := bsatn.Unmarshal(data)
	if err != nil {
		stack[0] = uint64(ErrnoBsatnDecodeError)
		return
	}
	out := data[:n]
	if uint32(len(out)) > cap {
		m.writeU32(outLenPtr, uint32(len(out)))
		stack[0] = uint64(ErrnoBufferTooSmall)
		return
	}
	m.h.writeMemory(outPtr, out)
	m.writeU32(outLenPtr, uint32(len(out)))
	stack[0] = uint64(ErrnoOK)
}
