package datadict

import (
	"bytes"
	"math"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsim/core"
)

func TestToRecord_Layout(t *testing.T) {
	d := sample(t)

	rec, err := d.ToRecord(memory.NewGoAllocator())
	require.NoError(t, err)

	defer rec.Release()

	assert.Equal(t, int64(4), rec.NumRows())
	assert.Equal(t, int64(4), rec.NumCols())
	assert.Equal(t, StepColumn, rec.ColumnName(0))
	assert.Equal(t, AgentColumn, rec.ColumnName(1))
	assert.Equal(t, "energy", rec.ColumnName(2))

	assert.Equal(t, []int64{1, 1, 2, 2}, rec.Column(0).(*array.Int64).Int64Values())
	assert.Equal(t, []int64{0, 1, 0, 1}, rec.Column(1).(*array.Int64).Int64Values())
	assert.Equal(t, []int64{11, 21, 12, 22}, rec.Column(2).(*array.Int64).Int64Values())
	assert.Equal(t, []int64{1, 1, 2, 2}, rec.Column(3).(*array.Int64).Int64Values())
}

func TestIPC_RoundTrip(t *testing.T) {
	d := sample(t)
	d.Seal(true)

	data, err := d.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.True(t, d.Equal(got))
	assert.Equal(t, d.Fingerprint(), got.Fingerprint())
	assert.True(t, got.Sealed())

	info := got.Info()
	assert.Equal(t, "energy", info.ModelName)
	assert.Equal(t, "run-1", info.RunID)
	assert.Equal(t, 2, info.Agents)
	assert.True(t, info.Completed)
	assert.Equal(t, core.Parameters{"growth": 1.5}, got.Parameters())
}

func TestIPC_RoundTripNonFiniteParameters(t *testing.T) {
	params := core.Parameters{"rate": math.Inf(1), "floor": math.Inf(-1), "noise": math.NaN(), "growth": 0.1}

	d := New(core.MustSchema("x"), 1, func(o *Options) { o.Parameters = params })
	require.NoError(t, d.Record(1, [][]int64{{4}}))
	d.Seal(true)

	data, err := d.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.True(t, d.Equal(got))

	back := got.Parameters()
	assert.True(t, math.IsInf(back["rate"], 1))
	assert.True(t, math.IsInf(back["floor"], -1))
	assert.True(t, math.IsNaN(back["noise"]))
	assert.Equal(t, 0.1, back["growth"])
}

func TestIPC_RoundTripEmpty(t *testing.T) {
	d := New(core.MustSchema("x"), 3)

	var buf bytes.Buffer
	require.NoError(t, d.WriteIPC(&buf))

	got, err := ReadIPC(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, 3, got.Agents())
	assert.Equal(t, []string{"x"}, got.Properties())
}

func TestReadIPC_InvalidLayout(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "foo", Type: arrow.PrimitiveTypes.Int64}}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.Int64Builder).Append(1)

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer

	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	_, err := ReadIPC(&buf)
	assert.ErrorIs(t, err, ErrInvalidArrow)
}
