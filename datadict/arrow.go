package datadict

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/hupe1980/agentsim/core"
)

// Column names and metadata keys of the Arrow layout. Property columns follow
// the two index columns in schema order.
const (
	StepColumn  = "step"
	AgentColumn = "agent"

	metaInfo       = "agentsim.info"
	metaParameters = "agentsim.parameters"
)

// ErrInvalidArrow is returned when an Arrow stream does not carry the DataDict layout.
var ErrInvalidArrow = errors.New("datadict: invalid arrow layout")

// ArrowSchema returns the Arrow schema a DataDict is exported with.
func (d *DataDict) ArrowSchema() (*arrow.Schema, error) {
	info, err := json.Marshal(d.info)
	if err != nil {
		return nil, fmt.Errorf("encode info: %w", err)
	}

	params, err := json.Marshal(d.parameters.Strings())
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}

	fields := make([]arrow.Field, 0, 2+len(d.columns))
	fields = append(fields,
		arrow.Field{Name: StepColumn, Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: AgentColumn, Type: arrow.PrimitiveTypes.Int64},
	)

	for _, name := range d.schema.Names() {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64})
	}

	md := arrow.NewMetadata([]string{metaInfo, metaParameters}, []string{string(info), string(params)})

	return arrow.NewSchema(fields, &md), nil
}

// ToRecord exports the DataDict as a single Arrow record with one row per
// (step, agent) pair. The caller must Release the record.
func (d *DataDict) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	schema, err := d.ArrowSchema()
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	rows := len(d.steps) * d.agents
	stepB := b.Field(0).(*array.Int64Builder)
	agentB := b.Field(1).(*array.Int64Builder)

	stepB.Reserve(rows)
	agentB.Reserve(rows)

	for _, s := range d.steps {
		for a := 0; a < d.agents; a++ {
			stepB.UnsafeAppend(int64(s))
			agentB.UnsafeAppend(int64(a))
		}
	}

	for p, col := range d.columns {
		b.Field(2+p).(*array.Int64Builder).AppendValues(col, nil)
	}

	return b.NewRecord(), nil
}

// WriteIPC writes the DataDict to w as an Arrow IPC stream.
func (d *DataDict) WriteIPC(w io.Writer) error {
	mem := memory.NewGoAllocator()

	rec, err := d.ToRecord(mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))

	if err := wr.Write(rec); err != nil {
		_ = wr.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}

	return wr.Close()
}

// MarshalBinary encodes the DataDict as an Arrow IPC stream.
func (d *DataDict) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.WriteIPC(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode reconstructs a sealed DataDict from MarshalBinary output.
func Decode(data []byte) (*DataDict, error) {
	return ReadIPC(bytes.NewReader(data))
}

// ReadIPC reconstructs a sealed DataDict from an Arrow IPC stream written by
// WriteIPC. Records are concatenated in stream order.
func ReadIPC(r io.Reader) (*DataDict, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open arrow stream: %w", err)
	}
	defer rdr.Release()

	d, err := fromArrowSchema(rdr.Schema())
	if err != nil {
		return nil, err
	}

	for rdr.Next() {
		if err := d.appendRecord(rdr.Record()); err != nil {
			return nil, err
		}
	}

	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read arrow stream: %w", err)
	}

	d.sealed = true

	return d, nil
}

func fromArrowSchema(s *arrow.Schema) (*DataDict, error) {
	fields := s.Fields()
	if len(fields) < 2 || fields[0].Name != StepColumn || fields[1].Name != AgentColumn {
		return nil, fmt.Errorf("%w: missing %s/%s columns", ErrInvalidArrow, StepColumn, AgentColumn)
	}

	names := make([]string, 0, len(fields)-2)
	for _, f := range fields[2:] {
		if f.Type.ID() != arrow.INT64 {
			return nil, fmt.Errorf("%w: column %s is %s", ErrInvalidArrow, f.Name, f.Type)
		}

		names = append(names, f.Name)
	}

	schema, err := core.NewSchema(names...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArrow, err)
	}

	var (
		info   Info
		params core.Parameters
	)

	md := s.Metadata()
	if i := md.FindKey(metaInfo); i >= 0 {
		if err := json.Unmarshal([]byte(md.Values()[i]), &info); err != nil {
			return nil, fmt.Errorf("%w: info: %v", ErrInvalidArrow, err)
		}
	}

	if i := md.FindKey(metaParameters); i >= 0 {
		var raw map[string]string
		if err := json.Unmarshal([]byte(md.Values()[i]), &raw); err != nil {
			return nil, fmt.Errorf("%w: parameters: %v", ErrInvalidArrow, err)
		}

		if params, err = core.ParseParameters(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArrow, err)
		}
	}

	d := New(schema, info.Agents, func(o *Options) {
		o.Info = info
		o.Parameters = params
	})

	return d, nil
}

func (d *DataDict) appendRecord(rec arrow.Record) error {
	rows := int(rec.NumRows())
	if rows == 0 {
		return nil
	}

	if d.agents <= 0 || rows%d.agents != 0 {
		return fmt.Errorf("%w: %d rows for %d agents", ErrInvalidArrow, rows, d.agents)
	}

	steps, ok := rec.Column(0).(*array.Int64)
	if !ok {
		return fmt.Errorf("%w: step column type", ErrInvalidArrow)
	}

	for row := 0; row < rows; row += d.agents {
		d.steps = append(d.steps, int(steps.Value(row)))
	}

	for p := range d.columns {
		col, ok := rec.Column(2 + p).(*array.Int64)
		if !ok {
			return fmt.Errorf("%w: column %s type", ErrInvalidArrow, d.schema.Name(p))
		}

		d.columns[p] = append(d.columns[p], col.Int64Values()...)
	}

	return nil
}
