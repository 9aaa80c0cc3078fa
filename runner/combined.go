package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/datadict"
)

// Column names of the combined experiment layout. They precede the DataDict
// step and agent columns; property columns follow in schema order.
const (
	SampleColumn    = "sample_id"
	IterationColumn = "iteration"

	metaExperiment = "agentsim.experiment"
	metaRuns       = "agentsim.runs"
)

// ErrInvalidResult is returned when a combined export cannot be built or read.
var ErrInvalidResult = errors.New("runner: invalid combined result")

// ExperimentInfo is the experiment level metadata of a combined export.
type ExperimentInfo struct {
	ExperimentID  string        `json:"experiment_id"`
	Name          string        `json:"name"`
	ScheduledRuns int           `json:"scheduled_runs"`
	SampleSize    int           `json:"sample_size"`
	Iterations    int           `json:"iterations"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// runMeta carries what a combined record cannot hold per row. Parameters are
// string encoded so NaN and ±Inf survive JSON.
type runMeta struct {
	RunID      string            `json:"run_id"`
	SampleID   int               `json:"sample_id"`
	Iteration  int               `json:"iteration"`
	Parameters map[string]string `json:"parameters"`
	Info       datadict.Info     `json:"info"`
}

// Info returns the experiment metadata written with a combined export.
func (r *Result) Info() ExperimentInfo {
	return ExperimentInfo{
		ExperimentID:  r.ExperimentID,
		Name:          r.Name,
		ScheduledRuns: len(r.Runs),
		SampleSize:    r.SampleSize,
		Iterations:    r.Iterations,
		StartedAt:     r.StartedAt,
		Duration:      r.Duration,
	}
}

// ArrowSchema returns the schema of the combined export. Every run must share
// one property schema.
func (r *Result) ArrowSchema() (*arrow.Schema, error) {
	if len(r.Runs) == 0 {
		return nil, fmt.Errorf("%w: no runs", ErrInvalidResult)
	}

	schema := r.Runs[0].Data.Schema()
	metas := make([]runMeta, len(r.Runs))

	for i, run := range r.Runs {
		if run.Data == nil || !run.Data.Schema().Equal(schema) {
			return nil, fmt.Errorf("%w: run %s does not share the experiment schema", ErrInvalidResult, run.RunID)
		}

		metas[i] = runMeta{
			RunID:      run.RunID,
			SampleID:   run.SampleID,
			Iteration:  run.Iteration,
			Parameters: run.Parameters.Strings(),
			Info:       run.Data.Info(),
		}
	}

	info, err := json.Marshal(r.Info())
	if err != nil {
		return nil, fmt.Errorf("encode experiment info: %w", err)
	}

	runs, err := json.Marshal(metas)
	if err != nil {
		return nil, fmt.Errorf("encode runs: %w", err)
	}

	names := schema.Names()
	fields := make([]arrow.Field, 0, 4+len(names))

	for _, name := range append([]string{SampleColumn, IterationColumn, datadict.StepColumn, datadict.AgentColumn}, names...) {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64})
	}

	md := arrow.NewMetadata([]string{metaExperiment, metaRuns}, []string{string(info), string(runs)})

	return arrow.NewSchema(fields, &md), nil
}

// ToRecord merges every run into one Arrow record with one row per
// (sample, iteration, step, agent), runs in Result order. The caller must
// Release the record.
func (r *Result) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	schema, err := r.ArrowSchema()
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	sampleB := b.Field(0).(*array.Int64Builder)
	iterB := b.Field(1).(*array.Int64Builder)
	stepB := b.Field(2).(*array.Int64Builder)
	agentB := b.Field(3).(*array.Int64Builder)

	names := r.Runs[0].Data.Properties()

	for _, run := range r.Runs {
		dd := run.Data

		for _, s := range dd.Steps() {
			for a := range dd.Agents() {
				sampleB.Append(int64(run.SampleID))
				iterB.Append(int64(run.Iteration))
				stepB.Append(int64(s))
				agentB.Append(int64(a))
			}
		}

		for p, name := range names {
			col, err := dd.Column(name)
			if err != nil {
				return nil, err
			}

			b.Field(4+p).(*array.Int64Builder).AppendValues(col, nil)
		}
	}

	return b.NewRecord(), nil
}

// WriteIPC writes the combined experiment as a single Arrow IPC stream.
func (r *Result) WriteIPC(w io.Writer) error {
	mem := memory.NewGoAllocator()

	rec, err := r.ToRecord(mem)
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

// MarshalBinary encodes the combined experiment as an Arrow IPC stream.
func (r *Result) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteIPC(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ReadIPC reconstructs a Result from a stream written by Result.WriteIPC.
// Every run gets its own sealed DataDict again.
func ReadIPC(rd io.Reader) (*Result, error) {
	rdr, err := ipc.NewReader(rd, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open arrow stream: %w", err)
	}
	defer rdr.Release()

	res, index, err := resultFromSchema(rdr.Schema())
	if err != nil {
		return nil, err
	}

	for rdr.Next() {
		if err := appendRows(rdr.Record(), res.Runs, index); err != nil {
			return nil, err
		}
	}

	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read arrow stream: %w", err)
	}

	all := make([]core.Parameters, len(res.Runs))

	for i, run := range res.Runs {
		run.Data.Seal(run.Data.Info().Completed)
		all[i] = run.Parameters
	}

	res.Constants, res.Varying = SplitParameters(all)

	return res, nil
}

type runKey struct{ sample, iteration int }

func resultFromSchema(s *arrow.Schema) (*Result, map[runKey]int, error) {
	fields := s.Fields()
	lead := []string{SampleColumn, IterationColumn, datadict.StepColumn, datadict.AgentColumn}

	if len(fields) < len(lead) {
		return nil, nil, fmt.Errorf("%w: missing index columns", ErrInvalidResult)
	}

	names := make([]string, 0, len(fields)-len(lead))

	for i, f := range fields {
		if f.Type.ID() != arrow.INT64 {
			return nil, nil, fmt.Errorf("%w: column %s is %s", ErrInvalidResult, f.Name, f.Type)
		}

		if i < len(lead) {
			if f.Name != lead[i] {
				return nil, nil, fmt.Errorf("%w: column %d is %s, want %s", ErrInvalidResult, i, f.Name, lead[i])
			}

			continue
		}

		names = append(names, f.Name)
	}

	schema, err := core.NewSchema(names...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	md := s.Metadata()

	var info ExperimentInfo
	if err := unmarshalMeta(md, metaExperiment, &info); err != nil {
		return nil, nil, err
	}

	var metas []runMeta
	if err := unmarshalMeta(md, metaRuns, &metas); err != nil {
		return nil, nil, err
	}

	res := &Result{
		ExperimentID: info.ExperimentID,
		Name:         info.Name,
		SampleSize:   info.SampleSize,
		Iterations:   info.Iterations,
		StartedAt:    info.StartedAt,
		Duration:     info.Duration,
		Runs:         make([]RunResult, len(metas)),
	}

	index := make(map[runKey]int, len(metas))

	for i, m := range metas {
		params, err := core.ParseParameters(m.Parameters)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: run %s: %v", ErrInvalidResult, m.RunID, err)
		}

		dd := datadict.New(schema, m.Info.Agents, func(o *datadict.Options) {
			o.Info = m.Info
			o.Parameters = params
		})

		res.Runs[i] = RunResult{
			RunID:      m.RunID,
			SampleID:   m.SampleID,
			Iteration:  m.Iteration,
			Parameters: params,
			Data:       dd,
		}
		index[runKey{m.SampleID, m.Iteration}] = i
	}

	return res, index, nil
}

func unmarshalMeta(md arrow.Metadata, key string, v any) error {
	i := md.FindKey(key)
	if i < 0 {
		return fmt.Errorf("%w: missing %s metadata", ErrInvalidResult, key)
	}

	if err := json.Unmarshal([]byte(md.Values()[i]), v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResult, key, err)
	}

	return nil
}

// appendRows replays the row-groups of rec into the DataDicts of runs. A
// row-group is the agents of one run at one step and never spans records.
func appendRows(rec arrow.Record, runs []RunResult, index map[runKey]int) error {
	cols := make([]*array.Int64, rec.NumCols())

	for i := range cols {
		col, ok := rec.Column(i).(*array.Int64)
		if !ok {
			return fmt.Errorf("%w: column %s type", ErrInvalidResult, rec.ColumnName(i))
		}

		cols[i] = col
	}

	props := cols[4:]
	rows := int(rec.NumRows())

	for row := 0; row < rows; {
		key := runKey{int(cols[0].Value(row)), int(cols[1].Value(row))}

		i, ok := index[key]
		if !ok {
			return fmt.Errorf("%w: rows for unknown sample %d iteration %d", ErrInvalidResult, key.sample, key.iteration)
		}

		dd := runs[i].Data
		agents := dd.Agents()

		if agents <= 0 || row+agents > rows {
			return fmt.Errorf("%w: truncated row-group at row %d", ErrInvalidResult, row)
		}

		snaps := make([][]int64, agents)
		for a := range snaps {
			snaps[a] = make([]int64, len(props))
			for p, col := range props {
				snaps[a][p] = col.Value(row + a)
			}
		}

		if err := dd.Record(int(cols[2].Value(row)), snaps); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResult, err)
		}

		row += agents
	}

	return nil
}
