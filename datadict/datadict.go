package datadict

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/agentsim/core"
)

var (
	// ErrSealed is returned by Record once the owning run has finished.
	ErrSealed = errors.New("datadict: sealed")
	// ErrSchemaMismatch is returned when a snapshot width differs from the schema.
	ErrSchemaMismatch = errors.New("datadict: snapshot does not match schema")
	// ErrAgentCount is returned when a row-group does not hold one snapshot per agent.
	ErrAgentCount = errors.New("datadict: agent count mismatch")
	// ErrOutOfRange is returned for row or agent indices outside the recorded data.
	ErrOutOfRange = errors.New("datadict: index out of range")
)

// Info is the run metadata attached to a DataDict.
type Info struct {
	ModelName      string    `json:"model_name"`
	RunID          string    `json:"run_id"`
	Agents         int       `json:"agents"`
	ScheduledSteps int       `json:"scheduled_steps"`
	Completed      bool      `json:"completed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitempty"`
}

// Options configures a new DataDict.
type Options struct {
	// Info is copied into the DataDict; Agents is always overwritten.
	Info Info
	// Parameters are the run parameters; cloned on construction.
	Parameters core.Parameters
	// Capacity preallocates room for this many row-groups.
	Capacity int
}

// DataDict is the append-only columnar log of one run: per step, per agent,
// one value per schema property. Values are stored as one flat column per
// property laid out row-group major (row*agents + agent), which keeps a
// property trajectory contiguous for the analytics layer.
//
// A DataDict is written by exactly one model and is not safe for concurrent
// writes; once sealed it is read-only and may be shared freely.
type DataDict struct {
	info       Info
	parameters core.Parameters
	schema     *core.Schema
	agents     int
	steps      []int
	columns    [][]int64
	sealed     bool
}

// New returns an empty DataDict for agents agents of the given schema.
func New(schema *core.Schema, agents int, optFns ...func(o *Options)) *DataDict {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Info.Agents = agents

	columns := make([][]int64, schema.Len())
	for i := range columns {
		columns[i] = make([]int64, 0, opts.Capacity*agents)
	}

	return &DataDict{
		info:       opts.Info,
		parameters: opts.Parameters.Clone(),
		schema:     schema,
		agents:     agents,
		steps:      make([]int, 0, opts.Capacity),
		columns:    columns,
	}
}

// Record appends one row-group for step. snapshots holds one dense value
// array per agent, in agent index order. The caller is responsible for
// recording each step exactly once in increasing order; no reordering or
// deduplication takes place.
func (d *DataDict) Record(step int, snapshots [][]int64) error {
	if d.sealed {
		return ErrSealed
	}

	if len(snapshots) != d.agents {
		return fmt.Errorf("%w: got %d snapshots, want %d", ErrAgentCount, len(snapshots), d.agents)
	}

	width := d.schema.Len()
	for i, snap := range snapshots {
		if len(snap) != width {
			return fmt.Errorf("%w: agent %d has %d values, want %d", ErrSchemaMismatch, i, len(snap), width)
		}
	}

	for p := range d.columns {
		for _, snap := range snapshots {
			d.columns[p] = append(d.columns[p], snap[p])
		}
	}

	d.steps = append(d.steps, step)

	return nil
}

// Seal marks the run finished. Further Record calls fail with ErrSealed. A
// FinishedAt already present in Info is kept.
func (d *DataDict) Seal(completed bool) {
	if d.sealed {
		return
	}

	d.sealed = true
	d.info.Completed = completed

	if d.info.FinishedAt.IsZero() {
		d.info.FinishedAt = time.Now().UTC()
	}
}

// Sealed reports whether the DataDict has been sealed.
func (d *DataDict) Sealed() bool { return d.sealed }

// Info returns the run metadata.
func (d *DataDict) Info() Info { return d.info }

// Parameters returns a copy of the run parameters.
func (d *DataDict) Parameters() core.Parameters { return d.parameters.Clone() }

// Schema returns the schema every snapshot conforms to.
func (d *DataDict) Schema() *core.Schema { return d.schema }

// Properties returns the property names in column order.
func (d *DataDict) Properties() []string { return d.schema.Names() }

// Agents returns the number of agents per row-group.
func (d *DataDict) Agents() int { return d.agents }

// Len returns the number of recorded row-groups.
func (d *DataDict) Len() int { return len(d.steps) }

// Steps returns the recorded step indices in row order.
func (d *DataDict) Steps() []int { return slices.Clone(d.steps) }

// Row returns the row index recorded for step.
func (d *DataDict) Row(step int) (int, bool) {
	for i, s := range d.steps {
		if s == step {
			return i, true
		}
	}

	return -1, false
}

// Value returns one property value of one agent at the given row.
func (d *DataDict) Value(row, agent int, name string) (int64, error) {
	if err := d.checkIndex(row, agent); err != nil {
		return 0, err
	}

	p, err := d.schema.IndexOf(name)
	if err != nil {
		return 0, err
	}

	return d.columns[p][row*d.agents+agent], nil
}

// Snapshot returns the name keyed property values of one agent at the given row.
func (d *DataDict) Snapshot(row, agent int) (map[string]int64, error) {
	if err := d.checkIndex(row, agent); err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(d.columns))
	for p, col := range d.columns {
		out[d.schema.Name(p)] = col[row*d.agents+agent]
	}

	return out, nil
}

// StepSnapshots returns the name keyed values of every agent recorded for step.
func (d *DataDict) StepSnapshots(step int) ([]map[string]int64, error) {
	row, ok := d.Row(step)
	if !ok {
		return nil, fmt.Errorf("%w: step %d not recorded", ErrOutOfRange, step)
	}

	out := make([]map[string]int64, d.agents)
	for a := range out {
		out[a], _ = d.Snapshot(row, a)
	}

	return out, nil
}

// Column returns a copy of the flat column of one property (row*agents + agent).
func (d *DataDict) Column(name string) ([]int64, error) {
	p, err := d.schema.IndexOf(name)
	if err != nil {
		return nil, err
	}

	return slices.Clone(d.columns[p]), nil
}

// Trajectory returns the values of one property of one agent over all rows.
func (d *DataDict) Trajectory(agent int, name string) ([]int64, error) {
	if agent < 0 || agent >= d.agents {
		return nil, fmt.Errorf("%w: agent %d", ErrOutOfRange, agent)
	}

	p, err := d.schema.IndexOf(name)
	if err != nil {
		return nil, err
	}

	out := make([]int64, len(d.steps))
	for row := range d.steps {
		out[row] = d.columns[p][row*d.agents+agent]
	}

	return out, nil
}

// Equal reports whether both DataDicts hold the same schema, parameters, steps
// and values. Run metadata (ids, timestamps) is ignored so that two
// independent runs of the same model compare equal.
func (d *DataDict) Equal(other *DataDict) bool {
	if d == other {
		return true
	}

	if d == nil || other == nil {
		return false
	}

	if !d.schema.Equal(other.schema) || d.agents != other.agents || !slices.Equal(d.steps, other.steps) {
		return false
	}

	if !d.parameters.Equal(other.parameters) {
		return false
	}

	for p := range d.columns {
		if !slices.Equal(d.columns[p], other.columns[p]) {
			return false
		}
	}

	return true
}

// Fingerprint returns an xxhash digest of schema, population size, steps and
// values. Equal DataDicts have equal fingerprints.
func (d *DataDict) Fingerprint() uint64 {
	h := xxhash.New()

	var buf [8]byte

	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}

	for _, name := range d.schema.Names() {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
	}

	writeInt(int64(d.agents))

	for _, s := range d.steps {
		writeInt(int64(s))
	}

	for _, col := range d.columns {
		for _, v := range col {
			writeInt(v)
		}
	}

	return h.Sum64()
}

func (d *DataDict) checkIndex(row, agent int) error {
	if row < 0 || row >= len(d.steps) {
		return fmt.Errorf("%w: row %d", ErrOutOfRange, row)
	}

	if agent < 0 || agent >= d.agents {
		return fmt.Errorf("%w: agent %d", ErrOutOfRange, agent)
	}

	return nil
}
