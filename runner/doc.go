// Package runner runs experiments: batches of independent models over a
// parameter sample and a number of replicates.
//
// Stepping inside a Model is sequential; the Runner supplies the model-level
// concurrency. Every run builds its own Model from one shared, immutable
// factory, so schema and operation list are read by all runs without locks.
// Runs are bounded by MaxConcurrentRuns, the first failure cancels the
// remaining ones, and a running experiment can be cancelled with Stop.
//
// Parameter samples are built with NewSample from Constant, Values, Range and
// IntRange definitions, combined as a cartesian product or zipped.
//
// When a result store is configured every DataDict is encoded to Arrow IPC
// and saved under the experiment and run id. A whole Result can be exported as
// one combined Arrow stream indexed by sample and iteration (Result.WriteIPC)
// and read back with ReadIPC.
package runner
