// Package datadict implements the columnar, append-only result collector of a
// model run and its Apache Arrow encoding.
//
// A DataDict stores one flat int64 column per schema property plus the list
// of recorded step indices. Each recorded step contributes one row-group with
// one value per agent. Models write into it through Record; once the run
// ends it is sealed and handed to the caller, who reads it through the
// accessors (Snapshot, Column, Trajectory) or exports it with WriteIPC for
// analytics tooling.
package datadict
