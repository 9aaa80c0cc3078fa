// Package model owns one homogeneous agent population and its run loop.
//
// Core goals:
//   - Staged construction: Builder.Build returns a fully valid Model or a
//     *core.BuildError, never a half built value
//   - Exclusive ownership: a Model owns its agents; Run consumes the Model
//     and hands the resulting DataDict to the caller
//   - Sequential stepping: agents are independent by construction, so one
//     Model steps them in a plain loop without locks; parallelism belongs to
//     the model level (see package runner)
package model
