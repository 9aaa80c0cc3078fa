// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing species (schema, initial values and
// operation lists). It only depends on package core so tests of every other
// package can import it. Not intended for production usage.
package testutil
