// Package model defines the core data structures used throughout foilreport.
//
// This package contains the following main types:
//   - RunContext: The start time and timezone shared by every stage of a run
//   - Stage: The publish pipeline state machine
//   - Run: The record of one pipeline execution, threaded through all steps
//   - StageError: A stage failure tagged with its error kind
//
// The pipeline, the history database and the report writers all depend on
// this package; it depends on none of them.
package model
