// Package report writes run summaries.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - MarkdownWriter: Markdown for CI step summaries
//   - JSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
//
// The forecast report itself is produced by package renderer; this package
// only describes how a pipeline run went.
package report
