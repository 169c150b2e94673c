// Package renderer turns the RawDataFiles of the working directory into the
// single HTML report of the run.
package renderer
