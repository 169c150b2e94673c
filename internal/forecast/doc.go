// Package forecast holds the forecast data carried from the fetcher to the
// renderer, the RawDataFile codec between them, and the rating logic that
// turns a forecast hour into 0 to 3 stars for a given spot.
//
// A RawDataFile is a semicolon separated CSV with one block per forecast
// model. The fetcher writes it with WriteCSV and the renderer reads it back
// with ReadCSV, so the format only has to be stable between the two.
package forecast
