// Package fetcher retrieves wind forecasts and writes one RawDataFile per
// site into the working directory.
//
// WindguruFetcher loads each spot page through a PageLoader (a headless
// browser in production), extracts the WG and AROME tables with goquery and
// encodes them with the forecast package. CommandFetcher delegates the whole
// job to an external program instead.
package fetcher
