// Package workdir is the handle on the pipeline working directory.
//
// The directory holds three kinds of files:
//   - RawDataFiles, forecast_<siteID>.csv, one per site of the last fetch
//   - ReportFiles, report_<YYYY-MM-DD>T<HH:MM>.html, named from the run start
//   - the publish pointer, index.html, a redirect to exactly one report
//
// Names are validated so no operation can reach outside the directory.
package workdir
