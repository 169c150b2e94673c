// Package scheduler runs the publish pipeline on a cron schedule.
//
// Runs never overlap: a tick that fires while the previous run is still
// going is skipped, and the next scheduled run is the retry.
package scheduler
