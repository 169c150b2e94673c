// Package main provides the entry point for the foilreport CLI.
//
// foilreport fetches wind forecasts for a list of foiling spots, renders them
// into a single HTML report and publishes it by swapping a pointer file, so
// the previous report stays online until the new one is verified.
//
// Usage:
//
//	foilreport run
//	foilreport schedule
//
// See --help for all available options.
package main

import (
	_ "time/tzdata" // run timezones must resolve on minimal CI images
)

// main is the entry point for foilreport.
func main() {
	Execute()
}
