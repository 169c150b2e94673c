// Package metrics records pipeline runs as Prometheus metrics.
//
// foilreport runs as a batch job, so metrics are not scraped from the
// process. They are written to a textfile that node_exporter's textfile
// collector picks up after every run.
package metrics
