// Package config provides configuration structures and utilities for
// foilreport. It defines the forecast sites and their wind criteria, the
// fetcher, renderer and publisher settings, and the lookup of the YAML
// configuration file.
package config
