// Package publish hands a swapped working directory to the static host.
//
// A publisher runs after the pointer swap, so its errors are reported but
// never undo the local publish.
package publish
