// Package daemon coordinates the long-running openmicd process: it
// enforces single-instance execution with a lock file, recovers songs
// stranded by an earlier crash, drives the production pipeline, and
// runs the periodic artifact cache sweep.
package daemon
