// Package pipeline coordinates karaoke production runs. The orchestrator
// admits submitted songs into a bounded worker pool in request order, walks
// each run through acquire, separate, lyric sync, and compose, and records
// every status move in the song store. Collaborators are reached only through
// the contracts in internal/media, so tests drive the orchestrator with stubs.
package pipeline
