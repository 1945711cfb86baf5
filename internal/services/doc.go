// Package services holds the cross-cutting plumbing shared by pipeline
// stages and collaborator adapters: the error taxonomy with its sentinel
// markers and Wrap helper, and the context keys that carry song, stage, and
// run identifiers into structured logs.
//
// Every stage failure is tagged with one of the exported sentinels so the
// orchestrator and control surface can classify it with errors.Is rather
// than string matching.
package services
