// Package songs persists song requests and user records in SQLite and is the
// single source of truth for song lifecycle semantics.
//
// The Store manages database connections, schema initialization, queue views
// (active queue, current playing), and status transitions validated against
// an explicit transition table. Song rows capture progress, artifact paths,
// fingerprints, and failure reasons so the pipeline can coordinate without
// additional state, and so an in-flight job's record survives restarts.
//
// While a job runs, the pipeline orchestrator is the sole writer of that
// song's status, progress, and artifacts; everything else is a read-only
// observer. When you add new statuses, update the transition table and
// schema.sql and bump schemaVersion.
package songs
