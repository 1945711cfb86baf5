// Package artifactcache indexes finished karaoke artifacts by work
// fingerprint so repeated requests for the same song skip the production
// pipeline entirely.
//
// The index lives in a small SQLite database inside the cache directory,
// next to the backing files it describes. Lookups verify the mandatory
// files still exist on disk; an entry whose files have gone missing is
// purged and reported as a miss, so the cache heals itself instead of
// serving dangling paths.
package artifactcache
