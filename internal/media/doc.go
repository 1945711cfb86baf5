// Package media defines the collaborator contracts the production pipeline
// depends on: acquisition sources, vocal separation, lyric synchronization,
// and video composition. Concrete adapters live in the subpackages and shell
// out to external tools; the pipeline only sees these interfaces.
package media
