// internal/workers/media/deconstruct-media/models.go
package deconstructmedia

const (
	FrameModeCount    = "count"
	FrameModeInterval = "interval"
)

const (
	transcriptFile = "transcript.txt"
	framePattern   = "frame_%03d.jpg"
	syntheticFile  = "synthetic_%03d.jpg"
)

// Janitor is the part of the run's resource janitor the deconstructor needs.
type Janitor interface {
	Dir() string
	Track(path string)
}
