package model

// Background task types
const (
	TaskTypeScratchSweep = "scratch:sweep"
)

// ScratchSweepPayload is the payload of a scratch:sweep task.
// A zero MaxAgeSeconds means the worker's configured default.
type ScratchSweepPayload struct {
	MaxAgeSeconds int `json:"maxAgeSeconds,omitempty"`
}
