package domain

import "time"

// GenerationStatus is the request-level lifecycle state.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
	GenerationPartial    GenerationStatus = "partial"
)

// Terminal reports whether no further transition is expected.
// Partial counts as terminal: some areas finished, some failed.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationCompleted || s == GenerationFailed || s == GenerationPartial
}

// AreaStatus is the per-area lifecycle state.
type AreaStatus string

const (
	AreaPending    AreaStatus = "pending"
	AreaProcessing AreaStatus = "processing"
	AreaCompleted  AreaStatus = "completed"
	AreaFailed     AreaStatus = "failed"
)

// Terminal reports whether the area reached a final state.
func (s AreaStatus) Terminal() bool {
	return s == AreaCompleted || s == AreaFailed
}

// AreaSpec describes one yard area in a submission.
type AreaSpec struct {
	Area                 string  `json:"area"`
	Style                string  `json:"style"`
	CustomPrompt         string  `json:"custom_prompt,omitempty"`
	PreservationStrength float64 `json:"preservation_strength"`
}

// AreaResult is the server-reported state of one area within a generation.
type AreaResult struct {
	AreaID   string     `json:"area_id"`
	Status   AreaStatus `json:"status"`
	ImageURL string     `json:"image_url,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// GenerationRequest is a multi-area generation job as reported by the backend.
type GenerationRequest struct {
	ID           string           `json:"id"`
	Address      string           `json:"address,omitempty"`
	Status       GenerationStatus `json:"status"`
	Areas        []AreaResult     `json:"areas"`
	CreatedAt    time.Time        `json:"created_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// Complete reports whether every area reached a terminal status.
// A request with zero areas is never complete, and a malformed status
// payload (missing areas) therefore reads as still in progress.
func (g *GenerationRequest) Complete() bool {
	if g == nil || len(g.Areas) == 0 {
		return false
	}
	for _, a := range g.Areas {
		if !a.Status.Terminal() {
			return false
		}
	}
	return true
}

// Outcome derives the request-level terminal status from area results:
// all completed -> completed, all failed -> failed, mixed -> partial.
// Only meaningful once Complete() is true.
func (g *GenerationRequest) Outcome() GenerationStatus {
	completed, failed := 0, 0
	for _, a := range g.Areas {
		switch a.Status {
		case AreaCompleted:
			completed++
		case AreaFailed:
			failed++
		}
	}
	switch {
	case failed == 0:
		return GenerationCompleted
	case completed == 0:
		return GenerationFailed
	default:
		return GenerationPartial
	}
}
