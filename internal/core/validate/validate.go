// Package validate checks submission payload shape before any request
// leaves the client.
package validate

import (
	"fmt"
	"strings"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

// MaxAreas caps how many areas one submission may carry.
const MaxAreas = 6

// Submission validates the payload for a multi-area generation request.
// It returns the first problem found; nil means the payload is safe to
// send.
func Submission(address string, areas []domain.AreaSpec) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("address is required")
	}
	if len(areas) == 0 {
		return fmt.Errorf("at least one area is required")
	}
	if len(areas) > MaxAreas {
		return fmt.Errorf("too many areas: %d (max %d)", len(areas), MaxAreas)
	}

	seen := make(map[string]bool, len(areas))
	for i, a := range areas {
		if strings.TrimSpace(a.Area) == "" {
			return fmt.Errorf("area %d: name is required", i)
		}
		if strings.TrimSpace(a.Style) == "" {
			return fmt.Errorf("area %q: style is required", a.Area)
		}
		if a.PreservationStrength < 0 || a.PreservationStrength > 1 {
			return fmt.Errorf("area %q: preservation_strength %.2f out of range [0,1]", a.Area, a.PreservationStrength)
		}
		if seen[a.Area] {
			return fmt.Errorf("area %q: listed more than once", a.Area)
		}
		seen[a.Area] = true
	}
	return nil
}
