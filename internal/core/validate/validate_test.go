package validate

import (
	"strings"
	"testing"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

func area(name string) domain.AreaSpec {
	return domain.AreaSpec{Area: name, Style: "modern", PreservationStrength: 0.5}
}

func TestSubmission(t *testing.T) {
	tests := []struct {
		name    string
		address string
		areas   []domain.AreaSpec
		wantErr string
	}{
		{"valid single area", "12 Oak St", []domain.AreaSpec{area("front_yard")}, ""},
		{"valid two areas", "12 Oak St", []domain.AreaSpec{area("front_yard"), area("back_yard")}, ""},
		{"empty address", "  ", []domain.AreaSpec{area("front_yard")}, "address"},
		{"no areas", "12 Oak St", nil, "at least one area"},
		{"blank area name", "12 Oak St", []domain.AreaSpec{{Style: "modern"}}, "name is required"},
		{"missing style", "12 Oak St", []domain.AreaSpec{{Area: "front_yard"}}, "style is required"},
		{
			"strength above one",
			"12 Oak St",
			[]domain.AreaSpec{{Area: "front_yard", Style: "modern", PreservationStrength: 1.5}},
			"out of range",
		},
		{
			"negative strength",
			"12 Oak St",
			[]domain.AreaSpec{{Area: "front_yard", Style: "modern", PreservationStrength: -0.1}},
			"out of range",
		},
		{"duplicate area", "12 Oak St", []domain.AreaSpec{area("front_yard"), area("front_yard")}, "more than once"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Submission(tt.address, tt.areas)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSubmissionTooManyAreas(t *testing.T) {
	areas := make([]domain.AreaSpec, MaxAreas+1)
	for i := range areas {
		areas[i] = domain.AreaSpec{Area: string(rune('a' + i)), Style: "modern"}
	}
	if err := Submission("12 Oak St", areas); err == nil {
		t.Fatal("expected error for too many areas")
	}
}
