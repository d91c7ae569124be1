package core

import (
	"fmt"
	"strings"
)

// Analyst is a persona driving one angle of research. Analysts are
// created by the generation stage and never mutated afterwards —
// research consumes an Analyst, it does not alter it.
type Analyst struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Affiliation string `json:"affiliation"`
	Focus       string `json:"focus"`
}

// Persona renders the persona description used in research prompts.
func (a Analyst) Persona() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", a.Name)
	fmt.Fprintf(&sb, "Role: %s\n", a.Role)
	if a.Affiliation != "" {
		fmt.Fprintf(&sb, "Affiliation: %s\n", a.Affiliation)
	}
	fmt.Fprintf(&sb, "Focus: %s", a.Focus)
	return sb.String()
}

// Validate checks analyst invariants.
func (a Analyst) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrValidation(CodeInvalidAnalyst, "analyst name cannot be empty")
	}
	if strings.TrimSpace(a.Focus) == "" {
		return ErrValidation(CodeInvalidAnalyst, "analyst focus cannot be empty")
	}
	return nil
}

// AnalystOutput is one analyst's research contribution. A failed
// research task records an explicit degraded marker here instead of
// aborting the session.
type AnalystOutput struct {
	Analyst  Analyst `json:"analyst"`
	Content  string  `json:"content,omitempty"`
	Degraded bool    `json:"degraded"`
	Reason   string  `json:"reason,omitempty"`
}

// DegradedOutput builds the explicit unavailable marker for a failed
// research task.
func DegradedOutput(a Analyst, reason string) AnalystOutput {
	return AnalystOutput{
		Analyst:  a,
		Degraded: true,
		Reason:   reason,
	}
}
