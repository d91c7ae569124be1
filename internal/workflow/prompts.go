package workflow

import (
	"fmt"
	"strings"

	"github.com/verity-labs/chorus/internal/core"
)

const analystSystemPrompt = `You are assembling a panel of research analysts for a report. ` +
	`Respond with a JSON array only, no prose. Each element must have the keys ` +
	`"name", "role", "affiliation" and "focus". Every analyst must bring a distinct ` +
	`perspective on the topic.`

const researchSystemPrompt = `You are a research analyst contributing one section of a larger report. ` +
	`Write in clear prose with concrete claims. Stay strictly within your stated focus ` +
	`and do not cover ground that belongs to other perspectives.`

const synthesisSystemPrompt = `You are the editor of a multi-analyst research report. ` +
	`Merge the contributions into one coherent report in Markdown: an introduction, ` +
	`one section per contribution, and a conclusion that draws the threads together. ` +
	`Preserve each analyst's findings; do not invent material that no contribution supports.`

// analystPrompt builds the roster-generation prompt. Feedback from the
// review gate, when present, steers the regenerated roster.
func analystPrompt(topic string, maxAnalysts int, feedback string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\n", topic)
	fmt.Fprintf(&sb, "Create up to %d analyst personas for a research report on this topic.\n", maxAnalysts)
	if strings.TrimSpace(feedback) != "" {
		fmt.Fprintf(&sb, "\nA reviewer looked at the previous panel and asked for changes:\n%s\n", feedback)
		sb.WriteString("Produce a revised panel that addresses this feedback.\n")
	}
	return sb.String()
}

// researchPrompt builds the per-analyst research prompt.
func researchPrompt(topic string, analyst core.Analyst) string {
	var sb strings.Builder
	sb.WriteString("You are the following analyst:\n\n")
	sb.WriteString(analyst.Persona())
	fmt.Fprintf(&sb, "\n\nResearch topic: %s\n\n", topic)
	sb.WriteString("Write your contribution to the report from this persona's point of view. ")
	sb.WriteString("Open with a short heading naming your angle, then 3-6 paragraphs of findings.")
	return sb.String()
}

// synthesisPrompt merges contributions in analyst-name order. Degraded
// contributions appear as explicit gaps so the report can acknowledge
// them instead of silently narrowing its coverage.
func synthesisPrompt(topic string, outputs []core.AnalystOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Report topic: %s\n\n", topic)
	fmt.Fprintf(&sb, "You have %d analyst contributions, in order:\n\n", len(outputs))
	for i, out := range outputs {
		fmt.Fprintf(&sb, "--- Contribution %d: %s (%s) ---\n", i+1, out.Analyst.Name, out.Analyst.Focus)
		if out.Degraded {
			fmt.Fprintf(&sb, "[This contribution is unavailable: %s. Note the gap in coverage.]\n\n", out.Reason)
			continue
		}
		sb.WriteString(out.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Merge these into the final report now.")
	return sb.String()
}
