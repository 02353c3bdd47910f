package generation

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert book author and planner. Follow the editor's instructions precisely and return only the requested text."

// SummaryMarker separates a section body from its trailing summary in
// the model output.
const SummaryMarker = "Summary:"

func buildPrompt(req Request) string {
	switch req.Kind {
	case PromptOutline:
		return buildOutlinePrompt(req)
	case PromptSection:
		return buildSectionPrompt(req)
	default:
		return ""
	}
}

func buildOutlinePrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a book.\n\nTitle: %q\n\n", req.Title)
	fmt.Fprintf(&b, "Editor instructions:\n%s\n\n", orNone(req.Instructions))
	if req.Notes != "" {
		fmt.Fprintf(&b, "Notes on a previous outline, follow them carefully:\n%s\n\n", req.Notes)
	}
	fmt.Fprintf(&b, "Requirements:\n")
	fmt.Fprintf(&b, "- Produce a clear numbered outline of sections (1..%d).\n", req.SectionTarget)
	fmt.Fprintf(&b, "- Produce EXACTLY %d sections.\n", req.SectionTarget)
	fmt.Fprintf(&b, "- Each section gets a short title on its own numbered line, optionally followed by 1-3 bullet points.\n\n")
	fmt.Fprintf(&b, "Return ONLY the outline text.")
	return b.String()
}

func buildSectionPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are writing a book.\n\nBook title: %q\n\n", req.Title)
	fmt.Fprintf(&b, "Full outline:\n%s\n\n", req.Outline)
	fmt.Fprintf(&b, "You are now writing section number %d of %d", req.SectionNumber, req.TotalSections)
	if req.SectionTitle != "" {
		fmt.Fprintf(&b, ", titled %q", req.SectionTitle)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Summaries of previous sections:\n%s\n\n", formatSummaries(req.PreviousSummaries))
	fmt.Fprintf(&b, "Editor notes for this section (if any):\n%s\n\n", orNone(req.Notes))
	b.WriteString("Write this section in clear, well-structured prose.\n")
	b.WriteString("Length target: 1500-2500 words.\n\n")
	fmt.Fprintf(&b, "At the very end, add a short 3-5 sentence block starting with:\n%q\nthat summarises this section.", SummaryMarker)
	return b.String()
}

func formatSummaries(summaries []Summary) string {
	if len(summaries) == 0 {
		return "No previous sections (this is the first section)."
	}
	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		parts = append(parts, fmt.Sprintf("Section %d summary:\n%s", s.Number, s.Content))
	}
	return strings.Join(parts, "\n\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
