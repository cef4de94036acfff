package fluency

import (
	"fmt"
	"strings"
)

// Band is the qualitative reading of a brain health score.
type Band string

const (
	BandGood       Band = "good"
	BandBorderline Band = "borderline"
	BandConcerning Band = "concerning"
)

const (
	goodThreshold       = 70
	borderlineThreshold = 40
)

// BandFor classifies a brain health score.
func BandFor(brainHealthScore int) Band {
	switch {
	case brainHealthScore >= goodThreshold:
		return BandGood
	case brainHealthScore >= borderlineThreshold:
		return BandBorderline
	default:
		return BandConcerning
	}
}

// Band classifies the result by its brain health score.
func (r Result) Band() Band { return BandFor(r.BrainHealthScore) }

var bandSummaries = map[Band]string{
	BandGood:       "Good recall with little repetition.",
	BandBorderline: "Borderline recall; consider repeating the test.",
	BandConcerning: "Few distinct animals or frequent repetition; a follow-up is suggested.",
}

// Report renders a result as a fixed-layout text summary. The output depends
// only on r.
func Report(r Result) string {
	unique := "(none)"
	if len(r.Animals) > 0 {
		unique = strings.Join(r.Animals, ", ")
	}
	total := r.TotalMentions
	if total < r.AnimalCount+r.Repetitions {
		total = r.AnimalCount + r.Repetitions
	}
	band := r.Band()

	var b strings.Builder
	b.WriteString("AI Cognitive Assessment - Animal Naming (Demo)\n")
	b.WriteString("-----------------------------------------------\n")
	fmt.Fprintf(&b, "Total entries:      %d\n", total)
	fmt.Fprintf(&b, "Unique animals:     %d\n", r.AnimalCount)
	fmt.Fprintf(&b, "Repetitions:        %d\n", r.Repetitions)
	fmt.Fprintf(&b, "Memory score:       %d / %d\n", r.MemoryScore, MaxScore)
	fmt.Fprintf(&b, "Brain health score: %d / %d\n", r.BrainHealthScore, MaxScore)
	fmt.Fprintf(&b, "Assessment:         %s. %s\n", band, bandSummaries[band])
	b.WriteString("\n")
	fmt.Fprintf(&b, "Unique list: %s\n", unique)
	b.WriteString("\n")
	b.WriteString("Disclaimer: Demo-only. Not clinical-grade. Not for diagnosis.")
	return b.String()
}
