package trip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultDurationDays is used when the dates answer has no numeric day range.
	DefaultDurationDays = 3
	// MaxDurationDays caps the day-by-day block so a typo cannot request a year of entries.
	MaxDurationDays = 30
)

var reDayRange = regexp.MustCompile(`(\d+)\s*(?:[-–—]+|to)\s*(\d+)`)

// TripParameters are derived from an AnswerSet.
type TripParameters struct {
	Destination  string
	Budget       string
	DurationDays int
}

// Prompt is built once per request and never mutated. Fallback tiers get a
// copy with a note appended via WithNote.
type Prompt struct {
	text string
}

// NewPrompt wraps raw prompt text. Used by callers that bypass BuildPrompt.
func NewPrompt(text string) Prompt { return Prompt{text: text} }

func (p Prompt) String() string { return p.text }

// IsZero reports whether the prompt carries no text.
func (p Prompt) IsZero() bool { return p.text == "" }

// WithNote returns a new prompt with note appended after a blank line.
// An empty note returns p unchanged.
func (p Prompt) WithNote(note string) Prompt {
	note = strings.TrimSpace(note)
	if note == "" {
		return p
	}
	return Prompt{text: p.text + "\n\n" + note}
}

// ParseDurationDays finds a "start-end" day range in the dates answer
// (e.g. "May 1-5, 2025" -> 5). Unparseable, reversed or empty ranges fall back
// to DefaultDurationDays.
func ParseDurationDays(dates string) int {
	m := reDayRange.FindStringSubmatch(dates)
	if m == nil {
		return DefaultDurationDays
	}
	start, err1 := strconv.Atoi(m[1])
	end, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return DefaultDurationDays
	}
	days := end - start + 1
	if days < 1 {
		return DefaultDurationDays
	}
	if days > MaxDurationDays {
		return MaxDurationDays
	}
	return days
}

// Parameters derives the trip parameters without building the prompt.
func Parameters(answers AnswerSet) TripParameters {
	return TripParameters{
		Destination:  strings.TrimSpace(answers[Destination]),
		Budget:       strings.TrimSpace(answers[Budget]),
		DurationDays: ParseDurationDays(answers[Dates]),
	}
}

// BuildPrompt embeds every answer once, in question order, as a
// "Label: answer" line and follows it with the task specification. The task text refers back
// to the preferences instead of repeating answer text.
func BuildPrompt(answers AnswerSet) (Prompt, TripParameters) {
	params := Parameters(answers)

	var b strings.Builder
	b.WriteString("Create a travel itinerary based on these preferences:\n\n")
	for i, label := range Labels {
		fmt.Fprintf(&b, "%s: %s\n", label, answers[i])
	}
	b.WriteString("\n")
	writeTask(&b, params.DurationDays)
	return Prompt{text: b.String()}, params
}

func writeTask(b *strings.Builder, days int) {
	fmt.Fprintf(b, "TASK:\nCreate a comprehensive %d-day travel itinerary for the destination, travel dates and budget given in the preferences above.\n\n", days)
	b.WriteString("If you can search the web, gather current information about the weather for the travel dates, top-rated attractions with opening hours and prices, local events or travel advisories, accommodation pricing within the budget, and well-reviewed restaurants.\n\n")
	b.WriteString("Include these sections:\n")
	b.WriteString("1. OVERVIEW: Brief intro to the destination and its highlights, including local events\n")
	b.WriteString("2. TRAVEL METHOD: Transportation options to and around the destination, matching the transport preference\n")
	b.WriteString("3. ACCOMMODATION: 2-3 specific options of the preferred type that fit within the budget, with pricing\n")
	fmt.Fprintf(b, "4. DAY-BY-DAY ITINERARY: Exactly %d day entries, each with morning, afternoon and evening activities:\n", days)
	for d := 1; d <= days; d++ {
		fmt.Fprintf(b, "   - Day %d:\n", d)
	}
	b.WriteString("5. DINING RECOMMENDATIONS: 4-6 specific restaurants with signature dishes\n")
	b.WriteString("6. LOCAL EXPERIENCES: Activities matched to the stated interests and pace\n")
	b.WriteString("7. TRAVEL TIPS: Practical advice on local customs, tipping and safety\n")
	b.WriteString("8. BUDGET BREAKDOWN: Estimated costs for the whole itinerary\n\n")
	b.WriteString("Format with clear section headings and be specific with venue names and activities.\n")
}
