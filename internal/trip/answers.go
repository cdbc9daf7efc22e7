package trip

import (
	"errors"
	"fmt"
	"strings"
)

// Answer indexes. The order matches Questions.
const (
	Destination = iota
	Budget
	Dates
	Travelers
	Interests
	Accommodation
	Pace
	Transport
	MustSee

	// QuestionCount is the fixed length of an AnswerSet.
	QuestionCount
)

// Questions are shown to the traveller in this order.
var Questions = [QuestionCount]string{
	"Hey there! Where are you planning to travel?",
	"Cool! What's your budget for this trip in dollars?",
	"When are you traveling, and how many days are you staying? (e.g., May 1-5, 2025)",
	"How many people are traveling with you?",
	"What are you into—culture, food, adventure, relaxation, or something else?",
	"Any preference for accommodation—like hotels, Airbnb, or budget stays?",
	"What kind of pace do you prefer—relaxed, balanced, or packed with activities?",
	"Would you like public transport, rental car, or private taxis during your stay?",
	"Do you have any must-visit places or experiences in mind?",
}

// Labels name each answer in the prompt. They carry none of the example
// answers the questions suggest, so an answer's text appears in the prompt
// only where the answer itself is embedded.
var Labels = [QuestionCount]string{
	"Destination",
	"Budget",
	"Travel dates",
	"Number of travelers",
	"Interests",
	"Accommodation preference",
	"Travel pace",
	"Transportation preference",
	"Must-see places",
}

// AnswerSet holds one answer per question. The array length makes a
// wrong-length set unrepresentable once it has been constructed.
type AnswerSet [QuestionCount]string

var (
	ErrAnswerCount        = errors.New("trip: wrong number of answers")
	ErrMissingDestination = errors.New("trip: destination is required")
)

// ParseAnswers converts a decoded request slice into an AnswerSet.
// Only the shape and the destination are checked; per-question rules live in Validate.
func ParseAnswers(in []string) (AnswerSet, error) {
	var out AnswerSet
	if len(in) != QuestionCount {
		return out, fmt.Errorf("%w: got %d, want %d", ErrAnswerCount, len(in), QuestionCount)
	}
	copy(out[:], in)
	if strings.TrimSpace(out[Destination]) == "" {
		return out, ErrMissingDestination
	}
	return out, nil
}

// Slice returns the answers as a fresh slice.
func (a AnswerSet) Slice() []string {
	out := make([]string, QuestionCount)
	copy(out, a[:])
	return out
}
