package trip

import (
	"regexp"
	"strconv"
	"strings"
)

// Validation is the outcome of checking one answer.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

var (
	reDigit    = regexp.MustCompile(`\d`)
	reGreeting = regexp.MustCompile(`(?i)^(hi|hello|hey)$`)
	reLeadInt  = regexp.MustCompile(`^[+-]?\d+`)
	reLeadNum  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)
)

type validator func(string) Validation

var validators = map[int]validator{
	Destination: validateDestination,
	Budget:      validateBudget,
	Dates:       validateDates,
	Travelers:   validateTravelers,
}

// Validate checks one answer against the rules of its question. Questions
// without rules, and out-of-range indexes, are always valid.
func Validate(index int, answer string) Validation {
	if v, ok := validators[index]; ok {
		return v(answer)
	}
	return Validation{Valid: true}
}

// HasRule reports whether the question at index has validation rules.
func HasRule(index int) bool {
	_, ok := validators[index]
	return ok
}

func validateDestination(text string) Validation {
	if len([]rune(text)) < 2 {
		return invalid("Please enter a valid destination name (at least 2 characters).")
	}
	if reDigit.MatchString(text) {
		return invalid("A destination name shouldn't contain numbers. Please enter a valid city or country name.")
	}
	if reGreeting.MatchString(text) {
		return invalid("Please enter a destination name instead of a greeting. Where would you like to travel?")
	}
	return Validation{Valid: true}
}

func validateBudget(text string) Validation {
	clean := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(text))
	amount, err := strconv.ParseFloat(reLeadNum.FindString(clean), 64)
	if err != nil || amount <= 0 {
		return invalid("Please enter a valid positive amount for your budget.")
	}
	return Validation{Valid: true}
}

func validateDates(text string) Validation {
	if !reDigit.MatchString(text) {
		return invalid("Please include dates in your response (e.g., May 1-5, 2025).")
	}
	return Validation{Valid: true}
}

func validateTravelers(text string) Validation {
	n, err := strconv.Atoi(reLeadInt.FindString(strings.TrimSpace(text)))
	if err != nil || n <= 0 {
		return invalid("Please enter a valid number of travelers (must be at least 1).")
	}
	return Validation{Valid: true}
}

func invalid(msg string) Validation { return Validation{Valid: false, Message: msg} }
