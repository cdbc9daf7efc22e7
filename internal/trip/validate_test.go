package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		index int
		in    string
		valid bool
	}{
		{"destination ok", Destination, "Lisbon", true},
		{"destination too short", Destination, "L", false},
		{"destination digits", Destination, "Area 51", false},
		{"destination greeting", Destination, "Hello", false},
		{"budget dollars", Budget, "$2,500", true},
		{"budget words", Budget, "cheap", false},
		{"budget zero", Budget, "0", false},
		{"dates ok", Dates, "May 1-5, 2025", true},
		{"dates missing digits", Dates, "next summer", false},
		{"travelers ok", Travelers, "2", true},
		{"travelers with text", Travelers, "3 friends", true},
		{"travelers zero", Travelers, "0", false},
		{"travelers words", Travelers, "a few", false},
		{"no rule", Interests, "", true},
		{"out of range", 42, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(tc.index, tc.in)
			assert.Equal(t, tc.valid, got.Valid)
			if tc.valid {
				assert.Empty(t, got.Message)
			} else {
				assert.NotEmpty(t, got.Message)
			}
		})
	}
}

func TestHasRule(t *testing.T) {
	assert.True(t, HasRule(Destination))
	assert.True(t, HasRule(Travelers))
	assert.False(t, HasRule(MustSee))
}
