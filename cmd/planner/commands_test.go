package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelhub/internal/trip"
)

const answersYAML = `answers:
  - Lisbon, Portugal
  - "$2000"
  - May 1-3, 2025
  - "2"
  - food and history
  - boutique hotel
  - relaxed
  - public transport
  - Belem Tower
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeAnswers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestQuestionsCmd(t *testing.T) {
	out, _, err := run(t, "questions")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, trip.QuestionCount)
	assert.Equal(t, "0. "+trip.Questions[0], lines[0])
}

func TestValidateCmd(t *testing.T) {
	out, _, err := run(t, "validate", "3", "zero")
	require.NoError(t, err)
	assert.Contains(t, out, "invalid: Please enter a valid number of travelers")

	out, _, err = run(t, "validate", "0", "Kyoto")
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	_, _, err = run(t, "validate", "99", "Kyoto")
	assert.Error(t, err)
}

func TestGenerateCmd_Offline(t *testing.T) {
	path := writeAnswers(t, answersYAML)

	out, stderr, err := run(t, "generate", "--offline", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "DAY-BY-DAY ITINERARY")
	assert.Contains(t, out, "Day 3")
	assert.Contains(t, stderr, "compound-beta")
	assert.Contains(t, stderr, "3 day(s)")
}

func TestGenerateCmd_OfflineStream(t *testing.T) {
	path := writeAnswers(t, answersYAML)

	out, _, err := run(t, "generate", "--offline", "--stream", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "TRAVEL TIPS")
	assert.NotContains(t, out, "starting over")
}

func TestGenerateCmd_BadInput(t *testing.T) {
	_, _, err := run(t, "generate", "--offline")
	assert.ErrorContains(t, err, "--answers-file")

	path := writeAnswers(t, "answers:\n  - Lisbon\n")
	_, _, err = run(t, "generate", "--offline", "-f", path)
	assert.ErrorIs(t, err, trip.ErrAnswerCount)
}
