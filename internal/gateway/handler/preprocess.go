package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"travelhub/internal/trip"
)

const maxBodyBytes = 64 << 10

var errBadJSON = errors.New("invalid json body")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errBadJSON
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return nil
}

func prepareValidate(in ValidateRequest) (int, string, error) {
	if in.QuestionIndex == nil {
		return 0, "", errors.New("questionIndex is required")
	}
	idx := *in.QuestionIndex
	if idx < 0 || idx >= trip.QuestionCount {
		return 0, "", fmt.Errorf("questionIndex must be between 0 and %d", trip.QuestionCount-1)
	}
	return idx, in.Answer, nil
}
