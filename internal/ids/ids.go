package ids

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/eldtechnologies/fileshare/internal/models"
)

// NewBatchID generates a time-ordered batch identifier.
func NewBatchID() string {
	return ulid.Make().String()
}

// ParseBatchID validates a batch identifier taken from a link or a button.
// ULIDs are case-insensitive; the canonical upper-case form is returned.
func ParseBatchID(s string) (string, error) {
	id, err := ulid.ParseStrict(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return "", fmt.Errorf("%w: batch id %q", models.ErrMalformed, s)
	}
	return id.String(), nil
}

// NewRunID generates a time-ordered UUID v7 used to correlate the log lines of one operation.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
