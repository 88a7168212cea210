package simplefiles

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Request DTOs

// RegisterRequest contains parameters for creating a user
type RegisterRequest struct {
	Email    string
	Password string
}

// Validate checks required fields
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return NewValidationError("Missing email")
	}
	if r.Password == "" {
		return NewValidationError("Missing password")
	}
	return nil
}

// CreateObjectRequest contains parameters for creating an object.
//
// ParentID is RootID for top-level objects. Data is the decoded payload and
// is required for every kind except folders.
type CreateObjectRequest struct {
	Name     string
	Kind     Kind
	ParentID uuid.UUID
	IsPublic bool
	Data     []byte
}

// Validate checks the fields that do not need the store
func (r CreateObjectRequest) Validate() error {
	if r.Name == "" {
		return NewValidationError("Missing name")
	}
	if !r.Kind.IsValid() {
		return NewValidationError("Missing type")
	}
	if r.Kind != KindFolder && len(r.Data) == 0 {
		return NewValidationError("Missing data")
	}
	return nil
}

// ParseParentID converts the textual parent reference used at the API
// boundary into its canonical form. "", "0" denote the root.
func ParseParentID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return RootID, nil
	}
	id, err := uuid.Parse(s)
	if err != nil || id == RootID {
		return RootID, NewValidationError("Parent not found")
	}
	return id, nil
}

// ParseParentIDJSON accepts a parent reference as it appears in a JSON body:
// absent, null, the number 0, or a string.
func ParseParentIDJSON(raw json.RawMessage) (uuid.UUID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return RootID, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return RootID, NewValidationError("Parent not found")
		}
		return ParseParentID(s)
	}
	if n, err := strconv.ParseFloat(string(raw), 64); err == nil && n == 0 {
		return RootID, nil
	}
	return RootID, NewValidationError("Parent not found")
}

// FormatParentID renders a parent reference for clients. The root is always "0".
func FormatParentID(id uuid.UUID) string {
	if id == RootID {
		return "0"
	}
	return id.String()
}

// ParseObjectID parses an object id taken from a path. Malformed ids are
// reported as ErrNotFound so that they look like any other unknown id.
func ParseObjectID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}
