// Package identity registers learners and validates their records.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/pkg/schema"
)

// Learner roles.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleGuest   = "guest"
)

var validRoles = map[string]bool{
	RoleStudent: true,
	RoleMentor:  true,
	RoleGuest:   true,
}

const maxNameLength = 120

// NewLearnerID returns a fresh learner id.
func NewLearnerID() string {
	return uuid.NewString()
}

// ValidateRole checks that role is one of the known learner roles.
func ValidateRole(role string) error {
	if !validRoles[role] {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"invalid learner role %q: must be one of student, mentor, guest", role)
	}
	return nil
}

// ValidateLearner checks required fields on a Learner.
func ValidateLearner(l *store.Learner) error {
	if strings.TrimSpace(l.ID) == "" {
		return schema.NewError(schema.ErrCodeValidation, "learner id is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return schema.NewError(schema.ErrCodeValidation, "learner name is required")
	}
	if len(l.Name) > maxNameLength {
		return schema.NewErrorf(schema.ErrCodeValidation, "learner name exceeds %d characters", maxNameLength)
	}
	if len(l.Metadata) > 0 && !json.Valid(l.Metadata) {
		return schema.NewError(schema.ErrCodeValidation, "learner metadata is not valid JSON")
	}
	return ValidateRole(l.Role)
}

// EnsureRegistered retrieves an existing learner or registers a new one.
// An existing learner has last_seen_at refreshed. A new learner starts at the
// initial level and gets a learner_registered event. An empty role defaults
// to student.
func EnsureRegistered(ctx context.Context, s store.Store, id, name, role string, metadata json.RawMessage) (*store.Learner, error) {
	existing, err := s.GetLearner(ctx, id)
	if err == nil {
		_ = s.TouchLearner(ctx, id)
		return existing, nil
	}
	if !schema.IsCode(err, schema.ErrCodeNotFound) {
		return nil, err
	}

	if role == "" {
		role = RoleStudent
	}
	learner := &store.Learner{
		ID:       id,
		Name:     name,
		Role:     role,
		Metadata: metadata,
	}
	if err := ValidateLearner(learner); err != nil {
		return nil, err
	}
	if err := s.CreateLearner(ctx, learner); err != nil {
		return nil, err
	}
	if err := s.SaveProgress(ctx, &store.Progress{LearnerID: id, UserProgress: schema.InitialProgress()}); err != nil {
		return nil, fmt.Errorf("seed progress for %s: %w", id, err)
	}
	if err := s.AppendEvent(ctx, &store.Event{LearnerID: id, Type: schema.EventLearnerRegistered}); err != nil {
		return nil, err
	}
	return s.GetLearner(ctx, id)
}
