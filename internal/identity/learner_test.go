package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/pkg/schema"
)

// mockLearnerStore satisfies the store.Store methods used by identity.
// Only learner and progress methods are implemented; others panic.
type mockLearnerStore struct {
	store.Store // embed to satisfy interface; unused methods panic
	learners    map[string]*store.Learner
	progress    map[string]*store.Progress
	touched     []string
	events      []*store.Event
	getErr      error
}

func newMockLearnerStore() *mockLearnerStore {
	return &mockLearnerStore{
		learners: make(map[string]*store.Learner),
		progress: make(map[string]*store.Progress),
	}
}

func (m *mockLearnerStore) CreateLearner(_ context.Context, l *store.Learner) error {
	cp := *l
	m.learners[l.ID] = &cp
	return nil
}

func (m *mockLearnerStore) GetLearner(_ context.Context, id string) (*store.Learner, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	l, ok := m.learners[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "learner %q not found", id)
	}
	cp := *l
	return &cp, nil
}

func (m *mockLearnerStore) TouchLearner(_ context.Context, id string) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockLearnerStore) SaveProgress(_ context.Context, p *store.Progress) error {
	cp := *p
	m.progress[p.LearnerID] = &cp
	return nil
}

func (m *mockLearnerStore) AppendEvent(_ context.Context, e *store.Event) error {
	m.events = append(m.events, e)
	return nil
}

// --- ValidateRole ---

func TestValidateRole(t *testing.T) {
	for _, role := range []string{RoleStudent, RoleMentor, RoleGuest} {
		assert.NoError(t, ValidateRole(role), "role %q should be valid", role)
	}
	for _, role := range []string{"", "admin", "Student"} {
		err := ValidateRole(role)
		require.Error(t, err)
		var aerr *schema.AcademyError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, schema.ErrCodeValidation, aerr.Code)
	}
}

// --- ValidateLearner ---

func TestValidateLearner(t *testing.T) {
	tests := []struct {
		name    string
		learner store.Learner
		wantErr string
	}{
		{"valid", store.Learner{ID: "l-1", Name: "Ada", Role: RoleStudent}, ""},
		{"empty id", store.Learner{ID: " ", Name: "Ada", Role: RoleStudent}, "id is required"},
		{"empty name", store.Learner{ID: "l-1", Role: RoleStudent}, "name is required"},
		{"long name", store.Learner{ID: "l-1", Name: strings.Repeat("a", maxNameLength+1), Role: RoleStudent}, "exceeds"},
		{"bad metadata", store.Learner{ID: "l-1", Name: "Ada", Role: RoleStudent, Metadata: json.RawMessage(`{`)}, "metadata"},
		{"bad role", store.Learner{ID: "l-1", Name: "Ada", Role: "root"}, "invalid learner role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLearner(&tt.learner)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
		})
	}
}

// --- EnsureRegistered ---

func TestEnsureRegistered_New(t *testing.T) {
	ms := newMockLearnerStore()
	l, err := EnsureRegistered(context.Background(), ms, "l-1", "Ada", "", json.RawMessage(`{"school":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, "l-1", l.ID)
	assert.Equal(t, RoleStudent, l.Role)
	require.Contains(t, ms.progress, "l-1")
	assert.Equal(t, schema.InitialProgress(), ms.progress["l-1"].UserProgress)
	assert.Empty(t, ms.touched)
	require.Len(t, ms.events, 1)
	assert.Equal(t, schema.EventLearnerRegistered, ms.events[0].Type)
}

func TestEnsureRegistered_Existing(t *testing.T) {
	ms := newMockLearnerStore()
	ms.learners["l-1"] = &store.Learner{ID: "l-1", Name: "Ada", Role: RoleMentor}

	l, err := EnsureRegistered(context.Background(), ms, "l-1", "Other", RoleGuest, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada", l.Name, "existing record is returned unchanged")
	assert.Equal(t, RoleMentor, l.Role)
	assert.Equal(t, []string{"l-1"}, ms.touched)
	assert.Empty(t, ms.progress)
	assert.Empty(t, ms.events)
}

func TestEnsureRegistered_Invalid(t *testing.T) {
	ms := newMockLearnerStore()
	_, err := EnsureRegistered(context.Background(), ms, "l-1", "", RoleStudent, nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	assert.Empty(t, ms.learners)
}

func TestEnsureRegistered_StoreError(t *testing.T) {
	ms := newMockLearnerStore()
	ms.getErr = schema.NewError(schema.ErrCodeStore, "disk on fire")
	_, err := EnsureRegistered(context.Background(), ms, "l-1", "Ada", RoleStudent, nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeStore))
}

func TestNewLearnerID(t *testing.T) {
	a, b := NewLearnerID(), NewLearnerID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
