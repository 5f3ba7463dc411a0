package notify

import (
	"testing"

	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTargetMatchesUser(t *testing.T) {
	id := uuid.New()
	target := ToUser(id)

	assert.True(t, target.Matches(model.Principal{ID: id, Role: model.RoleFaculty}))
	assert.True(t, target.Matches(model.Principal{ID: id, Role: model.RoleStudent}))
	assert.False(t, target.Matches(model.Principal{ID: uuid.New(), Role: model.RoleFaculty}))
}

func TestTargetMatchesDepartmentStudentsOnly(t *testing.T) {
	target := ToDepartmentStudents("CS")

	assert.True(t, target.Matches(model.Principal{ID: uuid.New(), Role: model.RoleStudent, Department: "CS"}))
	assert.False(t, target.Matches(model.Principal{ID: uuid.New(), Role: model.RoleStudent, Department: "Math"}))
	assert.False(t, target.Matches(model.Principal{ID: uuid.New(), Role: model.RoleFaculty, Department: "CS"}))
	assert.False(t, target.Matches(model.Principal{ID: uuid.New(), Role: model.RoleAdmin, Department: "CS"}))
}

func TestEmptyTargetMatchesNobody(t *testing.T) {
	assert.False(t, Target{}.Matches(model.Principal{ID: uuid.New(), Role: model.RoleStudent, Department: "CS"}))
}
