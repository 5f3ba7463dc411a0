package hub

import (
	"sync"
	"testing"

	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	return New(zerolog.Nop())
}

func student(department string) model.Principal {
	return model.Principal{ID: uuid.New(), Name: "Student", Role: model.RoleStudent, Department: department}
}

func faculty() model.Principal {
	return model.Principal{ID: uuid.New(), Name: "Faculty", Role: model.RoleFaculty, Department: "CS"}
}

func drain(c *Conn) []notify.Event {
	var events []notify.Event
	for {
		select {
		case evt := <-c.Events():
			events = append(events, evt)
		default:
			return events
		}
	}
}

func TestDeliverToUser(t *testing.T) {
	h := testHub()
	owner := faculty()
	conn := h.Register(owner)
	other := h.Register(faculty())

	evt := notify.AttendanceMarked(uuid.New(), "Student", 1)
	delivered := h.Deliver(notify.ToUser(owner.ID), evt)

	assert.Equal(t, 1, delivered)
	require.Len(t, drain(conn), 1)
	assert.Empty(t, drain(other))
}

func TestDeliverToAllDevicesOfUser(t *testing.T) {
	h := testHub()
	owner := faculty()
	first := h.Register(owner)
	second := h.Register(owner)

	delivered := h.Deliver(notify.ToUser(owner.ID), notify.AttendanceMarked(uuid.New(), "Student", 1))

	assert.Equal(t, 2, delivered)
	assert.Len(t, drain(first), 1)
	assert.Len(t, drain(second), 1)
}

func TestDeliverToDepartmentStudentsOnly(t *testing.T) {
	h := testHub()
	inDept := h.Register(student("CS"))
	otherDept := h.Register(student("Math"))
	fac := faculty()
	fac.Department = "CS"
	facConn := h.Register(fac)

	session := &model.Session{ID: uuid.New(), CourseName: "Algorithms", CourseCode: "CS301", Department: "CS"}
	delivered := h.Deliver(notify.ToDepartmentStudents("CS"), notify.SessionCreated(session))

	assert.Equal(t, 1, delivered)
	assert.Len(t, drain(inDept), 1)
	assert.Empty(t, drain(otherDept))
	// Faculty never receive department announcements.
	assert.Empty(t, drain(facConn))
}

func TestDeliverAtMostOncePerConnection(t *testing.T) {
	h := testHub()
	conn := h.Register(student("CS"))

	evt := notify.AttendanceMarked(uuid.New(), "Student", 1)
	h.Deliver(notify.ToUser(conn.Principal().ID), evt)

	assert.Len(t, drain(conn), 1)
}

func TestDeliverOrderPreservedPerConnection(t *testing.T) {
	h := testHub()
	conn := h.Register(student("CS"))
	target := notify.ToUser(conn.Principal().ID)

	for i := 1; i <= 5; i++ {
		h.Deliver(target, notify.AttendanceMarked(uuid.New(), "Student", i))
	}

	events := drain(conn)
	require.Len(t, events, 5)
	for i, evt := range events {
		assert.Equal(t, i+1, evt.PresentCount)
	}
}

func TestStalledConnectionDroppedWithoutBlocking(t *testing.T) {
	h := testHub()
	stalled := h.Register(student("CS"))
	healthy := h.Register(student("CS"))

	// Fill the stalled connection's buffer without consuming.
	target := notify.ToDepartmentStudents("CS")
	for i := 0; i < connBuffer; i++ {
		h.Deliver(target, notify.AttendanceMarked(uuid.New(), "Student", i))
		drain(healthy)
	}
	assert.Equal(t, 2, h.ConnectionCount())

	// The next delivery finds the buffer full, drops the connection, and
	// still reaches the healthy one.
	delivered := h.Deliver(target, notify.AttendanceMarked(uuid.New(), "Student", 99))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, h.ConnectionCount())

	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled connection should have been unregistered")
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	h := testHub()
	conn := h.Register(student("CS"))

	h.Unregister(conn)
	h.Unregister(conn)
	h.Unregister(nil)

	assert.Equal(t, 0, h.ConnectionCount())
	select {
	case <-conn.Done():
	default:
		t.Fatal("done channel should be closed after unregister")
	}
}

func TestDeliverAfterUnregisterReachesNobody(t *testing.T) {
	h := testHub()
	conn := h.Register(student("CS"))
	h.Unregister(conn)

	delivered := h.Deliver(notify.ToUser(conn.Principal().ID), notify.AttendanceMarked(uuid.New(), "S", 1))
	assert.Equal(t, 0, delivered)
}

func TestConcurrentRegisterDeliverUnregister(t *testing.T) {
	h := testHub()
	target := notify.ToDepartmentStudents("CS")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				conn := h.Register(student("CS"))
				h.Deliver(target, notify.AttendanceMarked(uuid.New(), "S", j))
				drain(conn)
				h.Unregister(conn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.ConnectionCount())
}
