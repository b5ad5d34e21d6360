package service

import (
	"testing"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/access"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"go.uber.org/zap"
)

var (
	admin       = access.Caller{ID: 1, Role: model.RoleAdmin}
	instructorA = access.Caller{ID: 10, Role: model.RoleInstructor}
	instructorB = access.Caller{ID: 11, Role: model.RoleInstructor}
	memberX     = access.Caller{ID: 100, Role: model.RoleMember}
	memberY     = access.Caller{ID: 101, Role: model.RoleMember}
)

const (
	inactiveInstructorID = 12
	inactiveMemberID     = 103
	reformerID           = 1
	retiredClassTypeID   = 2
)

type testEnv struct {
	db        *memDB
	rec       *recorder
	schedules *ScheduleService
	bookings  *BookingService
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemDB()
	db.addUser(&model.User{ID: admin.ID, Name: "Admin", Role: model.RoleAdmin, IsActive: true})
	db.addUser(&model.User{ID: instructorA.ID, Name: "Anna", Role: model.RoleInstructor, IsActive: true})
	db.addUser(&model.User{ID: instructorB.ID, Name: "Boris", Role: model.RoleInstructor, IsActive: true})
	db.addUser(&model.User{ID: inactiveInstructorID, Name: "Gone", Role: model.RoleInstructor, IsActive: false})
	db.addUser(&model.User{ID: memberX.ID, Name: "Xenia", Role: model.RoleMember, IsActive: true})
	db.addUser(&model.User{ID: memberY.ID, Name: "Yuri", Role: model.RoleMember, IsActive: true})
	db.addUser(&model.User{ID: 102, Name: "Zoya", Role: model.RoleMember, IsActive: true})
	db.addUser(&model.User{ID: inactiveMemberID, Name: "Old", Role: model.RoleMember, IsActive: false})

	db.addClassType(&model.ClassType{ID: reformerID, Name: "Reformer", DurationMinutes: 50, MaxCapacity: 6, IsActive: true})
	db.addClassType(&model.ClassType{ID: retiredClassTypeID, Name: "Barre", DurationMinutes: 45, MaxCapacity: 8, IsActive: false})

	rec := &recorder{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	logger := zap.NewNop()

	schedules := NewScheduleService(db, memSchedules{db}, memBookings{db}, memUsers{db}, memClassTypes{db}, rec, rec, logger)
	schedules.now = func() time.Time { return now }

	bookings := NewBookingService(db, memSchedules{db}, memBookings{db}, memUsers{db}, rec, rec, logger)
	bookings.now = func() time.Time { return now }

	return &testEnv{db: db, rec: rec, schedules: schedules, bookings: bookings, now: now}
}

// at возвращает время на следующий день после now
func (e *testEnv) at(hour, minute int) time.Time {
	d := e.now.AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
}

// openSchedule кладёт занятие инструктора напрямую в хранилище
func (e *testEnv) openSchedule(instructorID int64, start time.Time, capacity int) *model.Schedule {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	return e.db.addSchedule(model.Schedule{
		ClassTypeID:     reformerID,
		InstructorID:    instructorID,
		StartTime:       start,
		DurationMinutes: 50,
		MaxCapacity:     capacity,
	})
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }
