package access

import (
	"testing"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin      = Caller{ID: 1, Role: model.RoleAdmin}
	instructor = Caller{ID: 10, Role: model.RoleInstructor}
	member     = Caller{ID: 100, Role: model.RoleMember}
	unknown    = Caller{ID: 5, Role: "guest"}
	anonymous  = Caller{Role: model.RoleAdmin}
)

func TestScopes(t *testing.T) {
	tests := []struct {
		name     string
		caller   Caller
		schedule Scope
		booking  Scope
	}{
		{"admin", admin, All(), All()},
		{"instructor", instructor, OwnedBy(10), OwnedBy(10)},
		{"member", member, All(), Self(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ScheduleScope(tt.caller)
			require.NoError(t, err)
			assert.Equal(t, tt.schedule, s)

			b, err := BookingScope(tt.caller)
			require.NoError(t, err)
			assert.Equal(t, tt.booking, b)
		})
	}

	for _, c := range []Caller{unknown, anonymous} {
		_, err := ScheduleScope(c)
		assert.ErrorIs(t, err, model.ErrForbidden)
		_, err = BookingScope(c)
		assert.ErrorIs(t, err, model.ErrForbidden)
	}
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "all", All().String())
	assert.Equal(t, "owned_by(3)", OwnedBy(3).String())
	assert.Equal(t, "self(4)", Self(4).String())
}

func TestScheduleGuards(t *testing.T) {
	own := &model.Schedule{ID: 1, InstructorID: instructor.ID}
	foreign := &model.Schedule{ID: 2, InstructorID: 11}

	tests := []struct {
		name string
		err  error
		want bool // true - разрешено
	}{
		{"admin creates for anyone", CanCreateSchedule(admin, 11), true},
		{"instructor creates own", CanCreateSchedule(instructor, instructor.ID), true},
		{"instructor creates foreign", CanCreateSchedule(instructor, 11), false},
		{"member creates", CanCreateSchedule(member, instructor.ID), false},
		{"unknown role creates", CanCreateSchedule(unknown, 11), false},

		{"admin manages foreign", CanManageSchedule(admin, foreign), true},
		{"instructor manages own", CanManageSchedule(instructor, own), true},
		{"instructor manages foreign", CanManageSchedule(instructor, foreign), false},
		{"member manages", CanManageSchedule(member, own), false},

		{"member views any", CanViewSchedule(member, foreign), true},
		{"instructor views own", CanViewSchedule(instructor, own), true},
		{"instructor views foreign", CanViewSchedule(instructor, foreign), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want {
				assert.NoError(t, tt.err)
			} else {
				assert.ErrorIs(t, tt.err, model.ErrForbidden)
			}
		})
	}
}

func TestBookingGuards(t *testing.T) {
	own := &model.Schedule{ID: 1, InstructorID: instructor.ID}
	foreign := &model.Schedule{ID: 2, InstructorID: 11}
	booking := &model.Booking{ID: 7, UserID: member.ID, ScheduleID: own.ID}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"member books self", CanBookFor(member, member.ID), true},
		{"member books other", CanBookFor(member, 101), false},
		{"instructor books member", CanBookFor(instructor, member.ID), true},
		{"instructor into own", CanBookInto(instructor, own), true},
		{"instructor into foreign", CanBookInto(instructor, foreign), false},
		{"admin into foreign", CanBookInto(admin, foreign), true},
		{"member into any", CanBookInto(member, foreign), true},

		{"owner cancels", CanCancelBooking(member, booking, own), true},
		{"schedule instructor cancels", CanCancelBooking(instructor, booking, own), true},
		{"admin cancels", CanCancelBooking(admin, booking, own), true},
		{"other member cancels", CanCancelBooking(Caller{ID: 101, Role: model.RoleMember}, booking, own), false},
		{"other instructor cancels", CanCancelBooking(Caller{ID: 11, Role: model.RoleInstructor}, booking, own), false},

		{"admin required", RequireAdmin(admin), true},
		{"instructor not admin", RequireAdmin(instructor), false},
		{"unknown not admin", RequireAdmin(unknown), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want {
				assert.NoError(t, tt.err)
			} else {
				assert.ErrorIs(t, tt.err, model.ErrForbidden)
			}
		})
	}
}

func TestNarrowing(t *testing.T) {
	assert.NoError(t, NarrowBookingsByUser(member, member.ID))
	assert.ErrorIs(t, NarrowBookingsByUser(member, 101), model.ErrForbidden)
	assert.NoError(t, NarrowBookingsByUser(instructor, 101))
	assert.NoError(t, NarrowBookingsByUser(admin, 101))

	assert.NoError(t, NarrowSchedulesByInstructor(instructor, instructor.ID))
	assert.ErrorIs(t, NarrowSchedulesByInstructor(instructor, 11), model.ErrForbidden)
	assert.NoError(t, NarrowSchedulesByInstructor(member, 11))
	assert.NoError(t, NarrowSchedulesByInstructor(admin, 11))
}
