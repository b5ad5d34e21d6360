// Package access вычисляет область видимости и права изменения
// расписаний и бронирований по роли вызывающего.
package access

import (
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

// Caller - аутентифицированный пользователь, от имени которого выполняется операция
type Caller struct {
	ID   int64
	Role model.Role
}

func (c Caller) IsAdmin() bool      { return c.Role == model.RoleAdmin }
func (c Caller) IsInstructor() bool { return c.Role == model.RoleInstructor }
func (c Caller) IsMember() bool     { return c.Role == model.RoleMember }

type ScopeKind int

const (
	ScopeAll     ScopeKind = iota // без ограничений
	ScopeOwnedBy                  // занятия инструктора UserID и их бронирования
	ScopeSelf                     // только бронирования пользователя UserID
)

// Scope - ограничение выборки, которое репозитории применяют к каждому запросу
type Scope struct {
	Kind   ScopeKind
	UserID int64
}

func All() Scope                       { return Scope{Kind: ScopeAll} }
func OwnedBy(instructorID int64) Scope { return Scope{Kind: ScopeOwnedBy, UserID: instructorID} }
func Self(userID int64) Scope          { return Scope{Kind: ScopeSelf, UserID: userID} }

func (s Scope) String() string {
	switch s.Kind {
	case ScopeOwnedBy:
		return fmt.Sprintf("owned_by(%d)", s.UserID)
	case ScopeSelf:
		return fmt.Sprintf("self(%d)", s.UserID)
	}
	return "all"
}

func validate(c Caller) error {
	if c.ID <= 0 || !c.Role.Valid() {
		return fmt.Errorf("%w: unknown caller", model.ErrForbidden)
	}
	return nil
}

// ScheduleScope возвращает область чтения расписаний.
// Участники видят все занятия, инструкторы - только свои.
func ScheduleScope(c Caller) (Scope, error) {
	if err := validate(c); err != nil {
		return Scope{}, err
	}
	if c.IsInstructor() {
		return OwnedBy(c.ID), nil
	}
	return All(), nil
}

// BookingScope возвращает область чтения бронирований
func BookingScope(c Caller) (Scope, error) {
	if err := validate(c); err != nil {
		return Scope{}, err
	}
	switch c.Role {
	case model.RoleInstructor:
		return OwnedBy(c.ID), nil
	case model.RoleMember:
		return Self(c.ID), nil
	}
	return All(), nil
}

// CanCreateSchedule проверяет право создать занятие для инструктора
func CanCreateSchedule(c Caller, instructorID int64) error {
	if err := validate(c); err != nil {
		return err
	}
	switch {
	case c.IsAdmin():
		return nil
	case c.IsInstructor() && instructorID == c.ID:
		return nil
	case c.IsInstructor():
		return fmt.Errorf("%w: instructors may only create their own schedules", model.ErrForbidden)
	}
	return fmt.Errorf("%w: members cannot create schedules", model.ErrForbidden)
}

// CanManageSchedule проверяет право изменять или отменять занятие
func CanManageSchedule(c Caller, s *model.Schedule) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.IsAdmin() || (c.IsInstructor() && s.InstructorID == c.ID) {
		return nil
	}
	return fmt.Errorf("%w: schedule %d belongs to another instructor", model.ErrForbidden, s.ID)
}

// CanViewSchedule проверяет право просматривать карточку занятия
func CanViewSchedule(c Caller, s *model.Schedule) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.IsInstructor() && s.InstructorID != c.ID {
		return fmt.Errorf("%w: schedule %d belongs to another instructor", model.ErrForbidden, s.ID)
	}
	return nil
}

// CanBookFor проверяет право записать пользователя userID.
// Участник записывает только себя, персонал - любого.
func CanBookFor(c Caller, userID int64) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.IsMember() && userID != c.ID {
		return fmt.Errorf("%w: members may only book for themselves", model.ErrForbidden)
	}
	return nil
}

// CanBookInto проверяет право записи на занятие s: инструктор записывает только на свои занятия
func CanBookInto(c Caller, s *model.Schedule) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.IsInstructor() && s.InstructorID != c.ID {
		return fmt.Errorf("%w: schedule %d belongs to another instructor", model.ErrForbidden, s.ID)
	}
	return nil
}

// CanCancelBooking: владелец бронирования, инструктор занятия или администратор
func CanCancelBooking(c Caller, b *model.Booking, s *model.Schedule) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.IsAdmin() || b.UserID == c.ID || (c.IsInstructor() && s.InstructorID == c.ID) {
		return nil
	}
	return fmt.Errorf("%w: no permission to cancel booking %d", model.ErrForbidden, b.ID)
}

// RequireAdmin пропускает только администратора
func RequireAdmin(c Caller) error {
	if err := validate(c); err != nil {
		return err
	}
	if !c.IsAdmin() {
		return fmt.Errorf("%w: administrator role required", model.ErrForbidden)
	}
	return nil
}

// NarrowBookingsByUser применяет фильтр по участнику поверх области видимости.
// Участник не может запросить чужие бронирования.
func NarrowBookingsByUser(c Caller, userID int64) error {
	if userID == 0 || !c.IsMember() || userID == c.ID {
		return nil
	}
	return fmt.Errorf("%w: members may only list their own bookings", model.ErrForbidden)
}

// NarrowSchedulesByInstructor проверяет фильтр по инструктору для списка занятий
func NarrowSchedulesByInstructor(c Caller, instructorID int64) error {
	if instructorID == 0 || !c.IsInstructor() || instructorID == c.ID {
		return nil
	}
	return fmt.Errorf("%w: instructors may only list their own schedules", model.ErrForbidden)
}
