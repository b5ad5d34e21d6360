package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/access"
	"github.com/Freeeeeet/studio_booking/internal/model"
)

// ScheduleFilter - фильтры списка занятий. Scope задаёт ограничение по роли.
// Диапазон полуоткрытый: From <= start_time < To.
// ViewerID (0 - нет) заполняет ScheduleSummary.MyBooked.
type ScheduleFilter struct {
	Scope        access.Scope
	ViewerID     int64
	From         *time.Time
	To           *time.Time
	ClassTypeID  *int64
	InstructorID *int64
	Status       *model.ScheduleStatus
}

// BookingFilter - фильтры списка бронирований.
// From и To ограничивают начало занятия полуоткрытым диапазоном [From, To).
type BookingFilter struct {
	Scope            access.Scope
	UserID           *int64
	ScheduleID       *int64
	Status           *model.BookingStatus
	From             *time.Time
	To               *time.Time
	ExcludeCancelled bool
}

// whereBuilder собирает WHERE с позиционными параметрами pgx
type whereBuilder struct {
	conds []string
	args  []any
}

// add добавляет условие; единственный '?' заменяется на $n
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// scopeClause переводит access.Scope в условие. Для занятий Self не сужает выборку:
// участники видят все занятия.
func scopeClause(w *whereBuilder, scope access.Scope, instructorCol, userCol string) {
	switch scope.Kind {
	case access.ScopeOwnedBy:
		w.add(instructorCol+" = ?", scope.UserID)
	case access.ScopeSelf:
		if userCol != "" {
			w.add(userCol+" = ?", scope.UserID)
		}
	}
}
