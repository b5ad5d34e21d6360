package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/access"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository"
)

// memDB - хранилище в памяти. Транзакция держит общий мьютекс целиком,
// что соответствует SERIALIZABLE, и откатывает состояние при ошибке.
type memDB struct {
	mu sync.Mutex

	schedules   map[int64]*model.Schedule
	bookings    map[int64]*model.Booking
	users       map[int64]*model.User
	classTypes  map[int64]*model.ClassType
	invalidated []int64

	nextScheduleID int64
	nextBookingID  int64
	txCount        int
}

type txKey struct{}

func newMemDB() *memDB {
	return &memDB{
		schedules:  make(map[int64]*model.Schedule),
		bookings:   make(map[int64]*model.Booking),
		users:      make(map[int64]*model.User),
		classTypes: make(map[int64]*model.ClassType),
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.txCount++

	schedules := make(map[int64]model.Schedule, len(db.schedules))
	for id, s := range db.schedules {
		schedules[id] = *s
	}
	bookings := make(map[int64]model.Booking, len(db.bookings))
	for id, b := range db.bookings {
		bookings[id] = *b
	}
	nextSchedule, nextBooking := db.nextScheduleID, db.nextBookingID

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.schedules = make(map[int64]*model.Schedule, len(schedules))
		for id, s := range schedules {
			s := s
			db.schedules[id] = &s
		}
		db.bookings = make(map[int64]*model.Booking, len(bookings))
		for id, b := range bookings {
			b := b
			db.bookings[id] = &b
		}
		db.nextScheduleID, db.nextBookingID = nextSchedule, nextBooking
		return err
	}

	return nil
}

// do выполняет f под мьютексом, если вызов пришёл не из транзакции
func (db *memDB) do(ctx context.Context, f func()) {
	if ctx.Value(txKey{}) == nil {
		db.mu.Lock()
		defer db.mu.Unlock()
	}
	f()
}

func (db *memDB) addUser(u *model.User) {
	db.users[u.ID] = u
}

func (db *memDB) addClassType(ct *model.ClassType) {
	db.classTypes[ct.ID] = ct
}

// addSchedule кладёт занятие напрямую, минуя проверки сервиса
func (db *memDB) addSchedule(s model.Schedule) *model.Schedule {
	db.nextScheduleID++
	s.ID = db.nextScheduleID
	if s.Status == "" {
		s.Status = model.ScheduleStatusScheduled
	}
	db.schedules[s.ID] = &s
	return &s
}

func (db *memDB) schedule(id int64) *model.Schedule {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.schedules[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (db *memDB) booking(id int64) *model.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

func (db *memDB) confirmedCount(scheduleID int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, b := range db.bookings {
		if b.ScheduleID == scheduleID && b.Status == model.BookingStatusConfirmed {
			n++
		}
	}
	return n
}

// --- schedules ---

type memSchedules struct{ db *memDB }

func (r memSchedules) Create(ctx context.Context, s *model.Schedule) error {
	var err error
	r.db.do(ctx, func() {
		if ct, ok := r.db.classTypes[s.ClassTypeID]; !ok || !ct.IsActive {
			err = fmt.Errorf("%w: class type %d not found or inactive", model.ErrNotFound, s.ClassTypeID)
			return
		}
		r.db.nextScheduleID++
		s.ID = r.db.nextScheduleID
		s.CreatedAt = time.Now()
		s.UpdatedAt = s.CreatedAt
		cp := *s
		r.db.schedules[s.ID] = &cp
	})
	return err
}

func (r memSchedules) GetByID(ctx context.Context, id int64) (*model.Schedule, error) {
	var out *model.Schedule
	r.db.do(ctx, func() {
		if s, ok := r.db.schedules[id]; ok {
			cp := *s
			out = &cp
		}
	})
	return out, nil
}

func (r memSchedules) GetByIDForUpdate(ctx context.Context, id int64) (*model.Schedule, error) {
	return r.GetByID(ctx, id)
}

func (r memSchedules) Update(ctx context.Context, s *model.Schedule) error {
	var err error
	r.db.do(ctx, func() {
		cur, ok := r.db.schedules[s.ID]
		if !ok {
			err = errors.New("schedule not found")
			return
		}
		s.UpdatedAt = time.Now()
		s.CurrentCapacity = cur.CurrentCapacity
		cp := *s
		r.db.schedules[s.ID] = &cp
	})
	return err
}

func (r memSchedules) Delete(ctx context.Context, id int64) error {
	var err error
	r.db.do(ctx, func() {
		if _, ok := r.db.schedules[id]; !ok {
			err = errors.New("schedule not found")
			return
		}
		delete(r.db.schedules, id)
		for bid, b := range r.db.bookings {
			if b.ScheduleID == id {
				delete(r.db.bookings, bid)
			}
		}
	})
	return err
}

func (r memSchedules) LockInstructor(context.Context, int64) error { return nil }

func (r memSchedules) ListActiveByInstructorInRange(ctx context.Context, instructorID int64, from, to time.Time, excludeID int64) ([]*model.Schedule, error) {
	var out []*model.Schedule
	r.db.do(ctx, func() {
		for _, s := range r.db.schedules {
			if s.InstructorID != instructorID || s.Status == model.ScheduleStatusCancelled || s.ID == excludeID {
				continue
			}
			if s.StartTime.Before(to) && s.EndTime().After(from) {
				cp := *s
				out = append(out, &cp)
			}
		}
	})
	return out, nil
}

func (r memSchedules) IncrementCapacity(ctx context.Context, id int64) (bool, error) {
	var ok bool
	r.db.do(ctx, func() {
		s, found := r.db.schedules[id]
		if found && s.CurrentCapacity < s.MaxCapacity {
			s.CurrentCapacity++
			ok = true
		}
	})
	return ok, nil
}

func (r memSchedules) DecrementCapacity(ctx context.Context, id int64) error {
	r.db.do(ctx, func() {
		if s, found := r.db.schedules[id]; found && s.CurrentCapacity > 0 {
			s.CurrentCapacity--
		}
	})
	return nil
}

func (r memSchedules) List(ctx context.Context, f repository.ScheduleFilter) ([]*model.ScheduleSummary, error) {
	var out []*model.ScheduleSummary
	r.db.do(ctx, func() {
		for _, s := range r.db.schedules {
			if f.Scope.Kind == access.ScopeOwnedBy && s.InstructorID != f.Scope.UserID {
				continue
			}
			if f.InstructorID != nil && s.InstructorID != *f.InstructorID {
				continue
			}
			if f.ClassTypeID != nil && s.ClassTypeID != *f.ClassTypeID {
				continue
			}
			if f.Status != nil && s.Status != *f.Status {
				continue
			}
			if f.From != nil && s.StartTime.Before(*f.From) {
				continue
			}
			if f.To != nil && !s.StartTime.Before(*f.To) {
				continue
			}

			sum := &model.ScheduleSummary{Schedule: *s}
			if u, ok := r.db.users[s.InstructorID]; ok {
				sum.InstructorName = u.Name
			}
			if ct, ok := r.db.classTypes[s.ClassTypeID]; ok {
				sum.ClassTypeName = ct.Name
			}
			for _, b := range r.db.bookings {
				if b.ScheduleID == s.ID && b.Status == model.BookingStatusConfirmed {
					sum.BookedCount++
					if f.ViewerID != 0 && b.UserID == f.ViewerID {
						sum.MyBooked = true
					}
				}
			}
			out = append(out, sum)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r memSchedules) AdvanceStatuses(ctx context.Context, now time.Time) (started, completed int64, err error) {
	r.db.do(ctx, func() {
		for _, s := range r.db.schedules {
			switch {
			case (s.Status == model.ScheduleStatusScheduled || s.Status == model.ScheduleStatusInProgress) && !s.EndTime().After(now):
				s.Status = model.ScheduleStatusCompleted
				completed++
			case s.Status == model.ScheduleStatusScheduled && !s.StartTime.After(now):
				s.Status = model.ScheduleStatusInProgress
				started++
			}
		}
	})
	return started, completed, nil
}

// --- bookings ---

type memBookings struct{ db *memDB }

func (r memBookings) Create(ctx context.Context, b *model.Booking) error {
	var err error
	r.db.do(ctx, func() {
		for _, ex := range r.db.bookings {
			if ex.ScheduleID == b.ScheduleID && ex.UserID == b.UserID && ex.Status != model.BookingStatusCancelled {
				err = fmt.Errorf("%w: user already booked this schedule", model.ErrConflict)
				return
			}
		}
		r.db.nextBookingID++
		b.ID = r.db.nextBookingID
		b.BookedAt = time.Now()
		cp := *b
		r.db.bookings[b.ID] = &cp
	})
	return err
}

func (r memBookings) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	var out *model.Booking
	r.db.do(ctx, func() {
		if b, ok := r.db.bookings[id]; ok {
			cp := *b
			out = &cp
		}
	})
	return out, nil
}

func (r memBookings) GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r memBookings) GetActive(ctx context.Context, scheduleID, userID int64) (*model.Booking, error) {
	var out *model.Booking
	r.db.do(ctx, func() {
		for _, b := range r.db.bookings {
			if b.ScheduleID == scheduleID && b.UserID == userID && b.Status != model.BookingStatusCancelled {
				cp := *b
				out = &cp
				return
			}
		}
	})
	return out, nil
}

func (r memBookings) Cancel(ctx context.Context, id int64, reason *string, at time.Time) error {
	var err error
	r.db.do(ctx, func() {
		b, ok := r.db.bookings[id]
		if !ok || b.Status == model.BookingStatusCancelled {
			err = errors.New("booking not found or already cancelled")
			return
		}
		b.Status = model.BookingStatusCancelled
		b.CancelledAt = &at
		b.CancelReason = reason
	})
	return err
}

func (r memBookings) Delete(ctx context.Context, id int64) error {
	var err error
	r.db.do(ctx, func() {
		if _, ok := r.db.bookings[id]; !ok {
			err = errors.New("booking not found")
			return
		}
		delete(r.db.bookings, id)
	})
	return err
}

func (r memBookings) CountConfirmed(ctx context.Context, scheduleID int64) (int, error) {
	n := 0
	r.db.do(ctx, func() {
		for _, b := range r.db.bookings {
			if b.ScheduleID == scheduleID && b.Status == model.BookingStatusConfirmed {
				n++
			}
		}
	})
	return n, nil
}

func (r memBookings) ListConfirmedUserIDs(ctx context.Context, scheduleID int64) ([]int64, error) {
	var ids []int64
	r.db.do(ctx, func() {
		for _, b := range r.db.bookings {
			if b.ScheduleID == scheduleID && b.Status == model.BookingStatusConfirmed {
				ids = append(ids, b.UserID)
			}
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r memBookings) List(ctx context.Context, f repository.BookingFilter) ([]*model.BookingSummary, error) {
	var out []*model.BookingSummary
	r.db.do(ctx, func() {
		for _, b := range r.db.bookings {
			s, ok := r.db.schedules[b.ScheduleID]
			if !ok {
				continue
			}
			switch f.Scope.Kind {
			case access.ScopeOwnedBy:
				if s.InstructorID != f.Scope.UserID {
					continue
				}
			case access.ScopeSelf:
				if b.UserID != f.Scope.UserID {
					continue
				}
			}
			if f.UserID != nil && b.UserID != *f.UserID {
				continue
			}
			if f.ScheduleID != nil && b.ScheduleID != *f.ScheduleID {
				continue
			}
			if f.Status != nil && b.Status != *f.Status {
				continue
			}
			if f.ExcludeCancelled && b.Status == model.BookingStatusCancelled {
				continue
			}
			if f.From != nil && s.StartTime.Before(*f.From) {
				continue
			}
			if f.To != nil && !s.StartTime.Before(*f.To) {
				continue
			}

			sum := &model.BookingSummary{
				Booking:         *b,
				InstructorID:    s.InstructorID,
				StartTime:       s.StartTime,
				DurationMinutes: s.DurationMinutes,
			}
			if u, ok := r.db.users[b.UserID]; ok {
				sum.UserName = u.Name
			}
			out = append(out, sum)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- collaborators ---

type memUsers struct{ db *memDB }

func (r memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

type memClassTypes struct{ db *memDB }

func (r memClassTypes) GetByID(_ context.Context, id int64) (*model.ClassType, error) {
	ct, ok := r.db.classTypes[id]
	if !ok {
		return nil, nil
	}
	cp := *ct
	return &cp, nil
}

func (r memClassTypes) Invalidate(_ context.Context, id int64) error {
	r.db.invalidated = append(r.db.invalidated, id)
	return nil
}

type notification struct {
	UserID  int64
	Kind    string
	Payload map[string]any
}

type recorder struct {
	mu            sync.Mutex
	entries       []model.ActivityLog
	notifications []notification
}

func (r *recorder) Record(_ context.Context, entry model.ActivityLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorder) Notify(_ context.Context, userID int64, kind string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notification{UserID: userID, Kind: kind, Payload: payload})
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action+"/"+e.TargetType)
	}
	return out
}
