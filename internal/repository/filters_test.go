package repository

import (
	"testing"

	"github.com/Freeeeeet/studio_booking/internal/access"
	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Empty(t, w.String())

	w.add("s.instructor_id = ?", int64(10))
	w.addRaw("s.status <> 'cancelled'")
	w.add("s.start_time >= ?", "2026-03-11")

	assert.Equal(t, "WHERE s.instructor_id = $1 AND s.status <> 'cancelled' AND s.start_time >= $2", w.String())
	assert.Equal(t, []any{int64(10), "2026-03-11"}, w.args)
}

func TestScopeClause(t *testing.T) {
	tests := []struct {
		name    string
		scope   access.Scope
		userCol string
		want    string
		args    []any
	}{
		{"all", access.All(), "b.user_id", "", nil},
		{"owned by", access.OwnedBy(10), "b.user_id", "WHERE s.instructor_id = $1", []any{int64(10)}},
		{"self on bookings", access.Self(100), "b.user_id", "WHERE b.user_id = $1", []any{int64(100)}},
		{"self on schedules", access.Self(100), "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w whereBuilder
			scopeClause(&w, tt.scope, "s.instructor_id", tt.userCol)
			assert.Equal(t, tt.want, w.String())
			assert.Equal(t, tt.args, w.args)
		})
	}
}
