package cache

import (
	"context"
	"testing"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	types map[int64]*model.ClassType
	calls int
}

func (s *fakeSource) GetByID(_ context.Context, id int64) (*model.ClassType, error) {
	s.calls++
	return s.types[id], nil
}

func (s *fakeSource) ListActive(_ context.Context) ([]*model.ClassType, error) {
	var out []*model.ClassType
	for _, ct := range s.types {
		if ct.IsActive {
			out = append(out, ct)
		}
	}
	return out, nil
}

func TestClassTypeCache_PassthroughWithoutRedis(t *testing.T) {
	src := &fakeSource{types: map[int64]*model.ClassType{
		1: {ID: 1, Name: "Reformer", DurationMinutes: 50, MaxCapacity: 6, IsActive: true},
	}}
	c := NewClassTypeCache(src, nil, 0, zap.NewNop())

	ct, err := c.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, ct)
	assert.Equal(t, "Reformer", ct.Name)

	missing, err := c.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, 2, src.calls)
	assert.NoError(t, c.Warm(context.Background()))
	assert.NoError(t, c.Invalidate(context.Background(), 1))
}

func TestNewRedisClient_EmptyAddr(t *testing.T) {
	assert.Nil(t, NewRedisClient(context.Background(), "", "", 0))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "class_type:42", key(42))
}
