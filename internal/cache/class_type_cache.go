package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "class_type:"

// ClassTypeSource - справочник типов занятий в базе (repository.ClassTypeRepository)
type ClassTypeSource interface {
	GetByID(ctx context.Context, id int64) (*model.ClassType, error)
	ListActive(ctx context.Context) ([]*model.ClassType, error)
}

// ClassTypeCache - read-through кеш справочника в Redis.
// Без клиента Redis работает как прямой доступ к источнику.
type ClassTypeCache struct {
	source ClassTypeSource
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewClassTypeCache(source ClassTypeSource, client *redis.Client, ttl time.Duration, logger *zap.Logger) *ClassTypeCache {
	return &ClassTypeCache{
		source: source,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// GetByID возвращает тип занятия из кеша или из базы.
// Ошибки Redis не ломают запрос, только логируются.
func (c *ClassTypeCache) GetByID(ctx context.Context, id int64) (*model.ClassType, error) {
	if c.client == nil {
		return c.source.GetByID(ctx, id)
	}

	data, err := c.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var ct model.ClassType
		if err := json.Unmarshal(data, &ct); err == nil {
			return &ct, nil
		}
		c.logger.Warn("Corrupted class type cache entry", zap.Int64("class_type_id", id))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Class type cache read failed", zap.Int64("class_type_id", id), zap.Error(err))
	}

	ct, err := c.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ct != nil {
		c.set(ctx, ct)
	}

	return ct, nil
}

// Warm заполняет кеш активными типами занятий
func (c *ClassTypeCache) Warm(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	types, err := c.source.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active class types: %w", err)
	}

	for _, ct := range types {
		c.set(ctx, ct)
	}

	c.logger.Info("Class type cache warmed", zap.Int("count", len(types)))
	return nil
}

// Invalidate удаляет запись, чтобы следующее чтение пошло в базу
func (c *ClassTypeCache) Invalidate(ctx context.Context, id int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key(id)).Err()
}

func (c *ClassTypeCache) set(ctx context.Context, ct *model.ClassType) {
	data, err := json.Marshal(ct)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(ct.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Class type cache write failed", zap.Int64("class_type_id", ct.ID), zap.Error(err))
	}
}
