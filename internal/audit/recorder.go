package audit

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/worker"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Store - журнал действий (repository.ActivityRepository)
type Store interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
}

// Publisher - внешняя шина событий (mq.Publisher)
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Recorder пишет журнал действий в фоне, после коммита основной транзакции.
// Ошибки записи только логируются и не влияют на результат операции.
type Recorder struct {
	store     Store
	publisher Publisher
	pool      *worker.Pool[model.ActivityLog]
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecorder создаёт рекордер. publisher может быть nil.
func NewRecorder(store Store, publisher Publisher, queueSize, workers int, logger *zap.Logger) *Recorder {
	r := &Recorder{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	r.pool = worker.NewPool("audit", queueSize, workers, r.write, logger)
	return r
}

func (r *Recorder) Start(ctx context.Context) {
	r.pool.Start(ctx)
}

// Stop дописывает очередь и останавливает обработчики
func (r *Recorder) Stop() {
	r.pool.Stop()
}

// Record ставит запись в очередь и сразу возвращает управление
func (r *Recorder) Record(_ context.Context, entry model.ActivityLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	r.pool.Submit(entry)
}

func (r *Recorder) write(ctx context.Context, entry model.ActivityLog) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := r.store.Create(ctx, &entry); err != nil {
		r.logger.Error("Failed to write activity log",
			zap.String("action", entry.Action),
			zap.String("target_type", entry.TargetType),
			zap.Int64("target_id", entry.TargetID),
			zap.Error(err))
	}

	if r.publisher == nil {
		return
	}

	key := "audit." + entry.TargetType + "." + entry.Action
	if err := r.publisher.PublishJSON(ctx, key, entry); err != nil {
		r.logger.Warn("Failed to publish activity event",
			zap.String("routing_key", key),
			zap.Int64("target_id", entry.TargetID),
			zap.Error(err))
	}
}
