package notify

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/worker"
	"go.uber.org/zap"
)

const deliverTimeout = 10 * time.Second

// Sink - канал доставки уведомления
type Sink interface {
	Name() string
	Send(ctx context.Context, n *model.Notification) error
}

// Dispatcher раздаёт уведомления по каналам в фоне.
// Ошибка одного канала не мешает остальным.
type Dispatcher struct {
	sinks  []Sink
	pool   *worker.Pool[*model.Notification]
	logger *zap.Logger
}

func NewDispatcher(queueSize, workers int, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks:  sinks,
		logger: logger,
	}
	d.pool = worker.NewPool("notify", queueSize, workers, d.deliver, logger)
	return d
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

func (d *Dispatcher) Stop() {
	d.pool.Stop()
}

// Notify ставит уведомление в очередь и не ждёт доставки
func (d *Dispatcher) Notify(_ context.Context, userID int64, kind string, payload map[string]any) {
	d.pool.Submit(Build(userID, kind, payload))
}

func (d *Dispatcher) deliver(ctx context.Context, n *model.Notification) {
	for _, sink := range d.sinks {
		sctx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err := sink.Send(sctx, n)
		cancel()

		if err != nil {
			d.logger.Error("Failed to deliver notification",
				zap.String("sink", sink.Name()),
				zap.String("event_id", n.EventID),
				zap.Int64("user_id", n.UserID),
				zap.String("kind", n.Kind),
				zap.Error(err))
			continue
		}

		d.logger.Debug("Notification delivered",
			zap.String("sink", sink.Name()),
			zap.String("event_id", n.EventID),
			zap.Int64("user_id", n.UserID))
	}
}
