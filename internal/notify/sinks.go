package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Store - таблица уведомлений (repository.NotificationRepository)
type Store interface {
	Create(ctx context.Context, n *model.Notification) error
}

// StoreSink сохраняет уведомление в таблицу notifications
type StoreSink struct {
	store Store
}

func NewStoreSink(store Store) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Send(ctx context.Context, n *model.Notification) error {
	return s.store.Create(ctx, n)
}

// MessageSender - часть *bot.Bot, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserLookup ищет пользователя для получения telegram_id
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramSink отправляет уведомление в Telegram, если у пользователя привязан чат
type TelegramSink struct {
	sender MessageSender
	users  UserLookup
}

func NewTelegramSink(sender MessageSender, users UserLookup) *TelegramSink {
	return &TelegramSink{sender: sender, users: users}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, n *model.Notification) error {
	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.TelegramID == nil {
		return nil
	}

	_, err = s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramID,
		Text:   n.Title + "\n\n" + n.Message,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// Publisher - шина событий (mq.Publisher)
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// AMQPSink публикует уведомление в RabbitMQ для внешних потребителей
type AMQPSink struct {
	publisher Publisher
}

func NewAMQPSink(publisher Publisher) *AMQPSink {
	return &AMQPSink{publisher: publisher}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, n *model.Notification) error {
	return s.publisher.PublishJSON(ctx, "notification."+n.Kind, n)
}
