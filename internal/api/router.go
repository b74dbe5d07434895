package api

import (
	"github.com/go-chi/chi/v5"

	"supportrelay/internal/config"
	"supportrelay/internal/db"
)

// OperatorNotifier — то, что API знает о боте: возможность уведомить
// оператора о новом сообщении клиента. Реализуется handlers.BotHandler.
type OperatorNotifier interface {
	PushToOperator(supportToken, text string, imageBytes []byte) error
}

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config   *config.Config
	Store    db.Store
	Notifier OperatorNotifier
	MediaDir string // каталог для сохранения изображений от клиентов
}

// SetupRoutes настраивает все маршруты API виджета поддержки.
func SetupRoutes(r chi.Router, deps ApiDependencies) {
	s := &supportAPI{deps: deps}

	r.Post("/api/support/sendMessage", s.SendMessageHandler)
	r.Post("/api/support/sendImage", s.SendImageHandler)
	r.Post("/api/support/getMessages", s.GetMessagesHandler)
	r.Get("/api/media/{filename}", s.MediaHandler)
	r.Get("/health", s.HealthHandler)
}

// supportAPI связывает обработчики с их зависимостями.
type supportAPI struct {
	deps ApiDependencies
}
