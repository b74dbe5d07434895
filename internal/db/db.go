// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"supportrelay/internal/models"
)

// Store — единый контракт хранилища сообщений поддержки.
// Бекенд (PostgreSQL или SQLite) выбирается один раз при создании,
// вызывающий код никогда не видит, какой из них активен.
type Store interface {
	// AppendMessage добавляет новое сообщение. Единственный путь записи:
	// через него проходят и клиентский API, и ответы оператора.
	// Флаг sender строго проверяется, некорректное значение отклоняется.
	AppendMessage(supportToken, message, image string, sender int) (models.Message, error)

	// GetMessagesByToken возвращает все сообщения токена в порядке возрастания
	// createdAt (при равенстве - по id). Для токена без сообщений возвращает
	// пустой список, а не ошибку.
	GetMessagesByToken(supportToken string) ([]models.Message, error)

	// GetLastMessage возвращает самое свежее сообщение токена или nil.
	GetLastMessage(supportToken string) (*models.Message, error)

	// GetActiveTokens возвращает токены, от которых приходили сообщения
	// клиентов, отсортированные по времени последней активности.
	GetActiveTokens(limit int) ([]ActiveChat, error)

	Close() error
}

// ActiveChat — элемент списка активных диалогов для команды /chats.
type ActiveChat struct {
	SupportToken  string
	LastMessageAt time.Time
}

// InitStore устанавливает соединение с настроенным бекендом и возвращает
// готовое хранилище. Тип бекенда определяется по DATABASE_URL: сетевой
// URI postgres выбирает PostgreSQL, всё остальное трактуется как путь к
// файлу SQLite. Ошибка здесь фатальна для процесса: без хранилища
// обслуживать трафик нельзя.
func InitStore(databaseURL string) (Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		log.Println("InitStore: используется PostgreSQL.")
		return newPostgresStore(databaseURL)
	}

	path := databaseURL
	if path == "" {
		path = "chat.db"
	}
	log.Printf("InitStore: используется SQLite (%s).", path)
	return newSQLiteStore(path)
}

// validateSender — проверка флага отправителя на пути записи.
// В отличие от чтения, здесь нет никакого тихого исправления:
// некорректное значение - это ошибка вызывающего кода.
func validateSender(sender int) error {
	if !models.IsValidSender(sender) {
		return fmt.Errorf("некорректное значение messageFrom: %d (допустимы только 0 и 1)", sender)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// collectMessages сканирует строки выборки сообщений. Каждая строка проходит
// нормализацию флага отправителя; для повреждённых строк после завершения
// выборки вызывается heal, который по возможности исправляет значение прямо
// в хранилище. Откладывать heal обязательно: пока rows не исчерпаны, они
// держат соединение, а у SQLite оно единственное.
func collectMessages(rows *sql.Rows, heal func(id int64)) ([]models.Message, error) {
	messages := []models.Message{}
	var corruptedIDs []int64

	for rows.Next() {
		var msg models.Message
		var message, image sql.NullString
		var rawSender sql.NullInt64

		if errScan := rows.Scan(&msg.ID, &msg.SupportToken, &message, &image, &rawSender, &msg.CreatedAt); errScan != nil {
			log.Printf("collectMessages: ошибка сканирования строки: %v", errScan)
			continue
		}

		sender, corrupted := models.NormalizeSender(rawSender)
		if corrupted {
			log.Printf("collectMessages: повреждённый messageFrom у сообщения ID=%d (токен %s), приведён к значению клиента.", msg.ID, msg.SupportToken)
			corruptedIDs = append(corruptedIDs, msg.ID)
		}
		msg.Sender = sender
		msg.Message = message.String
		msg.Image = image.String
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range corruptedIDs {
		heal(id)
	}
	return messages, nil
}
