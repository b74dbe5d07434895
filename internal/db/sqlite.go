// Файл: internal/db/sqlite.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"supportrelay/internal/constants"
	"supportrelay/internal/models"
)

// sqliteStore реализует Store поверх локального файла SQLite.
// Контракт полностью совпадает с postgresStore, различия только в
// синтаксисе плейсхолдеров и способе получения id вставленной строки.
type sqliteStore struct {
	db *sql.DB
}

func newSQLiteStore(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
	}

	// SQLite стабильнее всего работает через одно соединение.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка проверки соединения с SQLite: %w", err)
	}
	log.Println("Успешное подключение к SQLite.")

	s := &sqliteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) ensureSchema() error {
	_, err := s.db.Exec(`
        CREATE TABLE IF NOT EXISTS messages (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            supportToken TEXT NOT NULL,
            message TEXT,
            image TEXT,
            messageFrom INTEGER NOT NULL DEFAULT 1,
            createdAt DATETIME DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_messages_support_token ON messages(supportToken);
        CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(createdAt);
    `)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы messages: %w", err)
	}

	result, err := s.db.Exec(`
        UPDATE messages
        SET messageFrom = ?
        WHERE messageFrom IS NULL OR messageFrom NOT IN (?, ?)`,
		constants.SENDER_VISITOR, constants.SENDER_OPERATOR, constants.SENDER_VISITOR)
	if err != nil {
		return fmt.Errorf("ошибка ремонта поля messageFrom: %w", err)
	}
	if fixed, errRows := result.RowsAffected(); errRows == nil && fixed > 0 {
		log.Printf("ensureSchema: исправлено %d записей с некорректным messageFrom.", fixed)
	}

	log.Println("Таблица messages создана/проверена.")
	return nil
}

func (s *sqliteStore) AppendMessage(supportToken, message, image string, sender int) (models.Message, error) {
	if err := validateSender(sender); err != nil {
		log.Printf("AppendMessage: отклонена запись для токена %s: %v", supportToken, err)
		return models.Message{}, err
	}

	result, err := s.db.Exec(`
        INSERT INTO messages (supportToken, message, image, messageFrom)
        VALUES (?, ?, ?, ?)`,
		supportToken, nullIfEmpty(message), nullIfEmpty(image), sender)
	if err != nil {
		log.Printf("AppendMessage: ошибка добавления сообщения (токен %s, messageFrom %d): %v", supportToken, sender, err)
		return models.Message{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Message{}, fmt.Errorf("ошибка получения id вставленной строки: %w", err)
	}

	msg := models.Message{
		ID:           id,
		SupportToken: supportToken,
		Message:      message,
		Image:        image,
		Sender:       sender,
	}
	if errTime := s.db.QueryRow(`SELECT createdAt FROM messages WHERE id = ?`, id).Scan(&msg.CreatedAt); errTime != nil {
		log.Printf("AppendMessage: не удалось прочитать createdAt для ID=%d: %v", id, errTime)
	}
	log.Printf("Сообщение #%d (токен %s, messageFrom %d) сохранено в SQLite.", id, supportToken, sender)
	return msg, nil
}

func (s *sqliteStore) GetMessagesByToken(supportToken string) ([]models.Message, error) {
	rows, err := s.db.Query(`
        SELECT id, supportToken, message, image, messageFrom, createdAt
        FROM messages
        WHERE supportToken = ?
        ORDER BY createdAt ASC, id ASC`, supportToken)
	if err != nil {
		log.Printf("GetMessagesByToken: ошибка выборки для токена %s: %v", supportToken, err)
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows, s.healSender)
}

func (s *sqliteStore) GetLastMessage(supportToken string) (*models.Message, error) {
	rows, err := s.db.Query(`
        SELECT id, supportToken, message, image, messageFrom, createdAt
        FROM messages
        WHERE supportToken = ?
        ORDER BY createdAt DESC, id DESC
        LIMIT 1`, supportToken)
	if err != nil {
		log.Printf("GetLastMessage: ошибка выборки для токена %s: %v", supportToken, err)
		return nil, err
	}
	defer rows.Close()

	messages, err := collectMessages(rows, s.healSender)
	if err != nil || len(messages) == 0 {
		return nil, err
	}
	return &messages[0], nil
}

func (s *sqliteStore) GetActiveTokens(limit int) ([]ActiveChat, error) {
	rows, err := s.db.Query(`
        SELECT supportToken, MAX(createdAt) AS last_message_time
        FROM messages
        WHERE messageFrom = ?
        GROUP BY supportToken
        ORDER BY last_message_time DESC
        LIMIT ?`, constants.SENDER_VISITOR, limit)
	if err != nil {
		log.Printf("GetActiveTokens: ошибка выборки активных диалогов: %v", err)
		return nil, err
	}
	defer rows.Close()

	chats := []ActiveChat{}
	for rows.Next() {
		var chat ActiveChat
		var lastRaw string
		// MAX(createdAt) теряет объявленный тип колонки, драйвер отдаёт текст.
		if errScan := rows.Scan(&chat.SupportToken, &lastRaw); errScan != nil {
			log.Printf("GetActiveTokens: ошибка сканирования строки: %v", errScan)
			continue
		}
		chat.LastMessageAt = parseSQLiteTime(lastRaw)
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// parseSQLiteTime разбирает текстовое представление DATETIME из SQLite.
func parseSQLiteTime(raw string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	log.Printf("parseSQLiteTime: не удалось разобрать время '%s'.", raw)
	return time.Time{}
}

func (s *sqliteStore) healSender(id int64) {
	_, err := s.db.Exec(`UPDATE messages SET messageFrom = ? WHERE id = ?`, constants.SENDER_VISITOR, id)
	if err != nil {
		log.Printf("healSender: не удалось исправить запись ID=%d: %v", id, err)
		return
	}
	log.Printf("healSender: запись ID=%d исправлена, messageFrom установлен в %d.", id, constants.SENDER_VISITOR)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
