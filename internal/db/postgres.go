// Файл: internal/db/postgres.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"supportrelay/internal/constants"
	"supportrelay/internal/models"
)

// postgresStore реализует Store поверх PostgreSQL (сетевой DATABASE_URL).
type postgresStore struct {
	db *sql.DB
}

func newPostgresStore(databaseURL string) (*postgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка проверки соединения с базой данных: %w", err)
	}
	log.Println("Успешное подключение к PostgreSQL.")

	s := &postgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema создаёт таблицу сообщений при её отсутствии и выполняет
// одноразовый ремонт: все строки с отсутствующим либо некорректным
// messageFrom переписываются значением клиента.
func (s *postgresStore) ensureSchema() error {
	_, err := s.db.Exec(`
        CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            supportToken TEXT NOT NULL,
            message TEXT,
            image TEXT,
            messageFrom INTEGER NOT NULL DEFAULT 1,
            createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_messages_support_token ON messages(supportToken);
        CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(createdAt);
    `)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы messages: %w", err)
	}

	result, err := s.db.Exec(`
        UPDATE messages
        SET messageFrom = $1
        WHERE messageFrom IS NULL OR messageFrom NOT IN ($2, $3)`,
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

func (s *postgresStore) AppendMessage(supportToken, message, image string, sender int) (models.Message, error) {
	if err := validateSender(sender); err != nil {
		log.Printf("AppendMessage: отклонена запись для токена %s: %v", supportToken, err)
		return models.Message{}, err
	}

	msg := models.Message{
		SupportToken: supportToken,
		Message:      message,
		Image:        image,
		Sender:       sender,
	}
	err := s.db.QueryRow(`
        INSERT INTO messages (supportToken, message, image, messageFrom)
        VALUES ($1, $2, $3, $4)
        RETURNING id, createdAt`,
		supportToken, nullIfEmpty(message), nullIfEmpty(image), sender).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		log.Printf("AppendMessage: ошибка добавления сообщения (токен %s, messageFrom %d): %v", supportToken, sender, err)
		return models.Message{}, err
	}
	log.Printf("Сообщение #%d (токен %s, messageFrom %d) сохранено в PostgreSQL.", msg.ID, supportToken, sender)
	return msg, nil
}

func (s *postgresStore) GetMessagesByToken(supportToken string) ([]models.Message, error) {
	rows, err := s.db.Query(`
        SELECT id, supportToken, message, image, messageFrom, createdAt
        FROM messages
        WHERE supportToken = $1
        ORDER BY createdAt ASC, id ASC`, supportToken)
	if err != nil {
		log.Printf("GetMessagesByToken: ошибка выборки для токена %s: %v", supportToken, err)
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows, s.healSender)
}

func (s *postgresStore) GetLastMessage(supportToken string) (*models.Message, error) {
	rows, err := s.db.Query(`
        SELECT id, supportToken, message, image, messageFrom, createdAt
        FROM messages
        WHERE supportToken = $1
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

func (s *postgresStore) GetActiveTokens(limit int) ([]ActiveChat, error) {
	rows, err := s.db.Query(`
        SELECT supportToken, MAX(createdAt) AS last_message_time
        FROM messages
        WHERE messageFrom = $1
        GROUP BY supportToken
        ORDER BY last_message_time DESC
        LIMIT $2`, constants.SENDER_VISITOR, limit)
	if err != nil {
		log.Printf("GetActiveTokens: ошибка выборки активных диалогов: %v", err)
		return nil, err
	}
	defer rows.Close()

	chats := []ActiveChat{}
	for rows.Next() {
		var chat ActiveChat
		if errScan := rows.Scan(&chat.SupportToken, &chat.LastMessageAt); errScan != nil {
			log.Printf("GetActiveTokens: ошибка сканирования строки: %v", errScan)
			continue
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// healSender опортунистически исправляет повреждённую строку прямо в БД.
// Ошибка не прерывает чтение: нормализованное значение уже отдано вызывающему.
func (s *postgresStore) healSender(id int64) {
	_, err := s.db.Exec(`UPDATE messages SET messageFrom = $1 WHERE id = $2`, constants.SENDER_VISITOR, id)
	if err != nil {
		log.Printf("healSender: не удалось исправить запись ID=%d: %v", id, err)
		return
	}
	log.Printf("healSender: запись ID=%d исправлена, messageFrom установлен в %d.", id, constants.SENDER_VISITOR)
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
