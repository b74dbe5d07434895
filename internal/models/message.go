package models

import (
	"database/sql"
	"time"

	"supportrelay/internal/constants"
)

// Message представляет одно сообщение в переписке клиента с оператором.
// Message represents a single message in a client-operator conversation.
type Message struct {
	ID           int64     `json:"id"`
	SupportToken string    `json:"-"`
	Message      string    `json:"message"`
	Image        string    `json:"image"` // ссылка на сохранённое изображение, пустая строка если его нет
	Sender       int       `json:"sender"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsValidSender сообщает, является ли значение допустимым флагом отправителя.
func IsValidSender(sender int) bool {
	return sender == constants.SENDER_OPERATOR || sender == constants.SENDER_VISITOR
}

// NormalizeSender приводит "сырое" значение messageFrom из БД к одному из двух
// допустимых значений. Возвращает нормализованное значение и признак того,
// что исходное значение было повреждено (NULL или вне диапазона) и строку в БД
// стоит исправить. Исторически флаг записывался как NULL старыми версиями
// бэкенда, поэтому повреждённые значения трактуются как сообщение клиента.
func NormalizeSender(raw sql.NullInt64) (int, bool) {
	if !raw.Valid {
		return constants.SENDER_VISITOR, true
	}
	v := int(raw.Int64)
	if !IsValidSender(v) {
		return constants.SENDER_VISITOR, true
	}
	return v, false
}
