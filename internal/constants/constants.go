package constants

// Значения флага отправителя сообщения (messageFrom).
// Унаследованы от исходной схемы: 1 - клиент, 0 - оператор.
// Любое другое значение в БД считается повреждённым и приводится к SENDER_VISITOR.
const (
	SENDER_OPERATOR = 0
	SENDER_VISITOR  = 1
)

// Ограничения транспорта и API
const (
	// Практический потолок длины одного сообщения Telegram.
	// Реальный лимит 4096, оставляем запас на разметку.
	MAX_TELEGRAM_MESSAGE_LEN = 4000

	// Максимальный размер загружаемого изображения от клиента (5 МБ).
	MAX_IMAGE_UPLOAD_BYTES = 5 << 20
)

// Префикс callback-данных кнопки "Ответить" под уведомлением оператора.
const CALLBACK_PREFIX_REPLY = "reply_"

// Пауза перед перезапуском цикла получения обновлений Telegram, в секундах.
const BOT_RESTART_DELAY_SECONDS = 5
