package utils

import (
	"regexp"
	"strings"
)

// EscapeTelegramMarkdownV2 экранирует специальные символы для Telegram MarkdownV2.
func EscapeTelegramMarkdownV2(text string) string {
	var replacer = strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
		"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
		"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

// Шаблоны поиска токена в тексте ранее отправленного уведомления.
// Формат уведомления свой же, поэтому достаточно двух вариантов:
// строка "Токен: <значение>" (возможно в обратных кавычках) и строка с 🔑.
var (
	tokenLabelRe = regexp.MustCompile("(?i)Токен[:\\s]*`?([a-zA-Z0-9]+)`?")
	tokenEmojiRe = regexp.MustCompile("🔑[:\\s]*`?([a-zA-Z0-9]+)`?")
)

// ExtractSupportToken пытается вытащить токен поддержки из текста уведомления.
// Это резервный разборщик последней очереди: он используется только когда
// message_id ответа не нашёлся в таблице соответствий (например, после
// рестарта процесса). Возвращает пустую строку, если токен не найден.
func ExtractSupportToken(text string) string {
	if text == "" {
		return ""
	}
	if m := tokenLabelRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if m := tokenEmojiRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return ""
}
