package telegram_api

import (
	"strings"
	"testing"
)

func TestSplitMessageShortText(t *testing.T) {
	chunks := SplitMessage("короткий текст", 4000)
	if len(chunks) != 1 || chunks[0] != "короткий текст" {
		t.Errorf("короткий текст не должен разбиваться, получено %v", chunks)
	}

	if chunks := SplitMessage("", 4000); chunks != nil {
		t.Errorf("пустой текст должен давать nil, получено %v", chunks)
	}
}

func TestSplitMessageRespectsRuneLimit(t *testing.T) {
	// Кириллица: каждая руна занимает два байта, лимит считается в рунах.
	text := strings.Repeat("абвгд ежзик\n", 100)
	limit := 50

	chunks := SplitMessage(text, limit)
	if len(chunks) < 2 {
		t.Fatalf("длинный текст должен разбиваться, получено %d частей", len(chunks))
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > limit {
			t.Errorf("часть %d длиннее лимита: %d рун", i, n)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("склейка частей не совпадает с исходным текстом")
	}
}

func TestSplitMessagePrefersNewlineBoundary(t *testing.T) {
	text := strings.Repeat("строка переписки\n", 20)
	for _, chunk := range SplitMessage(text, 100) {
		if strings.Contains(chunk, "\n") && !strings.HasSuffix(chunk, "\n") {
			t.Errorf("разрез прошёл посреди строки: %q", chunk)
		}
	}
}
