package utils

import "testing"

func TestEscapeTelegramMarkdownV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"просто текст", "просто текст"},
		{"цена 5.99 (скидка!)", "цена 5\\.99 \\(скидка\\!\\)"},
		{"a_b*c", "a\\_b\\*c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := EscapeTelegramMarkdownV2(tt.in); got != tt.want {
			t.Errorf("EscapeTelegramMarkdownV2(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractSupportToken(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"формат уведомления с разметкой",
			"🔔 НОВОЕ СООБЩЕНИЕ ОТ КЛИЕНТА\n\n🔑 Токен: `abc123`\n💬 Сообщение:\nпривет",
			"abc123",
		},
		{
			"метка без кавычек",
			"Токен: xyz789",
			"xyz789",
		},
		{
			"метка в нижнем регистре",
			"токен qwe111",
			"qwe111",
		},
		{
			"только эмодзи",
			"🔑 zzz42",
			"zzz42",
		},
		{
			"текст без токена",
			"обычное сообщение без всего",
			"",
		},
		{
			"пустой текст",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSupportToken(tt.text); got != tt.want {
				t.Errorf("ExtractSupportToken(%q) = %q, ожидалось %q", tt.text, got, tt.want)
			}
		})
	}
}
