package session

import "testing"

func TestTrackAndResolveByMessageID(t *testing.T) {
	rm := NewRelayManager()

	rm.TrackNotification("abc123", 101)

	token, ok := rm.TokenByMessageID(101)
	if !ok || token != "abc123" {
		t.Errorf("TokenByMessageID(101) = (%q, %v), ожидалось (abc123, true)", token, ok)
	}

	if _, ok := rm.TokenByMessageID(999); ok {
		t.Error("TokenByMessageID для неизвестного message_id должен возвращать false")
	}
}

func TestTrackNotificationOverwritesToken(t *testing.T) {
	rm := NewRelayManager()

	rm.TrackNotification("abc123", 101)
	rm.TrackNotification("abc123", 102)

	// Старая привязка к токену вытеснена новой.
	if _, ok := rm.TokenByMessageID(101); ok {
		t.Error("старый message_id не должен разрешаться после перезаписи")
	}
	if token, ok := rm.TokenByMessageID(102); !ok || token != "abc123" {
		t.Errorf("TokenByMessageID(102) = (%q, %v), ожидалось (abc123, true)", token, ok)
	}
}

func TestConsumePendingReplyOnce(t *testing.T) {
	rm := NewRelayManager()

	if _, ok := rm.ConsumePendingReply(); ok {
		t.Error("ConsumePendingReply без отложенного ответа должен возвращать false")
	}

	rm.SetPendingReply("abc123")

	token, ok := rm.ConsumePendingReply()
	if !ok || token != "abc123" {
		t.Errorf("ConsumePendingReply = (%q, %v), ожидалось (abc123, true)", token, ok)
	}
	if _, ok := rm.ConsumePendingReply(); ok {
		t.Error("отложенный ответ должен потребляться ровно один раз")
	}
}

func TestPendingReplyLastButtonWins(t *testing.T) {
	rm := NewRelayManager()

	rm.SetPendingReply("tokenA")
	rm.SetPendingReply("tokenB")

	token, ok := rm.ConsumePendingReply()
	if !ok || token != "tokenB" {
		t.Errorf("ожидался токен последней нажатой кнопки tokenB, получено (%q, %v)", token, ok)
	}
}

func TestActiveTokens(t *testing.T) {
	rm := NewRelayManager()
	rm.TrackNotification("tokA", 1)
	rm.TrackNotification("tokB", 2)

	tokens := rm.ActiveTokens()
	if len(tokens) != 2 {
		t.Fatalf("ожидалось 2 токена, получено %d", len(tokens))
	}
	seen := map[string]bool{}
	for _, token := range tokens {
		seen[token] = true
	}
	if !seen["tokA"] || !seen["tokB"] {
		t.Errorf("ActiveTokens вернул неожиданный набор: %v", tokens)
	}
}
