package session

import (
	"log"
	"sync"
)

// RelayManager хранит разговорное состояние бота-ретранслятора:
// таблицу соответствий и отложенный ответ оператора.
// RelayManager holds the relay bot's conversational state:
// the correlation table and the operator's pending reply.
//
// Таблица соответствий: токен поддержки -> message_id последнего уведомления,
// отправленного оператору по этому диалогу. Живёт только в памяти процесса:
// после рестарта старые диалоги разрешаются лишь через кнопку или /reply.
type RelayManager struct {
	activeChats map[string]int // Ключ: supportToken, Значение: message_id уведомления
	// Токен, ожидающий следующего текстового сообщения оператора.
	// Не более одного одновременно: нажатие новой кнопки перезаписывает старый.
	pendingReply string
	mutex        sync.RWMutex
}

// NewRelayManager создаёт и возвращает новый экземпляр RelayManager.
func NewRelayManager() *RelayManager {
	return &RelayManager{
		activeChats: make(map[string]int),
	}
}

// TrackNotification запоминает message_id уведомления, отправленного
// оператору по данному токену. Прежняя запись для токена перезаписывается.
func (rm *RelayManager) TrackNotification(supportToken string, messageID int) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.activeChats[supportToken] = messageID
	log.Printf("RelayManager.TrackNotification: токен %s связан с message_id %d.", supportToken, messageID)
}

// TokenByMessageID ищет токен по message_id уведомления, на которое
// оператор ответил через reply. Это первичный механизм разрешения ответа.
func (rm *RelayManager) TokenByMessageID(messageID int) (string, bool) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	for token, id := range rm.activeChats {
		if id == messageID {
			return token, true
		}
	}
	return "", false
}

// SetPendingReply помечает токен как ожидающий следующего сообщения оператора.
// Вызывается при нажатии кнопки "Ответить" под уведомлением.
func (rm *RelayManager) SetPendingReply(supportToken string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if rm.pendingReply != "" && rm.pendingReply != supportToken {
		log.Printf("RelayManager.SetPendingReply: ожидавший токен %s перезаписан токеном %s.", rm.pendingReply, supportToken)
	}
	rm.pendingReply = supportToken
}

// ConsumePendingReply возвращает ожидающий токен и сбрасывает его.
// Токен потребляется ровно один раз.
func (rm *RelayManager) ConsumePendingReply() (string, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if rm.pendingReply == "" {
		return "", false
	}
	token := rm.pendingReply
	rm.pendingReply = ""
	return token, true
}

// ActiveTokens возвращает токены, по которым в этом процессе уходили
// уведомления оператору. Используется только для отладочного вывода:
// полный список активных диалогов живёт в хранилище.
func (rm *RelayManager) ActiveTokens() []string {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	tokens := make([]string, 0, len(rm.activeChats))
	for token := range rm.activeChats {
		tokens = append(tokens, token)
	}
	return tokens
}
