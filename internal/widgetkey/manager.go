// Файл: internal/widgetkey/manager.go
//
// Ключ чат-виджета хранится избыточно: в JSON-файле рядом с приложением и
// прямо в отдаваемой HTML-странице (присваивание _support.key = '...').
// Файл первичен при загрузке; если его нет, ключ извлекается из HTML и
// пересохраняется в файл. Запись всегда обновляет оба места.
package widgetkey

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

var htmlKeyRe = regexp.MustCompile(`(_support\.key\s*=\s*)['"]([^'"]*)['"]`)

// keyFilePayload — формат JSON-файла с ключом.
type keyFilePayload struct {
	Key       string `json:"key"`
	UpdatedAt string `json:"updatedAt"`
}

// Manager управляет ключом виджета.
type Manager struct {
	keyFile    string
	htmlFile   string
	currentKey string
	mutex      sync.RWMutex
}

// NewManager создаёт менеджер ключа. Ключ не загружается автоматически,
// вызовите Load при старте приложения.
func NewManager(keyFile, htmlFile string) *Manager {
	return &Manager{
		keyFile:  keyFile,
		htmlFile: htmlFile,
	}
}

// Load загружает ключ: сначала из файла, при его отсутствии - из HTML.
// Отсутствие ключа не фатально, виджет просто останется без него.
func (m *Manager) Load() (string, error) {
	data, err := os.ReadFile(m.keyFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("widgetkey: файл ключа не найден, загружаю из HTML...")
			return m.loadFromHTML()
		}
		log.Printf("widgetkey: ошибка загрузки ключа: %v", err)
		return "", err
	}

	var payload keyFilePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("widgetkey: ошибка разбора файла ключа: %v", err)
		return "", err
	}

	m.mutex.Lock()
	m.currentKey = payload.Key
	m.mutex.Unlock()
	log.Println("widgetkey: ключ загружен из файла.")
	return payload.Key, nil
}

// loadFromHTML извлекает ключ из HTML-страницы и сохраняет его в файл.
func (m *Manager) loadFromHTML() (string, error) {
	html, err := os.ReadFile(m.htmlFile)
	if err != nil {
		log.Printf("widgetkey: ошибка чтения HTML: %v", err)
		return "", err
	}

	match := htmlKeyRe.FindSubmatch(html)
	if match == nil {
		log.Println("widgetkey: ключ не найден в HTML.")
		return "", nil
	}
	key := string(match[2])

	if err := m.saveToFile(key); err != nil {
		return "", err
	}
	log.Println("widgetkey: ключ загружен из HTML и сохранен в файл.")
	return key, nil
}

// saveToFile пишет ключ в JSON-файл и обновляет кэш в памяти.
func (m *Manager) saveToFile(key string) error {
	payload := keyFilePayload{
		Key:       key,
		UpdatedAt: time.Now().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.keyFile, data, 0o644); err != nil {
		log.Printf("widgetkey: ошибка сохранения в файл: %v", err)
		return err
	}

	m.mutex.Lock()
	m.currentKey = key
	m.mutex.Unlock()
	return nil
}

// CurrentKey возвращает текущий ключ из памяти (возможно пустой).
func (m *Manager) CurrentKey() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.currentKey
}

// SetKey устанавливает новый ключ: обновляет присваивание в HTML-странице
// и переписывает JSON-файл. Пустой ключ отклоняется.
func (m *Manager) SetKey(newKey string) error {
	trimmed := strings.TrimSpace(newKey)
	if trimmed == "" {
		return fmt.Errorf("ключ не может быть пустым")
	}

	html, err := os.ReadFile(m.htmlFile)
	if err != nil {
		log.Printf("widgetkey: ошибка чтения HTML для обновления: %v", err)
		return err
	}

	if !htmlKeyRe.Match(html) {
		return fmt.Errorf("присваивание ключа не найдено в HTML-файле %s", m.htmlFile)
	}
	updated := htmlKeyRe.ReplaceAll(html, []byte("${1}'"+trimmed+"'"))

	if err := os.WriteFile(m.htmlFile, updated, 0o644); err != nil {
		log.Printf("widgetkey: ошибка обновления HTML: %v", err)
		return err
	}

	if err := m.saveToFile(trimmed); err != nil {
		return err
	}
	log.Println("widgetkey: ключ обновлен в HTML файле.")
	return nil
}
