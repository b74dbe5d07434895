package widgetkey

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testHTML = `<!DOCTYPE html>
<html>
<body>
<script>
    var _support = _support || {};
    _support.key = 'initial-key';
</script>
</body>
</html>`

func newTestManager(t *testing.T) (*Manager, string, string) {
	t.Helper()
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "support_key.json")
	htmlFile := filepath.Join(dir, "index.html")
	if err := os.WriteFile(htmlFile, []byte(testHTML), 0o644); err != nil {
		t.Fatalf("не удалось создать тестовый HTML: %v", err)
	}
	return NewManager(keyFile, htmlFile), keyFile, htmlFile
}

func TestLoadFallsBackToHTML(t *testing.T) {
	m, keyFile, _ := newTestManager(t)

	key, err := m.Load()
	if err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}
	if key != "initial-key" {
		t.Errorf("ожидался ключ initial-key из HTML, получено %q", key)
	}
	if m.CurrentKey() != "initial-key" {
		t.Errorf("CurrentKey = %q, ожидалось initial-key", m.CurrentKey())
	}

	// Извлечённый из HTML ключ пересохраняется в файл.
	data, err := os.ReadFile(keyFile)
	if err != nil {
		t.Fatalf("файл ключа не создан: %v", err)
	}
	if !strings.Contains(string(data), "initial-key") {
		t.Errorf("файл ключа не содержит ключ: %s", data)
	}
}

func TestLoadPrefersKeyFile(t *testing.T) {
	m, keyFile, _ := newTestManager(t)

	payload := `{"key": "from-file", "updatedAt": "2026-01-01T00:00:00Z"}`
	if err := os.WriteFile(keyFile, []byte(payload), 0o644); err != nil {
		t.Fatalf("не удалось записать файл ключа: %v", err)
	}

	key, err := m.Load()
	if err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}
	if key != "from-file" {
		t.Errorf("файл ключа первичен при загрузке, получено %q", key)
	}
}

func TestSetKeyUpdatesHTMLAndFile(t *testing.T) {
	m, keyFile, htmlFile := newTestManager(t)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}

	if err := m.SetKey("new-key-42"); err != nil {
		t.Fatalf("SetKey вернул ошибку: %v", err)
	}

	html, err := os.ReadFile(htmlFile)
	if err != nil {
		t.Fatalf("не удалось прочитать HTML: %v", err)
	}
	if !strings.Contains(string(html), "_support.key = 'new-key-42'") {
		t.Errorf("присваивание ключа в HTML не обновлено:\n%s", html)
	}
	if strings.Contains(string(html), "initial-key") {
		t.Error("старый ключ остался в HTML")
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		t.Fatalf("не удалось прочитать файл ключа: %v", err)
	}
	if !strings.Contains(string(data), "new-key-42") {
		t.Errorf("файл ключа не обновлён: %s", data)
	}

	// Свежий менеджер видит новый ключ.
	fresh := NewManager(keyFile, htmlFile)
	key, err := fresh.Load()
	if err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}
	if key != "new-key-42" {
		t.Errorf("после перезагрузки ожидался new-key-42, получено %q", key)
	}
}

func TestSetKeyRejectsEmpty(t *testing.T) {
	m, _, _ := newTestManager(t)

	for _, key := range []string{"", "   ", "\t\n"} {
		if err := m.SetKey(key); err == nil {
			t.Errorf("SetKey(%q) должен отклонять пустой ключ", key)
		}
	}
}

func TestSetKeyWithoutAssignmentInHTML(t *testing.T) {
	dir := t.TempDir()
	htmlFile := filepath.Join(dir, "index.html")
	if err := os.WriteFile(htmlFile, []byte("<html><body>нет виджета</body></html>"), 0o644); err != nil {
		t.Fatalf("не удалось создать тестовый HTML: %v", err)
	}

	m := NewManager(filepath.Join(dir, "support_key.json"), htmlFile)
	if err := m.SetKey("key-1"); err == nil {
		t.Error("SetKey должен вернуть ошибку, если присваивание ключа не найдено в HTML")
	}
}
