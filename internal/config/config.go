// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	TelegramToken  string
	OperatorChatID string // сравнивается как нормализованная строка, см. isOperator в handlers
	DatabaseURL    string // postgres://... либо путь к файлу SQLite
	AppEnv         string
	Port           string
	SiteDir        string // каталог со статикой виджета
	SiteHTMLFile   string // HTML-страница, в которой прописан ключ виджета
	SiteURL        string // публичный адрес сайта, используется для QR-ссылок
	KeyFile        string // файл с ключом виджета (дублирует значение в HTML)
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_APITOKEN"),
		OperatorChatID: strings.TrimSpace(os.Getenv("OPERATOR_CHAT_ID")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AppEnv:         os.Getenv("ENV"),
		Port:           os.Getenv("PORT"),
		SiteDir:        os.Getenv("SITE_DIR"),
		SiteURL:        os.Getenv("SITE_URL"),
	}

	if cfg.TelegramToken == "" {
		log.Println("Критическая ошибка: TELEGRAM_APITOKEN не установлен.")
	}
	if cfg.OperatorChatID == "" {
		log.Println("Критическая ошибка: OPERATOR_CHAT_ID не установлен. Уведомления оператору работать не будут.")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Предупреждение: DATABASE_URL не установлен, будет использован локальный файл SQLite chat.db.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.SiteDir == "" {
		cfg.SiteDir = "site"
	}
	if cfg.SiteURL == "" {
		log.Println("Предупреждение: SITE_URL не установлен. Команда /qr работать не будет.")
	}

	cfg.SiteHTMLFile = cfg.SiteDir + "/index.html"
	cfg.KeyFile = "support_key.json"

	log.Println("Конфигурация загружена.")
	return cfg, nil
}
