package utils

import (
	"fmt"
	"log"

	"github.com/skip2/go-qrcode"
)

// GenerateWidgetLink строит ссылку на страницу виджета для конкретного диалога.
// siteURL передаётся из конфигурации.
func GenerateWidgetLink(siteURL, supportToken string) (string, error) {
	if siteURL == "" {
		log.Println("GenerateWidgetLink: SITE_URL не настроен.")
		return "", fmt.Errorf("адрес сайта не настроен")
	}
	if supportToken == "" {
		return "", fmt.Errorf("токен поддержки не указан")
	}
	return fmt.Sprintf("%s/?supportToken=%s", siteURL, supportToken), nil
}

// GenerateWidgetQRCode генерирует QR-код ссылки на виджет для диалога.
func GenerateWidgetQRCode(siteURL, supportToken string) ([]byte, error) {
	link, err := GenerateWidgetLink(siteURL, supportToken)
	if err != nil {
		log.Printf("GenerateWidgetQRCode: ошибка генерации ссылки для токена %s: %v", supportToken, err)
		return nil, err
	}

	// qrcode.Medium - уровень коррекции ошибок, 256 - размер QR-кода в пикселях.
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		log.Printf("GenerateWidgetQRCode: ошибка кодирования QR-кода для ссылки '%s': %v", link, err)
		return nil, err
	}
	return qrBytes, nil
}
