package handlers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/xuri/excelize/v2" // Для генерации Excel / For Excel generation

	"supportrelay/internal/constants"
)

// generateAndSendHistoryExcel выгружает историю переписки по токену в Excel
// и отправляет файл оператору документом.
func (bh *BotHandler) generateAndSendHistoryExcel(chatID int64, supportToken string) {
	if supportToken == "" {
		bh.sendMessage(chatID, "Использование: /export <токен>")
		return
	}

	messages, err := bh.Deps.Store.GetMessagesByToken(supportToken)
	if err != nil {
		log.Printf("generateAndSendHistoryExcel: ошибка получения истории для токена %s: %v", supportToken, err)
		bh.sendMessage(chatID, "❌ Ошибка при получении данных для Excel отчета.")
		return
	}
	if len(messages) == 0 {
		bh.sendMessage(chatID, fmt.Sprintf("📭 История чата %s пуста, выгружать нечего", supportToken))
		return
	}

	f := excelize.NewFile()
	sheetName := "История"
	index, _ := f.NewSheet(sheetName) // Игнорируем ошибку, если лист уже существует / Ignore error if sheet already exists
	f.DeleteSheet("Sheet1")           // Удаляем стандартный лист / Delete default sheet
	f.SetActiveSheet(index)

	headers := []string{"ID", "Отправитель", "Сообщение", "Изображение", "Время"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	rowIndex := 2
	for _, msg := range messages {
		from := "Оператор"
		if msg.Sender == constants.SENDER_VISITOR {
			from = "Клиент"
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIndex), msg.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), from)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), msg.Message)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), msg.Image)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIndex), msg.CreatedAt.Format("02.01.2006 15:04:05"))
		rowIndex++
	}

	filePath := filepath.Join(os.TempDir(), fmt.Sprintf("history_%s_%s.xlsx", supportToken, time.Now().Format("20060102_150405")))
	if err := f.SaveAs(filePath); err != nil {
		log.Printf("generateAndSendHistoryExcel: ошибка сохранения файла %s: %v", filePath, err)
		bh.sendMessage(chatID, "❌ Не удалось сформировать Excel файл.")
		return
	}
	defer os.Remove(filePath)

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filePath))
	doc.Caption = fmt.Sprintf("📜 История чата %s (%d сообщений)", supportToken, len(messages))
	if _, err := bh.Deps.BotClient.Send(doc); err != nil {
		log.Printf("generateAndSendHistoryExcel: ошибка отправки документа (токен %s): %v", supportToken, err)
		bh.sendMessage(chatID, "❌ Не удалось отправить Excel файл.")
	}
}
