package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"supportrelay/internal/api"
	"supportrelay/internal/config"
	"supportrelay/internal/constants"
	"supportrelay/internal/db"
	"supportrelay/internal/handlers"
	"supportrelay/internal/session"
	"supportrelay/internal/telegram_api"
	"supportrelay/internal/widgetkey"
)

func main() {
	// --- Блок инициализации ---
	err := godotenv.Load()
	if err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	store, err := db.InitStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать хранилище сообщений: %v", err)
	}
	defer store.Close()

	keys := widgetkey.NewManager(cfg.KeyFile, cfg.SiteHTMLFile)
	if _, err := keys.Load(); err != nil {
		// Не фатально: виджет продолжит работать со старым ключом в HTML.
		log.Printf("Предупреждение: не удалось загрузить ключ виджета: %v", err)
	}

	err = telegram_api.InitBot(cfg.TelegramToken, cfg.AppEnv == "dev")
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать Telegram бота: %v", err)
	}

	relayManager := session.NewRelayManager()

	botHandler := handlers.NewBotHandler(handlers.HandlerDependencies{
		Config:    cfg,
		BotClient: telegram_api.Client,
		Store:     store,
		Relay:     relayManager,
		Keys:      keys,
	})

	// --- Настройка роутера и Middleware ---
	apiRouter := chi.NewRouter()

	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(apiRouter, api.ApiDependencies{
		Config:   cfg,
		Store:    store,
		Notifier: botHandler,
		MediaDir: "media_storage",
	})

	// Статика виджета: корень отдаёт страницу сайта со встроенным виджетом.
	workDir, _ := os.Getwd()
	siteDir := filepath.Join(workDir, cfg.SiteDir)
	apiRouter.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(siteDir, "index.html"))
	})
	apiRouter.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	FileServer(apiRouter, "/site", http.Dir(siteDir))

	// Запускаем HTTP-сервер в отдельной горутине
	go func() {
		log.Printf("Запуск HTTP-сервера API поддержки на порту %s", cfg.Port)
		if err := http.ListenAndServe(":"+cfg.Port, apiRouter); err != nil {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
		}
	}()

	// Запуск самого бота
	log.Println("Бот и API-сервер запущены и готовы к работе...")
	runBot(botHandler)
}

// runBot крутит цикл получения обновлений Telegram. Если канал обновлений
// закрылся (например, из-за конфликта с дублирующимся экземпляром бота),
// цикл перезапускается после фиксированной паузы, без ограничения попыток.
func runBot(botHandler *handlers.BotHandler) {
	botAPI := telegram_api.Client.GetAPI()

	for {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := botAPI.GetUpdatesChan(u)

		for update := range updates {
			go dispatchUpdate(botHandler, update)
		}

		log.Printf("Канал обновлений Telegram закрыт. Перезапуск через %d секунд...", constants.BOT_RESTART_DELAY_SECONDS)
		time.Sleep(constants.BOT_RESTART_DELAY_SECONDS * time.Second)
	}
}

// dispatchUpdate разбирает обновление по обработчикам. Паника в обработчике
// не должна ронять весь процесс.
func dispatchUpdate(botHandler *handlers.BotHandler, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatchUpdate: паника в обработчике обновления: %v", r)
		}
	}()

	if update.Message != nil {
		userName := ""
		if update.Message.From != nil {
			userName = update.Message.From.UserName
		}
		log.Printf("[%s] %s", userName, update.Message.Text)
		botHandler.HandleMessage(update)
	} else if update.CallbackQuery != nil {
		log.Printf("Callback от %s: %s", update.CallbackQuery.From.UserName, update.CallbackQuery.Data)
		botHandler.HandleCallback(update)
	}
}

// FileServer для обслуживания статичных файлов
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer не поддерживает шаблоны URL")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}
