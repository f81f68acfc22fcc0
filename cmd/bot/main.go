package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evn/driver_botl/config"
	"github.com/evn/driver_botl/internal/assign"
	"github.com/evn/driver_botl/internal/handlers"
	adminHandlers "github.com/evn/driver_botl/internal/handlers/admin"
	"github.com/evn/driver_botl/internal/sheets"
	"github.com/evn/driver_botl/internal/state"
	"github.com/evn/driver_botl/internal/telegram"
	"github.com/evn/driver_botl/internal/weekly"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env не найден, использую переменные окружения")
	}
	cfg := config.NewConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := sheets.NewGoogleBackend(ctx, cfg.SpreadsheetID, cfg.GoogleCredentials)
	if err != nil {
		log.Fatalf("❌ Google Sheets: %v", err)
	}
	opts := sheets.DefaultOptions()
	opts.CacheTTL = cfg.CacheTTL
	opts.MaxRetries = cfg.MaxRetries
	opts.RetryDelay = cfg.RetryDelay
	store := sheets.NewStore(backend, opts)
	tables := sheets.NewManager(store, cfg)

	redisClient := config.NewRedisClient()
	defer redisClient.Close()
	stateStore := state.NewRedisStore(redisClient)

	tg := telegram.NewClient(cfg.TelegramBotToken)
	engine := assign.NewEngine(tables, cfg.MaxPassengers)
	checker := weekly.NewChecker(cfg, tables, engine, stateStore, tg)

	// восстанавливаем окна подтверждения, пережившие рестарт
	if err := checker.Rearm(ctx); err != nil {
		log.Printf("⚠️ Восстановление таймеров подтверждения: %v", err)
	}
	checker.StartSchedule(ctx)

	bot := handlers.NewBot(cfg, tables, engine, checker, tg, cancel)

	// служебный HTTP API
	adminH := adminHandlers.NewHandlers(cfg, tables, checker, stateStore)
	router := adminHandlers.NewRouter(adminH)
	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{Addr: serverAddress, Handler: router}
	go func() {
		log.Printf("🚀 Admin API starting on %s", serverAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Admin API: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("🛑 Получен сигнал %v, останавливаюсь", s)
		cancel()
	}()

	if err := tg.DropPendingUpdates(ctx); err != nil {
		log.Printf("⚠️ Сброс накопившихся апдейтов: %v", err)
	}

	log.Println("🤖 Бот запущен, слушаю обновления")
	for ctx.Err() == nil {
		updates, err := tg.GetUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("❌ getUpdates: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}
		for _, u := range updates {
			go bot.HandleUpdate(ctx, u)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Остановка admin API: %v", err)
	}
	log.Println("✅ Бот остановлен")
}
