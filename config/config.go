package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config хранит все конфигурации бота
type Config struct {
	TelegramBotToken  string
	SpreadsheetID     string
	GoogleCredentials string // JSON сервисного аккаунта

	Timezone       string
	DayShiftTime   string // "07:00"
	NightShiftTime string // "19:00"

	DriversSheet           string
	EmployeesSheet         string
	DriversPassengersSheet string

	MaxPassengers       int
	ConfirmationTimeout time.Duration
	CacheTTL            time.Duration
	MaxRetries          int
	RetryDelay          time.Duration

	AdminUsers map[int64]bool

	JwtSecret      string
	AdminAPISecret string
	ServerPort     string
}

// NewConfig создает и возвращает новый экземпляр Config.
// Без TELEGRAM_BOT_TOKEN и SPREADSHEET_ID запуск не имеет смысла.
func NewConfig() *Config {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN не задан")
	}

	spreadsheetID := os.Getenv("SPREADSHEET_ID")
	if spreadsheetID == "" {
		log.Fatal("SPREADSHEET_ID не задан")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "0hn/a5hwoWLn4nrmogQo+zDCM7h9203J4Iwhkp7b2ns=" // Измените в продакшене!
	}

	return &Config{
		TelegramBotToken:  botToken,
		SpreadsheetID:     spreadsheetID,
		GoogleCredentials: os.Getenv("GOOGLE_CREDENTIALS"),

		Timezone:       getEnv("BOT_TIMEZONE", "America/Chicago"),
		DayShiftTime:   getEnv("DAY_SHIFT_TIME", "07:00"),
		NightShiftTime: getEnv("NIGHT_SHIFT_TIME", "19:00"),

		DriversSheet:           getEnv("DRIVERS_SHEET", "drivers"),
		EmployeesSheet:         getEnv("EMPLOYEES_SHEET", "employees"),
		DriversPassengersSheet: getEnv("DRIVERS_PASSENGERS_SHEET", "drivers_passengers"),

		MaxPassengers:       getEnvInt("MAX_PASSENGERS", 4),
		ConfirmationTimeout: time.Duration(getEnvInt("CONFIRMATION_TIMEOUT_MINUTES", 60)) * time.Minute,
		CacheTTL:            time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		RetryDelay:          time.Duration(getEnvInt("RETRY_DELAY_SECONDS", 2)) * time.Second,

		AdminUsers: parseAdminUsers(getEnv("ADMIN_USER_IDS", "1270793968")),

		JwtSecret:      jwtSecret,
		AdminAPISecret: os.Getenv("ADMIN_API_SECRET"),
		ServerPort:     getEnv("SERVER_PORT", "6067"),
	}
}

// IsAdmin проверка по allow-list администраторов
func (c *Config) IsAdmin(tgID int64) bool {
	return c.AdminUsers[tgID]
}

func parseAdminUsers(raw string) map[int64]bool {
	admins := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("ADMIN_USER_IDS: пропускаю '%s': %v", part, err)
			continue
		}
		admins[id] = true
	}
	return admins
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}
