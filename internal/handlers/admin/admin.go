// internal/handlers/admin/admin.go
package admin

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/evn/driver_botl/config"
	"github.com/evn/driver_botl/internal/pkg/response"
	"github.com/evn/driver_botl/internal/sheets"
	"github.com/evn/driver_botl/internal/state"
	"github.com/evn/driver_botl/internal/weekly"
	"github.com/evn/driver_botl/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Handlers служебный HTTP API для администраторов
type Handlers struct {
	cfg     *config.Config
	tables  *sheets.Manager
	checker *weekly.Checker
	state   state.Store
	jwtAuth *jwtauth.JWTAuth
}

func NewHandlers(cfg *config.Config, tables *sheets.Manager, checker *weekly.Checker, st state.Store) *Handlers {
	return &Handlers{
		cfg:     cfg,
		tables:  tables,
		checker: checker,
		state:   st,
		jwtAuth: jwtauth.New("HS256", []byte(cfg.JwtSecret), nil),
	}
}

// NewRouter инициализирует и возвращает настроенный маршрутизатор.
func NewRouter(h *Handlers) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	// Публичные маршруты
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post("/api/auth/login", h.LoginHandler)

	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.jwtAuth))
		r.Use(jwtauth.Authenticator(h.jwtAuth))
		r.Use(adminOnly)

		r.Post("/api/admin/weekly/run", h.RunWeeklyHandler)
		r.Get("/api/admin/pending", h.PendingHandler)
		r.Get("/api/admin/export.xlsx", h.ExportHandler)
	})

	return router
}

// adminOnly пропускает только токены с ролью admin
func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.RespondWithError(w, http.StatusUnauthorized, "Неверный токен")
			return
		}
		if role, _ := claims["role"].(string); role != "admin" {
			response.RespondWithError(w, http.StatusForbidden, "Нет доступа")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	AdminID int64  `json:"admin_id"`
	Secret  string `json:"secret"`
}

// LoginHandler выдаёт JWT администратору по общему секрету
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if h.cfg.AdminAPISecret == "" {
		response.RespondWithError(w, http.StatusForbidden, "API отключён: секрет не задан")
		return
	}
	if req.Secret != h.cfg.AdminAPISecret || !h.cfg.IsAdmin(req.AdminID) {
		response.RespondWithError(w, http.StatusUnauthorized, "Неверные учётные данные")
		return
	}

	claims := jwt.MapClaims{
		"user_id": fmt.Sprintf("%d", req.AdminID),
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JwtSecret))
	if err != nil {
		log.Printf("❌ Подпись токена: %v", err)
		response.RespondWithError(w, http.StatusInternalServerError, "Не удалось выдать токен")
		return
	}

	response.RespondWithJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

// RunWeeklyHandler принудительно запускает рассылку по обеим сменам
func (h *Handlers) RunWeeklyHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.RunAll(r.Context()); err != nil {
		log.Printf("❌ Запуск weekly-проверки через API: %v", err)
		response.RespondWithError(w, http.StatusBadGateway, "Ошибка доступа к таблице")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

type pendingEntry struct {
	TgID      int64  `json:"tg_id"`
	ShiftKind string `json:"shift_kind"`
	CreatedAt string `json:"created_at"`
}

type pendingResponse struct {
	Pending       []pendingEntry    `json:"pending"`
	LastRuns      map[string]string `json:"last_runs"`
	ServerTimeUTC string            `json:"server_time_utc"`
}

// PendingHandler текущее состояние протокола подтверждений
func (h *Handlers) PendingHandler(w http.ResponseWriter, r *http.Request) {
	all, err := h.state.AllPending(r.Context())
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Ошибка чтения состояния")
		return
	}

	resp := pendingResponse{
		Pending:       []pendingEntry{},
		LastRuns:      make(map[string]string),
		ServerTimeUTC: time.Now().UTC().Format(time.RFC3339),
	}
	for tgID, p := range all {
		resp.Pending = append(resp.Pending, pendingEntry{
			TgID:      tgID,
			ShiftKind: string(p.ShiftKind),
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, kind := range []models.Shift{models.ShiftDay, models.ShiftNight} {
		t, ok, err := h.state.LastWeeklyCheck(r.Context(), kind)
		if err != nil || !ok {
			continue
		}
		resp.LastRuns[string(kind)] = t.Format(time.RFC3339)
	}

	response.RespondWithJSON(w, http.StatusOK, resp)
}
