// Package handler содержит HTTP-обработчики страниц и API сайта наград.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-site/internal/alert"
	"github.com/mmeshcher/rewards-site/internal/middleware"
	"github.com/mmeshcher/rewards-site/internal/model"
	"github.com/mmeshcher/rewards-site/internal/reward"
	"github.com/mmeshcher/rewards-site/internal/session"
	"github.com/mmeshcher/rewards-site/internal/validation"
)

// Service определяет контракт операций синхронизации, используемых HTTP-обработчиками.
type Service interface {
	FetchUserData(ctx context.Context, sess *session.Session, walletAddress string) error
	RegisterUser(ctx context.Context, sess *session.Session, req model.RegisterRequest) error
	FetchWinners(ctx context.Context, sess *session.Session) error
	LoadWinners(ctx context.Context, sess *session.Session) error
	UpdateBalance(ctx context.Context, sess *session.Session, idWalletAddress int64, balance float64) error
	RestoreUser(ctx context.Context, sess *session.Session) error
}

// Handler реализует HTTP-обработчики сайта наград.
type Handler struct {
	service  Service
	logger   *zap.Logger
	sessions *middleware.SessionMiddleware
	pool     reward.Pool
	validate *validator.Validate
	pages    *pages
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, registry *session.Registry, pool reward.Pool, sessionSecret string) (*Handler, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		service:  s,
		logger:   logger,
		pool:     pool,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		pages:    p,
	}
	h.sessions = middleware.NewSessionMiddleware(sessionSecret, registry, h.initSession)

	return h, nil
}

// initSession восстанавливает сохранённого пользователя и загружает таблицы лидеров
// для только что созданной сессии.
func (h *Handler) initSession(r *http.Request, sess *session.Session) {
	_ = h.service.RestoreUser(r.Context(), sess)
	_ = h.service.LoadWinners(r.Context(), sess)
}

type viewResponse struct {
	State      session.State   `json:"state"`
	Loading    bool            `json:"loading"`
	RewardPool decimal.Decimal `json:"rewardPool"`
	Alerts     []alert.Alert   `json:"alerts"`
}

func (h *Handler) view(ctx context.Context, sess *session.Session, drain bool) viewResponse {
	resp := viewResponse{
		State:      sess.Store.Snapshot(),
		Loading:    sess.Loading.Active(),
		RewardPool: h.rewardPool(ctx),
		Alerts:     []alert.Alert{},
	}
	if drain {
		if alerts := sess.Alerts.Drain(); alerts != nil {
			resp.Alerts = alerts
		}
	}
	return resp
}

func (h *Handler) rewardPool(ctx context.Context) decimal.Decimal {
	if h.pool == nil {
		return decimal.Zero
	}
	balance, err := h.pool.Balance(ctx)
	if err != nil {
		h.logger.Warn("reward pool balance error", zap.Error(err))
		return decimal.Zero
	}
	return balance
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return sess, true
}

// GetSession возвращает состояние сессии без очистки очереди уведомлений.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, h.view(r.Context(), sess, false))
}

// GetAlerts возвращает и очищает накопленные уведомления сессии.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	alerts := sess.Alerts.Drain()
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	h.writeJSON(w, alerts)
}

type connectRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required"`
}

// Connect загружает данные пользователя подключённого кошелька.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil || !validation.IsValidWalletAddress(req.WalletAddress) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	_ = h.service.FetchUserData(r.Context(), sess, req.WalletAddress)

	h.writeJSON(w, h.view(r.Context(), sess, true))
}

// Register регистрирует пользователя подключённого кошелька.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	req.TelegramUsername = validation.NormalizeHandle(req.TelegramUsername)
	req.TwitterUsername = validation.NormalizeHandle(req.TwitterUsername)

	if err := h.validate.Struct(req); err != nil || !validation.IsValidWalletAddress(req.WalletAddress) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	_ = h.service.RegisterUser(r.Context(), sess, req)

	h.writeJSON(w, h.view(r.Context(), sess, true))
}

type balanceRequest struct {
	Balance *float64 `json:"balance" validate:"required,gte=0"`
}

// UpdateBalance обновляет баланс текущего пользователя.
func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// id 0 означает, что пользователь не подключён или запись без id_wallet_address.
	var id int64
	if u, ok := sess.Store.CurrentUser(); ok {
		id = u.IDWalletAddress
	}

	_ = h.service.UpdateBalance(r.Context(), sess, id, *req.Balance)

	h.writeJSON(w, h.view(r.Context(), sess, true))
}

// RefreshWinners перезагружает таблицы лидеров сессии.
func (h *Handler) RefreshWinners(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	_ = h.service.FetchWinners(r.Context(), sess)

	h.writeJSON(w, h.view(r.Context(), sess, true))
}

// Home отображает главную страницу: о нас, дорожную карту и таблицу лидеров.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	v := h.view(r.Context(), sess, true)

	page, err := h.pages.renderHome(v)
	if err != nil {
		h.logger.Error("render home error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// Ping отвечает на проверку доступности.
func (h *Handler) Ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("pong"))
}
