package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-site/internal/alert"
	"github.com/mmeshcher/rewards-site/internal/model"
	"github.com/mmeshcher/rewards-site/internal/reward"
	"github.com/mmeshcher/rewards-site/internal/service"
	"github.com/mmeshcher/rewards-site/internal/session"
	"github.com/mmeshcher/rewards-site/internal/site"
	"github.com/mmeshcher/rewards-site/internal/storage"
)

const testWallet = "0x52908400098527886e0f7030069857d2e4169ee7"

type stubService struct {
	restoreCalls int
	winnersCalls int
	winners      *model.Winners

	fetchedWallet string
	fetchedUser   *model.User
	fetchAlert    *alert.Alert

	registered model.RegisterRequest

	balanceID    int64
	balanceValue float64
}

func (s *stubService) FetchUserData(ctx context.Context, sess *session.Session, walletAddress string) error {
	s.fetchedWallet = walletAddress
	if s.fetchAlert != nil {
		sess.Notifier.Notify(*s.fetchAlert)
	}
	if s.fetchedUser != nil {
		sess.Store.Dispatch(session.SetCurrentUser(s.fetchedUser))
	}
	return nil
}

func (s *stubService) RegisterUser(ctx context.Context, sess *session.Session, req model.RegisterRequest) error {
	s.registered = req
	return nil
}

func (s *stubService) FetchWinners(ctx context.Context, sess *session.Session) error {
	s.winnersCalls++
	if s.winners != nil {
		sess.Store.Dispatch(session.SetWinnersThisWeek(s.winners.ThisWeek))
		sess.Store.Dispatch(session.SetWinnersLastWeek(s.winners.LastWeek))
	}
	return nil
}

func (s *stubService) LoadWinners(ctx context.Context, sess *session.Session) error {
	return s.FetchWinners(ctx, sess)
}

func (s *stubService) UpdateBalance(ctx context.Context, sess *session.Session, idWalletAddress int64, balance float64) error {
	s.balanceID = idWalletAddress
	s.balanceValue = balance
	return nil
}

func (s *stubService) RestoreUser(ctx context.Context, sess *session.Session) error {
	s.restoreCalls++
	return nil
}

type testEnv struct {
	h       *Handler
	router  http.Handler
	cookies []*http.Cookie
}

func newTestEnv(t *testing.T, svc Service) *testEnv {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	registry := session.NewRegistry(time.Hour, nil)
	h, err := NewHandler(svc, logger, registry, reward.NewStatic(decimal.RequireFromString("1.5")), "test-secret")
	require.NoError(t, err)

	return &testEnv{h: h, router: h.SetupRouter()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for _, c := range e.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	res := rec.Result()
	t.Cleanup(func() { res.Body.Close() })
	if cookies := res.Cookies(); len(cookies) > 0 {
		e.cookies = cookies
	}
	return res
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func decodeView(t *testing.T, res *http.Response) viewResponse {
	t.Helper()
	var v viewResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func TestHome_EmptyLeaderboard(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	res := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := readBody(t, res)

	assert.Contains(t, body, "Reward Pool: <span>1.5 BNB</span>")
	assert.Equal(t, 2, strings.Count(body, noWinners))
	assert.NotContains(t, body, "<tbody>")
	assert.Contains(t, body, "<strong>play-to-earn</strong>")
	assert.Contains(t, body, "Wallet is not connected")

	env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, 1, svc.restoreCalls, "session must be initialised once")
	assert.Equal(t, 1, svc.winnersCalls)
}

func TestHome_RendersWinners(t *testing.T) {
	svc := &stubService{
		winners: &model.Winners{
			ThisWeek: []model.Winner{{Rank: 1, WalletAddress: "0xWIN", TelegramUsername: "tg", CompletedLevel: 4, Reward: decimal.RequireFromString("0.25")}},
			LastWeek: []model.Winner{},
		},
	}
	env := newTestEnv(t, svc)

	body := readBody(t, env.do(t, http.MethodGet, "/", ""))

	assert.Equal(t, 1, strings.Count(body, "<tbody>"))
	assert.Equal(t, 1, strings.Count(body, noWinners))
	assert.Contains(t, body, "<td>0xWIN</td>")
	assert.Contains(t, body, "<td>0.25</td>")
}

func TestConnect(t *testing.T) {
	svc := &stubService{
		fetchedUser: &model.User{WalletAddress: testWallet, Balance: 10},
		fetchAlert:  &alert.Alert{Severity: alert.SeverityInfo, Message: alert.MessageUserNotRegistered},
	}
	env := newTestEnv(t, svc)

	res := env.do(t, http.MethodPost, "/api/session/connect", `{"walletAddress":"`+testWallet+`"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	v := decodeView(t, res)
	assert.Equal(t, testWallet, svc.fetchedWallet)
	require.NotNil(t, v.State.CurrentUser)
	assert.Equal(t, float64(10), v.State.CurrentUser.Balance)
	assert.Len(t, v.Alerts, 1)

	alerts := readBody(t, env.do(t, http.MethodGet, "/api/alerts", ""))
	assert.JSONEq(t, `[]`, alerts)
}

func TestConnect_InvalidWallet(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	for _, body := range []string{`{"walletAddress":"0xABC"}`, `{}`, `not json`} {
		res := env.do(t, http.MethodPost, "/api/session/connect", body)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
	}
	assert.Empty(t, svc.fetchedWallet)
}

func TestRegister_NormalizesHandles(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	payload, _ := json.Marshal(model.RegisterRequest{
		WalletAddress:    testWallet,
		TelegramUsername: "@alice",
		TwitterUsername:  " bob ",
	})

	res := env.do(t, http.MethodPost, "/api/session/register", string(payload))
	require.Equal(t, http.StatusOK, res.StatusCode)

	assert.Equal(t, model.RegisterRequest{WalletAddress: testWallet, TelegramUsername: "alice", TwitterUsername: "bob"}, svc.registered)
}

func TestUpdateBalance_UsesCurrentUserID(t *testing.T) {
	svc := &stubService{fetchedUser: &model.User{IDWalletAddress: 5, WalletAddress: testWallet}}
	env := newTestEnv(t, svc)

	env.do(t, http.MethodPost, "/api/session/connect", `{"walletAddress":"`+testWallet+`"}`)

	res := env.do(t, http.MethodPut, "/api/session/balance", `{"balance":42}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int64(5), svc.balanceID)
	assert.Equal(t, float64(42), svc.balanceValue)

	res = env.do(t, http.MethodPut, "/api/session/balance", `{"balance":-1}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.do(t, http.MethodPut, "/api/session/balance", `{}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetSession_JSONResponse(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	res := env.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	v := decodeView(t, res)
	assert.Nil(t, v.State.CurrentUser)
	assert.NotNil(t, v.State.WinnersThisWeek)
	assert.True(t, decimal.RequireFromString("1.5").Equal(v.RewardPool))
}

func TestRefreshWinners(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	res := env.do(t, http.MethodPost, "/api/winners/refresh", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 2, svc.winnersCalls, "one load on session creation and one refresh")
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	res := env.do(t, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "pong", readBody(t, res))
	assert.Empty(t, env.cookies, "ping must not create a session")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	res := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = env.do(t, http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestGzipResponse(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/session", bytes.NewReader(nil))
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Result().Header.Get("Content-Encoding"))
}

type fakeBackend struct {
	server       *httptest.Server
	winnersCalls atomic.Int64
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /site/getUserdata/{wallet}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.User{IDWalletAddress: 7, WalletAddress: r.PathValue("wallet"), Balance: 12})
	})
	mux.HandleFunc("GET /site/getWinners", func(w http.ResponseWriter, r *http.Request) {
		b.winnersCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"winnersOfThisWeek":[{"rank":1,"walletAddress":"0xWIN","reward":"0.5"}],"winnersOfLastWeek":[]}`))
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// newServiceEnv собирает обработчик с настоящим сервисом поверх store.
func newServiceEnv(t *testing.T, backend *fakeBackend, store storage.Store) *testEnv {
	t.Helper()

	svc := service.NewService(site.NewClient(backend.server.URL), store, zap.NewNop())
	h, err := NewHandler(svc, zap.NewNop(), session.NewRegistry(time.Hour, nil), reward.NewStatic(decimal.Zero), "test-secret")
	require.NoError(t, err)

	return &testEnv{h: h, router: h.SetupRouter()}
}

func TestSession_RestoredAfterRestart(t *testing.T) {
	backend := newFakeBackend(t)
	store := storage.NewMemoryStore()

	env := newServiceEnv(t, backend, store)
	res := env.do(t, http.MethodPost, "/api/session/connect", `{"walletAddress":"`+testWallet+`"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, env.cookies)

	restarted := newServiceEnv(t, backend, store)
	restarted.cookies = env.cookies

	v := decodeView(t, restarted.do(t, http.MethodGet, "/api/session", ""))
	require.NotNil(t, v.State.CurrentUser, "persisted user must be restored after restart")
	assert.Equal(t, testWallet, v.State.CurrentUser.WalletAddress)
	assert.Equal(t, int64(7), v.State.CurrentUser.IDWalletAddress)
	assert.Len(t, v.State.WinnersThisWeek, 1)
	assert.Equal(t, env.cookies[0].Value, restarted.cookies[0].Value, "cookie must not be reissued")
}

func TestSession_CookielessRequestsShareWinners(t *testing.T) {
	backend := newFakeBackend(t)
	env := newServiceEnv(t, backend, storage.NewMemoryStore())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var v viewResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
		assert.Len(t, v.State.WinnersThisWeek, 1)
	}

	assert.Equal(t, int64(1), backend.winnersCalls.Load())
}
