// Package site предоставляет клиент REST API бэкенда сайта наград.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/mmeshcher/rewards-site/internal/model"
)

var (
	// ErrNotFound возвращается, если бэкенд ответил 404.
	ErrNotFound = errors.New("not found")
	// ErrConflict возвращается, если пользователь с таким кошельком уже зарегистрирован.
	ErrConflict = errors.New("already exists")
	// ErrNotConfigured возвращается при обращении к клиенту без адреса бэкенда.
	ErrNotConfigured = errors.New("site client not configured")
)

// StatusError описывает неожиданный код ответа бэкенда.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// ErrorKind классифицирует ошибки обращения к бэкенду.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "generic"
	}
}

// KindOf возвращает класс ошибки. Сетевые ошибки и любые неожиданные ответы относятся к KindGeneric.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindGeneric
	}
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом сайта.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт HTTP-клиент для обращения к бэкенду по указанному адресу.
func NewClient(baseURL string) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = 5 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// GetUserdata запрашивает данные пользователя по адресу кошелька.
func (c *Client) GetUserdata(ctx context.Context, walletAddress string) (*model.User, error) {
	var u model.User
	path := "/site/getUserdata/" + url.PathEscape(walletAddress)
	if err := c.do(ctx, http.MethodGet, path, nil, &u, map[int]error{http.StatusNotFound: ErrNotFound}); err != nil {
		return nil, err
	}
	return &u, nil
}

// RegisterUser регистрирует нового пользователя и возвращает созданную запись.
func (c *Client) RegisterUser(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPost, "/site/registerUser", req, &u, map[int]error{http.StatusBadRequest: ErrConflict}); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetWinners запрашивает победителей текущей и прошлой недели.
func (c *Client) GetWinners(ctx context.Context) (*model.Winners, error) {
	var w model.Winners
	if err := c.do(ctx, http.MethodGet, "/site/getWinners", nil, &w, map[int]error{http.StatusNotFound: ErrNotFound}); err != nil {
		return nil, err
	}
	return &w, nil
}

type balanceRequest struct {
	Balance float64 `json:"balance"`
}

// UpdateBalance сохраняет новый баланс пользователя. Тело ответа игнорируется.
func (c *Client) UpdateBalance(ctx context.Context, idWalletAddress int64, balance float64) error {
	path := "/site/updateBalance/" + strconv.FormatInt(idWalletAddress, 10)
	return c.do(ctx, http.MethodPut, path, balanceRequest{Balance: balance}, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, known map[int]error) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		if mapped, ok := known[resp.StatusCode]; ok {
			return mapped
		}
		return &StatusError{Code: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
