// Package service синхронизирует состояние сессии с бэкендом сайта наград.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mmeshcher/rewards-site/internal/alert"
	"github.com/mmeshcher/rewards-site/internal/model"
	"github.com/mmeshcher/rewards-site/internal/session"
	"github.com/mmeshcher/rewards-site/internal/site"
	"github.com/mmeshcher/rewards-site/internal/storage"
)

// ErrNoCurrentUser возвращается при попытке обновить баланс без подключённого пользователя
// или для записи без id_wallet_address.
var ErrNoCurrentUser = errors.New("no current user")

// winnersMaxAge ограничивает возраст общего снимка таблиц лидеров, которым
// заполняются новые сессии.
const winnersMaxAge = time.Minute

// SiteClient описывает контракт клиента бэкенда, используемый сервисом.
type SiteClient interface {
	GetUserdata(ctx context.Context, walletAddress string) (*model.User, error)
	RegisterUser(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	GetWinners(ctx context.Context) (*model.Winners, error)
	UpdateBalance(ctx context.Context, idWalletAddress int64, balance float64) error
}

// Service выполняет удалённые операции и переводит их результат в изменения состояния
// сессии и уведомления пользователя.
type Service struct {
	client SiteClient
	store  storage.Store
	logger *zap.Logger

	flight    singleflight.Group
	mu        sync.RWMutex
	winners   *model.Winners
	fetchedAt time.Time
	now       func() time.Time
}

// NewService создаёт сервис с указанным клиентом бэкенда и хранилищем записи пользователя.
func NewService(client SiteClient, store storage.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// FetchUserData загружает данные пользователя по адресу кошелька и заменяет ими текущего пользователя.
func (s *Service) FetchUserData(ctx context.Context, sess *session.Session, walletAddress string) error {
	sess.Loading.Open()
	defer sess.Loading.Close()

	u, err := s.client.GetUserdata(ctx, walletAddress)
	if err != nil {
		if site.KindOf(err) == site.KindNotFound {
			notify(sess, alert.SeverityInfo, alert.MessageUserNotRegistered)
		} else {
			s.logger.Error("fetch userdata error", zap.Error(err), zap.String("wallet", walletAddress))
			notify(sess, alert.SeverityError, alert.MessageServerError)
		}
		return err
	}

	s.setCurrentUser(ctx, sess, u)
	return nil
}

// RegisterUser регистрирует пользователя и делает его текущим.
func (s *Service) RegisterUser(ctx context.Context, sess *session.Session, req model.RegisterRequest) error {
	sess.Loading.Open()
	defer sess.Loading.Close()

	u, err := s.client.RegisterUser(ctx, req)
	if err != nil {
		if site.KindOf(err) == site.KindConflict {
			notify(sess, alert.SeverityWarning, alert.MessageUserAlreadyExisted)
		} else {
			s.logger.Error("register user error", zap.Error(err), zap.String("wallet", req.WalletAddress))
			notify(sess, alert.SeverityError, alert.MessageServerError)
		}
		return err
	}

	s.setCurrentUser(ctx, sess, u)
	notify(sess, alert.SeveritySuccess, alert.MessageUserRegisterSuccess)
	return nil
}

// FetchWinners загружает таблицы лидеров текущей и прошлой недели.
// Уведомление показывается только при ответе 404, остальные ошибки лишь возвращаются.
func (s *Service) FetchWinners(ctx context.Context, sess *session.Session) error {
	winners, err := s.client.GetWinners(ctx)
	if err != nil {
		s.winnersFailed(sess, err)
		return err
	}

	s.rememberWinners(winners)
	applyWinners(sess, winners)
	return nil
}

// LoadWinners заполняет таблицы лидеров новой сессии. Пока общий снимок свежее
// winnersMaxAge, бэкенд не вызывается; одновременные промахи делят один запрос.
func (s *Service) LoadWinners(ctx context.Context, sess *session.Session) error {
	if winners, ok := s.cachedWinners(); ok {
		applyWinners(sess, winners)
		return nil
	}

	v, err, _ := s.flight.Do("winners", func() (any, error) {
		winners, err := s.client.GetWinners(ctx)
		if err != nil {
			return nil, err
		}
		s.rememberWinners(winners)
		return winners, nil
	})
	if err != nil {
		s.winnersFailed(sess, err)
		return err
	}

	applyWinners(sess, v.(*model.Winners))
	return nil
}

func (s *Service) winnersFailed(sess *session.Session, err error) {
	if site.KindOf(err) == site.KindNotFound {
		notify(sess, alert.SeverityError, alert.MessageServerError)
		return
	}
	s.logger.Debug("fetch winners error", zap.Error(err))
}

func (s *Service) rememberWinners(winners *model.Winners) {
	s.mu.Lock()
	s.winners = winners
	s.fetchedAt = s.now()
	s.mu.Unlock()
}

func (s *Service) cachedWinners() (*model.Winners, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.winners == nil || s.now().Sub(s.fetchedAt) > winnersMaxAge {
		return nil, false
	}
	return s.winners, true
}

// UpdateBalance сохраняет новый баланс на бэкенде и только после подтверждения
// обновляет баланс текущего пользователя.
func (s *Service) UpdateBalance(ctx context.Context, sess *session.Session, idWalletAddress int64, balance float64) error {
	if _, ok := sess.Store.CurrentUser(); !ok || idWalletAddress == 0 {
		notify(sess, alert.SeverityError, alert.MessageServerError)
		return ErrNoCurrentUser
	}

	if err := s.client.UpdateBalance(ctx, idWalletAddress, balance); err != nil {
		s.logger.Error("update balance error", zap.Error(err), zap.Int64("idWalletAddress", idWalletAddress))
		notify(sess, alert.SeverityError, alert.MessageServerError)
		return err
	}

	current, ok := sess.Store.CurrentUser()
	if !ok {
		notify(sess, alert.SeverityError, alert.MessageServerError)
		return ErrNoCurrentUser
	}

	updated := current.WithBalance(balance)
	s.setCurrentUser(ctx, sess, &updated)
	return nil
}

// RestoreUser загружает сохранённую запись пользователя в состояние сессии.
// Возвращает storage.ErrNotFound, если запись отсутствует.
func (s *Service) RestoreUser(ctx context.Context, sess *session.Session) error {
	if s.store == nil {
		return storage.ErrNotFound
	}

	u, err := s.store.Load(ctx, sess.StorageKey())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("restore userdata error", zap.Error(err), zap.String("session", sess.ID))
		}
		return err
	}

	sess.Store.Dispatch(session.SetCurrentUser(u))
	return nil
}

// StartWinnersRefresh запускает фоновое обновление таблиц лидеров всех активных сессий
// и общего снимка для новых сессий.
func (s *Service) StartWinnersRefresh(ctx context.Context, registry *session.Registry, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refreshWinners(ctx, registry)
			}
		}
	}()
}

func (s *Service) refreshWinners(ctx context.Context, registry *session.Registry) {
	sessions := registry.All()
	if len(sessions) == 0 {
		return
	}

	winners, err := s.client.GetWinners(ctx)
	if err != nil {
		s.logger.Warn("refresh winners error", zap.Error(err))
		return
	}
	s.rememberWinners(winners)

	for _, sess := range sessions {
		applyWinners(sess, winners)
	}
}

func (s *Service) setCurrentUser(ctx context.Context, sess *session.Session, u *model.User) {
	sess.Store.Dispatch(session.SetCurrentUser(u))

	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, sess.StorageKey(), u); err != nil {
		s.logger.Warn("persist userdata error", zap.Error(err), zap.String("session", sess.ID))
	}
}

func applyWinners(sess *session.Session, winners *model.Winners) {
	sess.Store.Dispatch(session.SetWinnersThisWeek(orEmpty(winners.ThisWeek)))
	sess.Store.Dispatch(session.SetWinnersLastWeek(orEmpty(winners.LastWeek)))
}

func orEmpty(ws []model.Winner) []model.Winner {
	if ws == nil {
		return []model.Winner{}
	}
	return ws
}

func notify(sess *session.Session, severity alert.Severity, message string) {
	sess.Notifier.Notify(alert.Alert{Severity: severity, Message: message})
}
