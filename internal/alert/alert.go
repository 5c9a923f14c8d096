// Package alert реализует канал уведомлений пользователя об итогах операций.
package alert

import (
	"sync"

	"go.uber.org/zap"
)

// Severity задаёт уровень уведомления.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Тексты уведомлений.
const (
	MessageUserNotRegistered   = "You are not registered yet. Please register."
	MessageUserRegisterSuccess = "Registration is completed."
	MessageUserAlreadyExisted  = "This user already exists."
	MessageServerError         = "Server error. Please try again later."
)

// Alert описывает одно уведомление.
type Alert struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Notifier принимает уведомления для показа пользователю.
type Notifier interface {
	Notify(a Alert)
}

// Recorder накапливает уведомления до тех пор, пока их не заберёт представление.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

// NewRecorder создаёт пустой Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify добавляет уведомление в очередь.
func (r *Recorder) Notify(a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

// Drain возвращает накопленные уведомления и очищает очередь.
func (r *Recorder) Drain() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.alerts
	r.alerts = nil
	return res
}

// Pending возвращает копию очереди без её очистки.
func (r *Recorder) Pending() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Alert, len(r.alerts))
	copy(res, r.alerts)
	return res
}

// LogNotifier пишет уведомления в журнал.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт уведомитель поверх zap.Logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify записывает уведомление с уровнем, соответствующим Severity.
func (n *LogNotifier) Notify(a Alert) {
	fields := []zap.Field{zap.String("severity", string(a.Severity)), zap.String("message", a.Message)}
	switch a.Severity {
	case SeverityError:
		n.logger.Error("alert", fields...)
	case SeverityWarning:
		n.logger.Warn("alert", fields...)
	default:
		n.logger.Info("alert", fields...)
	}
}

// Multi рассылает уведомление всем вложенным получателям.
type Multi []Notifier

// Notify передаёт уведомление каждому получателю по порядку.
func (m Multi) Notify(a Alert) {
	for _, n := range m {
		if n != nil {
			n.Notify(a)
		}
	}
}
