package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// Тексты приветственного письма.
const (
	WelcomeSubject = "Welcome to LocoLoco"
	WelcomeBody    = "Thanks for registering your restaurant with LocoLoco. You can start taking orders right away."
)

// LogNotifier пишет письма в лог вместо отправки. Используется в локальной
// разработке, когда почтовый провайдер не настроен.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт Notifier, пишущий письма в лог.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

// SendWelcome логирует приветственное письмо.
func (n *LogNotifier) SendWelcome(email string) error {
	n.logger.WithFields(log.Fields{
		"to":      email,
		"subject": WelcomeSubject,
	}).Info("welcome email sent")
	return nil
}

// MockNotifier запоминает адресатов для проверок в тестах.
type MockNotifier struct {
	mu      sync.Mutex
	SendErr error
	sent    []string
}

// NewMockNotifier возвращает mock с успешной отправкой по умолчанию.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SendWelcome запоминает адресата и возвращает настроенную ошибку.
func (n *MockNotifier) SendWelcome(email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.SendErr != nil {
		return n.SendErr
	}
	n.sent = append(n.sent, email)
	return nil
}

// Sent возвращает копию списка адресатов.
func (n *MockNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (*MockNotifier)(nil)
)
