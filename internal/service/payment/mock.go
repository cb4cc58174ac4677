package payment

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// MockService — конфигурируемая заглушка PaymentService для тестов.
// Безопасна для конкурентных вызовов.
type MockService struct {
	mu sync.Mutex

	CaptureErr       error
	CaptureRef       string
	CaptureReceipt   string
	ConnectErr       error
	ConnectedAccount string

	captureCalls []CaptureCall
	connectCalls int
}

// CaptureCall фиксирует аргументы одного списания.
type CaptureCall struct {
	AmountMinor int64
	Currency    string
	Source      string
	AccountID   string
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		CaptureRef:       "ch_mock_1",
		CaptureReceipt:   "https://receipts.example.com/ch_mock_1",
		ConnectedAccount: "acct_mock_1",
	}
}

// Capture возвращает заранее настроенный результат и запоминает аргументы вызова.
func (m *MockService) Capture(amountMinor int64, currency, source, accountID string) (domain.PaymentCapture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.captureCalls = append(m.captureCalls, CaptureCall{
		AmountMinor: amountMinor,
		Currency:    currency,
		Source:      source,
		AccountID:   accountID,
	})
	if m.CaptureErr != nil {
		return domain.PaymentCapture{}, m.CaptureErr
	}

	ref := m.CaptureRef
	if len(m.captureCalls) > 1 {
		ref = fmt.Sprintf("%s_%d", m.CaptureRef, len(m.captureCalls))
	}
	return domain.PaymentCapture{Ref: ref, ReceiptURL: m.CaptureReceipt}, nil
}

// ConnectAccount возвращает настроенный суб-аккаунт и считает вызовы.
func (m *MockService) ConnectAccount(code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connectCalls++
	if m.ConnectErr != nil {
		return "", m.ConnectErr
	}
	return m.ConnectedAccount, nil
}

// CaptureCalls возвращает копию зафиксированных списаний.
func (m *MockService) CaptureCalls() []CaptureCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CaptureCall(nil), m.captureCalls...)
}

// ConnectCalls возвращает число вызовов ConnectAccount.
func (m *MockService) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCalls
}

var _ domain.PaymentService = (*MockService)(nil)
