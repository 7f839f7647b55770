package sender

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flow-builder/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Session, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Session), args.Error(1)
}

func (m *MockTransport) From() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

// bufferWriter собирает тело письма.
type bufferWriter struct {
	strings.Builder
	closed bool
}

func (w *bufferWriter) Close() error {
	w.closed = true
	return nil
}

type metricsStub struct{ outcomes []string }

func (m *metricsStub) RecordNotification(kind, outcome string) {
	m.outcomes = append(m.outcomes, kind+":"+outcome)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func expectDelivery(transport *MockTransport, to string, w *bufferWriter) *MockSMTPClient {
	mockClient := new(MockSMTPClient)
	transport.On("From").Return("noreply@flows.example.com")
	transport.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "noreply@flows.example.com").Return(nil).Once()
	mockClient.On("Rcpt", to).Return(nil).Once()
	mockClient.On("Data").Return(w, nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()
	return mockClient
}

func TestSenderService_SendBillingNotification(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSubject string
		wantLink    string
	}{
		{
			name:        "welcome",
			body:        `{"kind":"welcome","user_id":"u1","email":"a@example.com","event_id":"evt_1"}`,
			wantSubject: "Subject: Welcome to Flow Builder Premium",
			wantLink:    "https://app.example.com/flows",
		},
		{
			name:        "cancellation",
			body:        `{"kind":"cancellation","user_id":"u1","email":"a@example.com"}`,
			wantSubject: "Subject: Your Flow Builder subscription has ended",
			wantLink:    "https://app.example.com/pricing",
		},
		{
			name:        "payment failed",
			body:        `{"kind":"payment_failed","user_id":"u1","email":"a@example.com"}`,
			wantSubject: "Subject: Payment for Flow Builder failed",
			wantLink:    "https://app.example.com/settings/billing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			w := &bufferWriter{}
			client := expectDelivery(transport, "a@example.com", w)
			m := &metricsStub{}
			service := NewSenderService(transport, m, "https://app.example.com", newNoopLogger())

			err := service.SendBillingNotification([]byte(tt.body))
			require.NoError(t, err)

			assert.True(t, w.closed)
			assert.Contains(t, w.String(), "To: a@example.com")
			assert.Contains(t, w.String(), tt.wantSubject)
			assert.Contains(t, w.String(), tt.wantLink)
			assert.Len(t, m.outcomes, 1)
			assert.True(t, strings.HasSuffix(m.outcomes[0], ":sent"))
			transport.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestSenderService_SendBillingNotification_Dropped(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `invalid json`},
		{"no recipient", `{"kind":"welcome","user_id":"u1"}`},
		{"unknown kind", `{"kind":"newsletter","user_id":"u1","email":"a@example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := NewSenderService(transport, &metricsStub{}, "https://app.example.com", newNoopLogger())

			err := service.SendBillingNotification([]byte(tt.body))
			require.NoError(t, err)
			transport.AssertNotCalled(t, "Connect")
		})
	}
}

func TestSenderService_SendBillingNotification_SMTPError(t *testing.T) {
	transport := new(MockTransport)
	transport.On("From").Return("noreply@flows.example.com")
	transport.On("Connect").Return(nil, errors.New("connection error")).Once()
	m := &metricsStub{}
	service := NewSenderService(transport, m, "https://app.example.com", newNoopLogger())

	err := service.SendBillingNotification([]byte(`{"kind":"welcome","user_id":"u1","email":"a@example.com"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection error")
	assert.Equal(t, []string{"welcome:send_failed"}, m.outcomes)
}

func TestSenderService_SendBillingNotification_RcptRejected(t *testing.T) {
	transport := new(MockTransport)
	mockClient := new(MockSMTPClient)
	transport.On("From").Return("noreply@flows.example.com")
	transport.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "noreply@flows.example.com").Return(nil).Once()
	mockClient.On("Rcpt", "a@example.com").Return(errors.New("550 mailbox unavailable")).Once()
	mockClient.On("Close").Return(nil).Once()

	service := NewSenderService(transport, &metricsStub{}, "https://app.example.com", newNoopLogger())
	err := service.SendBillingNotification([]byte(`{"kind":"welcome","user_id":"u1","email":"a@example.com"}`))
	require.Error(t, err)
	mockClient.AssertNotCalled(t, "Data")
	mockClient.AssertExpectations(t)
}
