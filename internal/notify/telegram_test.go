package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func TestNotifyCourier(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.Text == "new delivery"
	})).Return(nil).Once()

	n := NewTelegramWithSender(sender, zap.NewNop())
	assert.NoError(t, n.NotifyCourier(context.Background(), 42, "new delivery"))
	sender.AssertExpectations(t)
}

func TestNotifyCourier_SendError(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything).Return(errors.New("blocked"))

	n := NewTelegramWithSender(sender, zap.NewNop())
	err := n.NotifyCourier(context.Background(), 7, "x")
	assert.ErrorContains(t, err, "blocked")
}

func TestNotifyCourier_WithoutToken(t *testing.T) {
	n, err := NewTelegram("", zap.NewNop())
	assert.NoError(t, err)
	assert.NoError(t, n.NotifyCourier(context.Background(), 1, "x"))
}
