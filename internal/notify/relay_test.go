package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/publisher/memory"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n harvest.Notification) (harvest.NotificationResponse, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(harvest.NotificationResponse), args.Error(1) //nolint:wrapcheck
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("bus down")
}

func TestRelayMirrorsNotifications(t *testing.T) {
	t.Parallel()

	note := harvest.Notification{CompanyName: "Acme", Link: "https://cdn.test/ar.pdf", Emails: []string{"a@b.co"}}
	primary := &mockNotifier{}
	primary.On("Notify", mock.Anything, note).Return(harvest.NotificationResponse{Message: "ok"}, nil)
	mirror := memory.New()

	r := NewRelay(primary, nil, nil, failingPublisher{}, mirror)
	resp, err := r.Notify(context.Background(), note)

	require.NoError(t, err)
	require.Equal(t, "ok", resp.Message)
	msgs := mirror.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, EventCompanyNotified, msgs[0].Event)
	require.Equal(t, note, msgs[0].Payload)
	primary.AssertExpectations(t)
}

func TestRelayReturnsPrimaryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("timeout")
	primary := &mockNotifier{}
	primary.On("Notify", mock.Anything, mock.Anything).Return(harvest.NotificationResponse{}, boom)
	mirror := memory.New()

	_, err := NewRelay(primary, nil, mirror).Notify(context.Background(), harvest.Notification{CompanyName: "Acme"})

	require.ErrorIs(t, err, boom)
	require.Len(t, mirror.Messages(), 1)
}
