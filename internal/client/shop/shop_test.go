package shop

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/internal/client/notifier"
	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/storage/memory"
	"github.com/iudanet/petalsync/internal/models"
)

var created = time.Date(2026, 2, 13, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	kv       *memory.Storage
	adapter  *storage.Adapter
	service  *Service
	messages int
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{kv: memory.New(), clock: created.Add(3 * time.Hour)}
	f.adapter = storage.NewAdapter(f.kv, testLogger())

	bus := notifier.NewBus(testLogger())
	bus.Subscribe(notifier.EventMessageUpdated, func(notifier.Event) { f.messages++ })

	f.service = NewService(f.adapter, bus, testLogger())
	f.service.now = func() time.Time { return f.clock }

	require.NoError(t, storage.SaveList(ctx, f.adapter, models.KeyOrders, []models.Order{
		{ID: "o1", Kind: models.KindOrder, CreatedAt: created, DeliveryMethod: models.DeliveryPickup, PaymentMethod: models.PaymentEWallet},
		{ID: "o2", Kind: models.KindOrder, CreatedAt: created, PaymentMethod: models.PaymentCashOnDelivery, Status: models.StatusPending},
	}))
	require.NoError(t, storage.SaveList(ctx, f.adapter, models.KeyRequests, []models.Order{
		{ID: "b1", Kind: models.KindBooking, CreatedAt: created},
	}))
	return f
}

func TestOrders_DerivedStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orders := f.service.Orders(ctx)
	require.Len(t, orders, 2)
	assert.Equal(t, models.StatusProcessing, orders[0].DisplayStatus)
	assert.Equal(t, models.PaymentWaitingForConfirmation, orders[0].DisplayPaymentStatus)
	assert.Equal(t, models.StatusProcessing, orders[1].DisplayStatus)

	f.clock = created.Add(10 * time.Hour)
	requests := f.service.Requests(ctx)
	require.Len(t, requests, 1)
	assert.Equal(t, models.StatusPending, requests[0].DisplayStatus)

	view, err := f.service.Order(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyForPickup, view.DisplayStatus)

	_, err = f.service.Order(ctx, "nope")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrders_MalformedStoreYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, "orders", []byte(`{"broken":true}`)))

	s := NewService(storage.NewAdapter(kv, testLogger()), nil, testLogger())
	assert.Empty(t, s.Orders(ctx))
	assert.Empty(t, s.Notifications(ctx, false))
}

func TestAcceptDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.service.Accept(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, view.DisplayStatus)

	view, err = f.service.Decline(ctx, "o1", "out of peonies")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, view.DisplayStatus)
	assert.Equal(t, "out of peonies", view.Notes)

	requests := storage.LoadList[models.Order](ctx, f.adapter, models.KeyRequests)
	assert.Equal(t, models.StatusAccepted, requests[0].Status)
	assert.Equal(t, f.clock, requests[0].UpdatedAt)

	feed := f.service.Notifications(ctx, true)
	require.Len(t, feed, 2)
	types := []models.NotificationType{feed[0].Type, feed[1].Type}
	assert.ElementsMatch(t, []models.NotificationType{models.NotificationOrderAccepted, models.NotificationOrderDeclined}, types)

	_, err = f.service.Accept(ctx, "ghost")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// изменения помечены для отправки
	meta, err := f.kv.GetRecordMeta(ctx, "requests")
	require.NoError(t, err)
	assert.True(t, meta.Dirty())
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.service.SetStatus(ctx, "o2", models.StatusToReceive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusToReceive, view.DisplayStatus)

	_, err = f.service.SetStatus(ctx, "o2", models.OrderStatus("lost"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	raw, err := f.kv.Get(ctx, "orders")
	require.NoError(t, err)
	assert.NoError(t, models.ValidateRecord(models.KeyOrders, raw))
}

func TestMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SendMessage(ctx, "o1", models.SenderUser, "Can you add a ribbon?")
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)
	reply, err := f.service.SendMessage(ctx, "o1", models.SenderAdmin, "  Sure!  ")
	require.NoError(t, err)
	assert.Equal(t, "Sure!", reply.Body)
	assert.True(t, reply.ReadByAdmin)
	assert.False(t, reply.ReadByUser)

	_, err = f.service.SendMessage(ctx, "o2", models.SenderUser, "other thread")
	require.NoError(t, err)

	thread := f.service.Thread(ctx, "o1")
	require.Len(t, thread, 2)
	assert.Equal(t, models.SenderUser, thread[0].Sender)
	assert.Equal(t, models.SenderAdmin, thread[1].Sender)

	changed, err := f.service.MarkThreadRead(ctx, "o1", models.SenderAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	changed, err = f.service.MarkThreadRead(ctx, "o1", models.SenderAdmin)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	assert.Equal(t, 4, f.messages)

	_, err = f.service.SendMessage(ctx, "o1", models.SenderUser, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = f.service.SendMessage(ctx, "ghost", models.SenderUser, "hi")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.service.SendMessage(ctx, "o1", models.Sender("bot"), "hi")
	assert.Error(t, err)
}

func TestNotifications_MarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	long := strings.Repeat("роза ", 40)
	_, err := f.service.SendMessage(ctx, "o1", models.SenderUser, long)
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)
	_, err = f.service.Accept(ctx, "o1")
	require.NoError(t, err)

	feed := f.service.Notifications(ctx, false)
	require.Len(t, feed, 2)
	assert.Equal(t, models.NotificationOrderAccepted, feed[0].Type, "newest first")
	assert.True(t, strings.HasSuffix(feed[1].Body, "..."))

	require.NoError(t, f.service.MarkNotificationRead(ctx, feed[0].ID))
	assert.Len(t, f.service.Notifications(ctx, true), 1)

	assert.ErrorIs(t, f.service.MarkNotificationRead(ctx, "missing"), ErrNotificationNotFound)

	require.NoError(t, f.service.MarkNotificationRead(ctx, ""))
	assert.Empty(t, f.service.Notifications(ctx, true))
}
