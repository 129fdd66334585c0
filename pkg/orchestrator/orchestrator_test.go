package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBillingClient реализует интерфейс BillingClient
type MockBillingClient struct {
	mock.Mock
}

func (m *MockBillingClient) StartPurchase(ctx context.Context, attemptID, productID string) (<-chan PurchaseEvent, error) {
	args := m.Called(ctx, attemptID, productID)
	if ch := args.Get(0); ch != nil {
		return ch.(chan PurchaseEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBillingClient) QueryPurchaseHistory(ctx context.Context) ([]HistoryEntry, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBillingClient) Acknowledge(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

// MockValidator реализует интерфейс Validator
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidateReceipt(ctx context.Context, receipt, productID, transactionID string) (*Entitlement, error) {
	args := m.Called(ctx, receipt, productID, transactionID)
	if res := args.Get(0); res != nil {
		return res.(*Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockValidator) FetchEntitlement(ctx context.Context) (*Entitlement, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func purchaseEvents(event PurchaseEvent) chan PurchaseEvent {
	ch := make(chan PurchaseEvent, 1)
	ch <- event
	return ch
}

func TestPurchase_SuccessAcknowledgesAfterValidation(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	entitlement := &Entitlement{
		ProductID:  "yearly",
		Platform:   "ios",
		ExpiryTime: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}

	validated := false
	billing.On("StartPurchase", mock.Anything, mock.Anything, "yearly").
		Return(purchaseEvents(PurchaseEvent{Receipt: "receipt-1", TransactionID: "tx-1"}), nil)
	validator.On("ValidateReceipt", mock.Anything, "receipt-1", "yearly", "tx-1").
		Run(func(_ mock.Arguments) { validated = true }).
		Return(entitlement, nil)
	billing.On("Acknowledge", mock.Anything, "tx-1").
		Run(func(_ mock.Arguments) {
			// Транзакция подтверждается только после валидации
			assert.True(t, validated, "Acknowledge must be called after validation")
		}).
		Return(nil)

	o := New(billing, validator, newNoopLogger())

	got, err := o.Purchase(context.Background(), "yearly")
	require.NoError(t, err)
	assert.Equal(t, "yearly", got.ProductID)
	assert.Equal(t, StateIdle, o.State())

	cached := o.Entitlement()
	require.NotNil(t, cached)
	assert.Equal(t, "yearly", cached.ProductID)

	billing.AssertExpectations(t)
	validator.AssertExpectations(t)
}

func TestPurchase_SecondAttemptWhileInFlight(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	// Первая покупка повисает на событии от SDK
	events := make(chan PurchaseEvent)
	billing.On("StartPurchase", mock.Anything, mock.Anything, "yearly").
		Return(events, nil).Once()

	o := New(billing, validator, newNoopLogger())

	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		_, _ = o.Purchase(context.Background(), "yearly")
	}()
	<-started
	// Ждём, пока первая попытка займёт автомат
	require.Eventually(t, func() bool {
		return o.State() == StatePurchasing
	}, time.Second, 5*time.Millisecond)

	_, err := o.Purchase(context.Background(), "monthly")
	assert.ErrorIs(t, err, ErrAlreadyInProgress)
	// SDK для второй попытки не вызывался
	billing.AssertNumberOfCalls(t, "StartPurchase", 1)

	events <- PurchaseEvent{Cancelled: true}
	wg.Wait()
}

func TestPurchase_CancelledSkipsValidator(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	billing.On("StartPurchase", mock.Anything, mock.Anything, "yearly").
		Return(purchaseEvents(PurchaseEvent{Cancelled: true}), nil)

	o := New(billing, validator, newNoopLogger())

	_, err := o.Purchase(context.Background(), "yearly")
	assert.ErrorIs(t, err, ErrUserCancelled)
	assert.Equal(t, StateIdle, o.State())
	assert.Nil(t, o.Entitlement())

	validator.AssertNotCalled(t, "ValidateReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	billing.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything)
}

func TestPurchase_ValidationFailureLeavesTransactionUnacknowledged(t *testing.T) {
	tests := []struct {
		name         string
		validatorErr error
	}{
		{name: "авторитет отклонил чек", validatorErr: ErrAuthorityRejected},
		{name: "чек не содержит продукт", validatorErr: ErrProductMismatch},
		{name: "сервер недоступен", validatorErr: ErrAuthorityUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			billing := new(MockBillingClient)
			validator := new(MockValidator)

			billing.On("StartPurchase", mock.Anything, mock.Anything, "yearly").
				Return(purchaseEvents(PurchaseEvent{Receipt: "receipt-1", TransactionID: "tx-1"}), nil)
			validator.On("ValidateReceipt", mock.Anything, "receipt-1", "yearly", "tx-1").
				Return(nil, tt.validatorErr)

			o := New(billing, validator, newNoopLogger())

			_, err := o.Purchase(context.Background(), "yearly")
			assert.ErrorIs(t, err, tt.validatorErr)
			// Транзакция не подтверждена, кеш не изменён
			billing.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything)
			assert.Nil(t, o.Entitlement())
			assert.Equal(t, StateIdle, o.State())
		})
	}
}

func TestPurchase_BillingError(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	sdkErr := errors.New("billing service disconnected")
	billing.On("StartPurchase", mock.Anything, mock.Anything, "yearly").
		Return(purchaseEvents(PurchaseEvent{Err: sdkErr}), nil)

	o := New(billing, validator, newNoopLogger())

	_, err := o.Purchase(context.Background(), "yearly")
	assert.ErrorIs(t, err, sdkErr)
	validator.AssertNotCalled(t, "ValidateReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestore_EmptyHistory(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	billing.On("QueryPurchaseHistory", mock.Anything).Return([]HistoryEntry{}, nil)

	o := New(billing, validator, newNoopLogger())

	_, err := o.Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoPurchasesFound)
	assert.Equal(t, StateIdle, o.State())
	validator.AssertNotCalled(t, "ValidateReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestore_KeepsLatestExpiry(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	billing.On("QueryPurchaseHistory", mock.Anything).Return([]HistoryEntry{
		{Receipt: "receipt-old", ProductID: "monthly", TransactionID: "tx-old"},
		{Receipt: "receipt-new", ProductID: "yearly", TransactionID: "tx-new"},
	}, nil)
	validator.On("ValidateReceipt", mock.Anything, "receipt-old", "monthly", "tx-old").
		Return(&Entitlement{
			ProductID:  "monthly",
			ExpiryTime: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		}, nil)
	validator.On("ValidateReceipt", mock.Anything, "receipt-new", "yearly", "tx-new").
		Return(&Entitlement{
			ProductID:  "yearly",
			ExpiryTime: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		}, nil)

	o := New(billing, validator, newNoopLogger())

	got, err := o.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yearly", got.ProductID)

	cached := o.Entitlement()
	require.NotNil(t, cached)
	assert.Equal(t, "yearly", cached.ProductID)
}

func TestRestore_NoReceiptValidates(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	billing.On("QueryPurchaseHistory", mock.Anything).Return([]HistoryEntry{
		{Receipt: "receipt-1", ProductID: "yearly", TransactionID: "tx-1"},
	}, nil)
	validator.On("ValidateReceipt", mock.Anything, "receipt-1", "yearly", "tx-1").
		Return(nil, ErrAuthorityRejected)

	o := New(billing, validator, newNoopLogger())

	_, err := o.Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoPurchasesFound)
	assert.Nil(t, o.Entitlement())
}

func TestRestore_Idempotent(t *testing.T) {
	billing := new(MockBillingClient)
	validator := new(MockValidator)

	entitlement := &Entitlement{
		ProductID:  "yearly",
		ExpiryTime: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	billing.On("QueryPurchaseHistory", mock.Anything).Return([]HistoryEntry{
		{Receipt: "receipt-1", ProductID: "yearly", TransactionID: "tx-1"},
	}, nil)
	validator.On("ValidateReceipt", mock.Anything, "receipt-1", "yearly", "tx-1").
		Return(entitlement, nil)

	o := New(billing, validator, newNoopLogger())

	first, err := o.Restore(context.Background())
	require.NoError(t, err)
	second, err := o.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, StateIdle, o.State())
}
