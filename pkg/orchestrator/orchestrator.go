// Package orchestrator реализует клиентский конечный автомат покупки подписки.
//
// Оркестратор сериализует попытки покупки: в один момент времени выполняется
// не более одной (single-flight). Покупка подтверждается платформе только
// после успешной валидации чека и записи на сервере. Локальный кеш записи
// о подписке обновляется только серверно-подтверждёнными данными, никогда
// оптимистично: неудачная покупка не меняет отображаемый доступ.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Validator описывает клиент сервиса валидации чеков.
type Validator interface {
	ValidateReceipt(ctx context.Context, receipt, productID, transactionID string) (*Entitlement, error)
	FetchEntitlement(ctx context.Context) (*Entitlement, error)
}

// Orchestrator — конечный автомат покупки. Экземпляр владеет состоянием
// единолично: инвариант "не более одной покупки в полёте" обеспечивается
// самим типом, а не общим флагом в вызывающем коде.
type Orchestrator struct {
	mu          sync.Mutex
	state       State
	entitlement *Entitlement

	billing   BillingClient
	validator Validator
	log       *slog.Logger
}

// New создаёт оркестратор в состоянии Idle.
func New(billing BillingClient, validator Validator, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		state:     StateIdle,
		billing:   billing,
		validator: validator,
		log:       log,
	}
}

// State возвращает текущее состояние автомата.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Entitlement возвращает копию последней серверно-подтверждённой записи
// о подписке или nil, если записи ещё нет.
func (o *Orchestrator) Entitlement() *Entitlement {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.entitlement == nil {
		return nil
	}
	copied := *o.entitlement
	return &copied
}

// Purchase выполняет полный цикл покупки: нативный диалог, валидация чека
// на сервере, подтверждение транзакции платформе. Возвращает подтверждённую
// запись о подписке.
func (o *Orchestrator) Purchase(ctx context.Context, productID string) (*Entitlement, error) {
	const op = "orchestrator.Purchase"

	if err := o.begin(StatePurchasing); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer o.finish()

	attemptID := uuid.NewString()
	log := o.log.With(
		slog.String("op", op),
		slog.String("attempt_id", attemptID),
		slog.String("product_id", productID),
	)

	events, err := o.billing.StartPurchase(ctx, attemptID, productID)
	if err != nil {
		o.setState(StateFailed)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var event PurchaseEvent
	select {
	case event = <-events:
	case <-ctx.Done():
		o.setState(StateFailed)
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	}

	if event.Cancelled {
		// Отмена тихая: сервер не вызывается
		log.Info("purchase cancelled by user")
		o.setState(StateFailed)
		return nil, fmt.Errorf("%s: %w", op, ErrUserCancelled)
	}
	if event.Err != nil {
		log.Error("billing client reported error", slog.Any("err", event.Err))
		o.setState(StateFailed)
		return nil, fmt.Errorf("%s: %w", op, event.Err)
	}

	o.setState(StateValidating)
	entitlement, err := o.validator.ValidateReceipt(ctx, event.Receipt, productID, event.TransactionID)
	if err != nil {
		// Транзакция не подтверждается, кеш не меняется
		log.Error("receipt validation failed", slog.Any("err", err))
		o.setState(StateFailed)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o.storeEntitlement(entitlement)

	// Подтверждаем платформе только после валидации и записи на сервере.
	// Неудачное подтверждение не отменяет покупку: платформа повторит доставку.
	if err := o.billing.Acknowledge(ctx, event.TransactionID); err != nil {
		log.Warn("failed to acknowledge transaction", slog.Any("err", err))
	}

	o.setState(StateActive)
	log.Info("purchase confirmed", slog.Time("expiry_time", entitlement.ExpiryTime))
	return entitlement, nil
}

// Restore повторно проверяет историю покупок без нового списания.
// Пустая история или ни одного подтверждённого чека — это ErrNoPurchasesFound,
// ожидаемый результат, а не сбой. Вызов идемпотентен и безопасен на каждом
// старте приложения.
func (o *Orchestrator) Restore(ctx context.Context) (*Entitlement, error) {
	const op = "orchestrator.Restore"

	if err := o.begin(StateValidating); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer o.finish()

	log := o.log.With(slog.String("op", op))

	history, err := o.billing.QueryPurchaseHistory(ctx)
	if err != nil {
		o.setState(StateFailed)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(history) == 0 {
		log.Info("purchase history is empty")
		return nil, fmt.Errorf("%s: %w", op, ErrNoPurchasesFound)
	}

	var best *Entitlement
	for _, entry := range history {
		entitlement, err := o.validator.ValidateReceipt(ctx, entry.Receipt, entry.ProductID, entry.TransactionID)
		if err != nil {
			log.Warn("history receipt did not validate",
				slog.String("transaction_id", entry.TransactionID),
				slog.Any("err", err))
			continue
		}
		if best == nil || entitlement.ExpiryTime.After(best.ExpiryTime) {
			best = entitlement
		}
	}
	if best == nil {
		log.Info("no history receipt validated")
		return nil, fmt.Errorf("%s: %w", op, ErrNoPurchasesFound)
	}

	o.storeEntitlement(best)
	o.setState(StateActive)
	log.Info("entitlement restored", slog.Time("expiry_time", best.ExpiryTime))
	return best, nil
}

// begin переводит автомат из Idle в начальное состояние попытки.
func (o *Orchestrator) begin(next State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrAlreadyInProgress
	}
	o.state = next
	return nil
}

// finish возвращает автомат в Idle после завершения попытки.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
}

func (o *Orchestrator) setState(next State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = next
}

func (o *Orchestrator) storeEntitlement(e *Entitlement) {
	o.mu.Lock()
	defer o.mu.Unlock()
	copied := *e
	o.entitlement = &copied
}
