package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// UpsertEntitlement записывает подтверждённую подписку. Ключ — subscriber_uid,
// так что повторная валидация (продление, restore) заменяет прежнюю запись,
// а не создаёт параллельную. Обновление условное: запись с более ранней датой
// окончания не затирает более свежую, поэтому отставшая валидация, пришедшая
// по сети позже, становится no-op.
//
// Возвращает true, если строка была вставлена или обновлена.
func (s *Storage) UpsertEntitlement(ctx context.Context, e models.Entitlement) (bool, error) {
	const op = "storage.UpsertEntitlement"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO entitlements (subscriber_uid, product_id, platform, transaction_id,
	              purchase_time, expiry_time, is_active, raw_receipt, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	          ON CONFLICT (subscriber_uid) DO UPDATE
	          SET product_id = EXCLUDED.product_id,
	              platform = EXCLUDED.platform,
	              transaction_id = EXCLUDED.transaction_id,
	              purchase_time = EXCLUDED.purchase_time,
	              expiry_time = EXCLUDED.expiry_time,
	              is_active = EXCLUDED.is_active,
	              raw_receipt = EXCLUDED.raw_receipt,
	              updated_at = now()
	          WHERE EXCLUDED.expiry_time >= entitlements.expiry_time`
	result, err := s.DB.ExecContext(ctx, query,
		e.SubscriberUID, e.ProductID, e.Platform, e.TransactionID,
		e.PurchaseTime, e.ExpiryTime, e.IsActive, e.RawReceipt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// GetEntitlement возвращает текущую запись о подписке подписчика.
func (s *Storage) GetEntitlement(ctx context.Context, subscriberUID string) (*models.Entitlement, error) {
	const op = "storage.GetEntitlement"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT subscriber_uid, product_id, platform, transaction_id,
	              purchase_time, expiry_time, is_active, raw_receipt
	          FROM entitlements WHERE subscriber_uid = $1`
	row := s.DB.QueryRowContext(ctx, query, subscriberUID)

	var result models.Entitlement
	if err := row.Scan(&result.SubscriberUID, &result.ProductID, &result.Platform,
		&result.TransactionID, &result.PurchaseTime, &result.ExpiryTime,
		&result.IsActive, &result.RawReceipt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrEntitlementNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}
