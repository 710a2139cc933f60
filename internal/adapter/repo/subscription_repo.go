package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"schedbot/internal/domain"
	"schedbot/internal/infra"
	"schedbot/internal/sqlinline"
)

// SubscriptionRepositoryPG implements domain.SubscriptionRepository.
type SubscriptionRepositoryPG struct {
	db infra.SQLExecutor
}

// NewSubscriptionRepository creates a subscription repository backed by PostgreSQL.
func NewSubscriptionRepository(db infra.SQLExecutor) *SubscriptionRepositoryPG {
	return &SubscriptionRepositoryPG{db: db}
}

// Upsert inserts or updates the subscription keyed by user ID and returns the
// stored record.
func (r *SubscriptionRepositoryPG) Upsert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	id := sub.ID
	if id == "" {
		id = uuid.NewString()
	}
	tz := sub.Timezone
	if tz == "" {
		tz = domain.DefaultTimezone
	}
	locale := sub.Locale
	if locale == "" {
		locale = "ru"
	}
	row := r.db.QueryRow(ctx, sqlinline.QUpsertSubscription,
		id,
		sub.UserID,
		sub.Query,
		string(sub.Mode),
		sub.DeliveryTime.String(),
		tz,
		locale,
		sub.Enabled,
	)
	return scanSubscription(row)
}

// GetByID fetches a subscription by its identifier.
func (r *SubscriptionRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	row := r.db.QueryRow(ctx, sqlinline.QGetSubscriptionByID, id)
	return scanSubscription(row)
}

// GetByUserID fetches a subscription by the owning user.
func (r *SubscriptionRepositoryPG) GetByUserID(ctx context.Context, userID int64) (*domain.Subscription, error) {
	row := r.db.QueryRow(ctx, sqlinline.QGetSubscriptionByUserID, userID)
	return scanSubscription(row)
}

// List returns all subscriptions in creation order.
func (r *SubscriptionRepositoryPG) List(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListSubscriptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// SetEnabled toggles delivery for the subscription.
func (r *SubscriptionRepositoryPG) SetEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.db.Exec(ctx, sqlinline.QSetSubscriptionEnabled, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetFlagged marks the subscription for operator attention without disabling it.
func (r *SubscriptionRepositoryPG) SetFlagged(ctx context.Context, id string, flagged bool) error {
	tag, err := r.db.Exec(ctx, sqlinline.QSetSubscriptionFlagged, id, flagged)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDue returns subscriptions whose delivery time has passed for the current
// day in their own timezone and which have no live job for that day.
func (r *SubscriptionRepositoryPG) GetDue(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	rows, err := r.db.Query(ctx, sqlinline.QDueSubscriptions, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var (
		sub          domain.Subscription
		mode         string
		deliveryTime string
		lastDelivery *time.Time
	)
	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Query,
		&mode,
		&deliveryTime,
		&sub.Timezone,
		&sub.Locale,
		&sub.Enabled,
		&sub.Flagged,
		&lastDelivery,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	sub.Mode = domain.Mode(mode)
	tod, err := domain.ParseTimeOfDay(deliveryTime)
	if err != nil {
		return nil, fmt.Errorf("stored delivery time: %w", err)
	}
	sub.DeliveryTime = tod
	if lastDelivery != nil {
		p := domain.PeriodOf(*lastDelivery, time.UTC)
		sub.LastDelivery = &p
	}
	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

var _ domain.SubscriptionRepository = (*SubscriptionRepositoryPG)(nil)
