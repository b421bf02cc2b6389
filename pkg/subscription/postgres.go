package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
	"github.com/dmitrymomot/subskit/pkg/lifecycle"
	"github.com/dmitrymomot/subskit/pkg/metering"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so the store
// can run the same queries inside and outside a transaction.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the pgx-backed Store. Reads executed inside InTx
// take row locks (SELECT ... FOR UPDATE) so live requests and batch
// sweeps cannot interleave on the same subscription row.
type PostgresStore struct {
	db   pgQuerier
	inTx bool
}

// NewPostgresStore creates a store over the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("subscription: pgx pool is required")
	}
	return &PostgresStore{db: pool}
}

// InTx runs fn inside a database transaction. Nested calls join the
// outer transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	pool, ok := s.db.(*pgxpool.Pool)
	if !ok {
		return fn(ctx, s)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &PostgresStore{db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

// forUpdate appends a row-lock clause inside transactions.
func (s *PostgresStore) forUpdate() string {
	if s.inTx {
		return " FOR UPDATE"
	}
	return ""
}

const subscriptionColumns = `id, subscriber_type, subscriber_id, plan_id, pricing_id, status,
	starts_at, ends_at, trial_ends_at, grace_ends_at, auto_renewal, created_at, updated_at`

func (s *PostgresStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sub.ID, sub.Subscriber.Type, sub.Subscriber.ID, sub.PlanID, sub.PricingID, sub.Status,
		sub.StartsAt, sub.EndsAt, sub.TrialEndsAt, sub.GraceEndsAt, sub.AutoRenewal, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PostgresStore) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET plan_id = $2, pricing_id = $3, status = $4, starts_at = $5, ends_at = $6,
			trial_ends_at = $7, grace_ends_at = $8, auto_renewal = $9, updated_at = $10
		WHERE id = $1`,
		sub.ID, sub.PlanID, sub.PricingID, sub.Status, sub.StartsAt, sub.EndsAt,
		sub.TrialEndsAt, sub.GraceEndsAt, sub.AutoRenewal, sub.UpdatedAt)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *PostgresStore) SubscriptionByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1`+s.forUpdate(), id)
	return scanSubscription(row)
}

func (s *PostgresStore) ActiveBySubscriber(ctx context.Context, ref Ref) (*Subscription, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE subscriber_type = $1 AND subscriber_id = $2 AND status = ANY($3)
		ORDER BY created_at DESC
		LIMIT 1`+s.forUpdate(), ref.Type, ref.ID, statusStrings(lifecycle.ActiveFamily()))
	return scanSubscription(row)
}

func (s *PostgresStore) ListBySubscriber(ctx context.Context, ref Ref) ([]*Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE subscriber_type = $1 AND subscriber_id = $2
		ORDER BY created_at DESC, id`, ref.Type, ref.ID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return collectSubscriptions(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...lifecycle.Status) ([]*Subscription, error) {
	if len(statuses) == 0 {
		statuses = []lifecycle.Status{
			lifecycle.StatusPending, lifecycle.StatusTrial, lifecycle.StatusActive,
			lifecycle.StatusInactive, lifecycle.StatusCanceled, lifecycle.StatusExpired,
		}
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = ANY($1)
		ORDER BY created_at DESC, id`, statusStrings(statuses))
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return collectSubscriptions(rows)
}

func (s *PostgresStore) ExpiringWithin(ctx context.Context, at time.Time, days int) ([]*Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = ANY($1) AND ends_at IS NOT NULL AND ends_at >= $2 AND ends_at <= $3
		ORDER BY ends_at`, statusStrings(lifecycle.ActiveFamily()), at, at.Add(time.Duration(days)*24*time.Hour))
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return collectSubscriptions(rows)
}

func (s *PostgresStore) DueForExpiry(ctx context.Context, at time.Time, limit int) ([]*Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = ANY($1) AND ends_at IS NOT NULL
			AND COALESCE(grace_ends_at, ends_at) < $2
		ORDER BY COALESCE(grace_ends_at, ends_at)`+limitClause(limit),
		statusStrings(lifecycle.ActiveFamily()), at)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return collectSubscriptions(rows)
}

func (s *PostgresStore) DueForAutoRenewal(ctx context.Context, at time.Time, limit int) ([]*Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = $1 AND auto_renewal AND ends_at IS NOT NULL AND ends_at <= $2
		ORDER BY ends_at`+limitClause(limit), lifecycle.StatusActive, at)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return collectSubscriptions(rows)
}

func (s *PostgresStore) UsageDueForReset(ctx context.Context, period plan.ResetPeriod, at time.Time, limit int) ([]UsageDue, error) {
	periodStart, ok := period.PeriodStart(at)
	if !ok {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+prefixedColumns("s", subscriptionColumns)+`,
			u.subscription_id, u.key, u.used, u.last_used_at
		FROM subscription_usages u
		JOIN subscriptions s ON s.id = u.subscription_id
		JOIN plan_features f ON f.plan_id = s.plan_id AND f.key = u.key
		WHERE s.status = ANY($1) AND f.reset_period = $2
			AND u.last_used_at IS NOT NULL AND u.last_used_at < $3
		ORDER BY u.last_used_at, u.key`+limitClause(limit),
		statusStrings(lifecycle.ActiveFamily()), period, periodStart)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []UsageDue
	for rows.Next() {
		var (
			sub   Subscription
			usage metering.Usage
		)
		if err := rows.Scan(
			&sub.ID, &sub.Subscriber.Type, &sub.Subscriber.ID, &sub.PlanID, &sub.PricingID, &sub.Status,
			&sub.StartsAt, &sub.EndsAt, &sub.TrialEndsAt, &sub.GraceEndsAt, &sub.AutoRenewal, &sub.CreatedAt, &sub.UpdatedAt,
			&usage.SubscriptionID, &usage.Key, &usage.Used, &usage.LastUsedAt,
		); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		out = append(out, UsageDue{Subscription: &sub, Usage: usage})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return out, nil
}

func (s *PostgresStore) HasTrialed(ctx context.Context, ref Ref, planID uuid.UUID) (bool, error) {
	var trialed bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE subscriber_type = $1 AND subscriber_id = $2 AND plan_id = $3
				AND trial_ends_at IS NOT NULL
		)`, ref.Type, ref.ID, planID).Scan(&trialed)
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	return trialed, nil
}

func (s *PostgresStore) GetUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (metering.Usage, error) {
	var usage metering.Usage
	err := s.db.QueryRow(ctx, `
		SELECT subscription_id, key, used, last_used_at
		FROM subscription_usages
		WHERE subscription_id = $1 AND key = $2`+s.forUpdate(), subscriptionID, key).
		Scan(&usage.SubscriptionID, &usage.Key, &usage.Used, &usage.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return metering.Usage{}, metering.ErrUsageNotFound
	}
	if err != nil {
		return metering.Usage{}, errors.Join(ErrStoreFailure, err)
	}
	return usage, nil
}

func (s *PostgresStore) SaveUsage(ctx context.Context, usage metering.Usage) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscription_usages (subscription_id, key, used, last_used_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subscription_id, key)
		DO UPDATE SET used = EXCLUDED.used, last_used_at = EXCLUDED.last_used_at`,
		usage.SubscriptionID, usage.Key, usage.Used, usage.LastUsedAt)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PostgresStore) ListUsage(ctx context.Context, subscriptionID uuid.UUID) ([]metering.Usage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT subscription_id, key, used, last_used_at
		FROM subscription_usages
		WHERE subscription_id = $1
		ORDER BY key`, subscriptionID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []metering.Usage
	for rows.Next() {
		var usage metering.Usage
		if err := rows.Scan(&usage.SubscriptionID, &usage.Key, &usage.Used, &usage.LastUsedAt); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		out = append(out, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return out, nil
}

func (s *PostgresStore) ResetAllUsage(ctx context.Context, subscriptionID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE subscription_usages
		SET used = 0, last_used_at = NULL
		WHERE subscription_id = $1`, subscriptionID)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, p plan.Plan) error {
	name, err := json.Marshal(p.Name)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	description, err := json.Marshal(p.Description)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	now := time.Now().UTC()
	if _, err := s.db.Exec(ctx, `
		INSERT INTO plans (id, slug, name, description, active, sort_order, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET slug = EXCLUDED.slug, name = EXCLUDED.name, description = EXCLUDED.description,
			active = EXCLUDED.active, sort_order = EXCLUDED.sort_order, updated_at = $7,
			deleted_at = EXCLUDED.deleted_at`,
		p.ID, p.Slug, name, description, p.Active, p.SortOrder, now, p.DeletedAt); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	// Children are replaced wholesale; catalog writes are rare and the
	// row counts are tiny.
	if _, err := s.db.Exec(ctx, `DELETE FROM plan_prices WHERE pricing_id IN (SELECT id FROM plan_pricings WHERE plan_id = $1)`, p.ID); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM plan_pricings WHERE plan_id = $1`, p.ID); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM plan_features WHERE plan_id = $1`, p.ID); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	for i, pr := range p.Pricings {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO plan_pricings (id, plan_id, label, duration_days, amount, currency, best_offer, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			pr.ID, p.ID, pr.Label, pr.DurationDays, pr.Price.Amount, pr.Price.Currency, pr.BestOffer, i); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		for _, price := range pr.Prices {
			if _, err := s.db.Exec(ctx, `
				INSERT INTO plan_prices (pricing_id, currency, amount)
				VALUES ($1, $2, $3)`,
				pr.ID, price.Currency, price.Amount); err != nil {
				return errors.Join(ErrStoreFailure, err)
			}
		}
	}

	for i, f := range p.Features {
		fname, err := json.Marshal(f.Name)
		if err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		fdesc, err := json.Marshal(f.Description)
		if err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		fvalue, err := json.Marshal(f.Value)
		if err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO plan_features (plan_id, key, name, description, value, reset_period, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, f.Key, fname, fdesc, fvalue, string(f.ResetPeriod), i); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
	}
	return nil
}

func (s *PostgresStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE plans SET deleted_at = COALESCE(deleted_at, NOW()), updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (s *PostgresStore) PlanByID(ctx context.Context, id uuid.UUID) (plan.Plan, error) {
	plans, err := s.loadPlans(ctx, `WHERE id = $1`, id)
	if err != nil {
		return plan.Plan{}, err
	}
	if len(plans) == 0 {
		return plan.Plan{}, ErrPlanNotFound
	}
	return plans[0], nil
}

func (s *PostgresStore) PlanBySlug(ctx context.Context, slug string) (plan.Plan, error) {
	plans, err := s.loadPlans(ctx, `WHERE slug = $1 AND deleted_at IS NULL`, slug)
	if err != nil {
		return plan.Plan{}, err
	}
	if len(plans) == 0 {
		return plan.Plan{}, ErrPlanNotFound
	}
	return plans[0], nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, includeInactive bool) ([]plan.Plan, error) {
	where := `WHERE deleted_at IS NULL AND active`
	if includeInactive {
		where = `WHERE deleted_at IS NULL`
	}
	return s.loadPlans(ctx, where)
}

func (s *PostgresStore) loadPlans(ctx context.Context, where string, args ...any) ([]plan.Plan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, slug, name, description, active, sort_order, created_at, updated_at, deleted_at
		FROM plans `+where+`
		ORDER BY sort_order, slug`, args...)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	var (
		plans []plan.Plan
		ids   []uuid.UUID
		index = make(map[uuid.UUID]int)
	)
	for rows.Next() {
		var (
			p                 plan.Plan
			name, description []byte
		)
		if err := rows.Scan(&p.ID, &p.Slug, &name, &description, &p.Active, &p.SortOrder,
			&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		if p.Name, err = flexvalue.Decode(name); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		if p.Description, err = flexvalue.Decode(description); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		index[p.ID] = len(plans)
		plans = append(plans, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	if len(plans) == 0 {
		return nil, nil
	}

	if err := s.loadPricings(ctx, ids, index, plans); err != nil {
		return nil, err
	}
	if err := s.loadFeatures(ctx, ids, index, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *PostgresStore) loadPricings(ctx context.Context, ids []uuid.UUID, index map[uuid.UUID]int, plans []plan.Plan) error {
	prices, err := s.loadPrices(ctx, ids)
	if err != nil {
		return err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, plan_id, label, duration_days, amount, currency, best_offer
		FROM plan_pricings
		WHERE plan_id = ANY($1)
		ORDER BY plan_id, position`, ids)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pr plan.Pricing
		if err := rows.Scan(&pr.ID, &pr.PlanID, &pr.Label, &pr.DurationDays,
			&pr.Price.Amount, &pr.Price.Currency, &pr.BestOffer); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		pr.Prices = prices[pr.ID]
		if i, ok := index[pr.PlanID]; ok {
			plans[i].Pricings = append(plans[i].Pricings, pr)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PostgresStore) loadPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]plan.Price, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.pricing_id, p.currency, p.amount
		FROM plan_prices p
		JOIN plan_pricings pr ON pr.id = p.pricing_id
		WHERE pr.plan_id = ANY($1)
		ORDER BY p.pricing_id, p.currency`, ids)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]plan.Price)
	for rows.Next() {
		var (
			pricingID uuid.UUID
			price     plan.Price
		)
		if err := rows.Scan(&pricingID, &price.Currency, &price.Amount); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		out[pricingID] = append(out[pricingID], price)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return out, nil
}

func (s *PostgresStore) loadFeatures(ctx context.Context, ids []uuid.UUID, index map[uuid.UUID]int, plans []plan.Plan) error {
	rows, err := s.db.Query(ctx, `
		SELECT plan_id, key, name, description, value, reset_period
		FROM plan_features
		WHERE plan_id = ANY($1)
		ORDER BY plan_id, position`, ids)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			planID                   uuid.UUID
			f                        plan.Feature
			name, description, value []byte
			resetPeriod              string
		)
		if err := rows.Scan(&planID, &f.Key, &name, &description, &value, &resetPeriod); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		if f.Name, err = flexvalue.Decode(name); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		if f.Description, err = flexvalue.Decode(description); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		if f.Value, err = flexvalue.Decode(value); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		f.ResetPeriod = plan.ResetPeriod(resetPeriod)
		if i, ok := index[planID]; ok {
			plans[i].Features = append(plans[i].Features, f)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.Subscriber.Type, &sub.Subscriber.ID, &sub.PlanID, &sub.PricingID, &sub.Status,
		&sub.StartsAt, &sub.EndsAt, &sub.TrialEndsAt, &sub.GraceEndsAt, &sub.AutoRenewal, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*Subscription, error) {
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(
			&sub.ID, &sub.Subscriber.Type, &sub.Subscriber.ID, &sub.PlanID, &sub.PricingID, &sub.Status,
			&sub.StartsAt, &sub.EndsAt, &sub.TrialEndsAt, &sub.GraceEndsAt, &sub.AutoRenewal, &sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		out = append(out, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return out, nil
}

func statusStrings(statuses []lifecycle.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

// prefixedColumns qualifies a comma-separated column list with a table
// alias for join queries.
func prefixedColumns(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
