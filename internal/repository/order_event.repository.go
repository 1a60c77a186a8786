package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/trading-service/internal/entity"
)

// ErrDuplicateEvent signals that an event for this order id was already
// appended. The unique constraint on order_id is the durable idempotency
// guard against broker redelivery.
var ErrDuplicateEvent = errors.New("order event already exists")

type OrderEventRepository struct {
	db *sqlx.DB
}

func NewOrderEventRepository(db *sqlx.DB) *OrderEventRepository {
	return &OrderEventRepository{db: db}
}

func (r *OrderEventRepository) Append(ctx context.Context, event *entity.OrderEvent) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(event.TableName()).
		Columns(
			"order_id",
			"user_id",
			"status",
			"symbol",
			"side",
			"quantity",
			"price",
			"error_message",
			"timestamp",
			"created_at",
		).
		Values(
			event.OrderID,
			event.UserID,
			event.Status,
			event.Symbol,
			event.Side,
			event.Quantity,
			event.Price,
			event.Error,
			event.Timestamp,
			event.CreatedAt,
		).
		Suffix("RETURNING id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	var id string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return err
	}

	event.ID = id

	return nil
}

func (r *OrderEventRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.OrderEvent, error) {
	var event entity.OrderEvent
	err := r.db.GetContext(ctx, &event, "SELECT * FROM order_events WHERE order_id = $1", orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// ListFilledByUser returns every fill event for the user in no particular
// order; position aggregation is order-insensitive.
func (r *OrderEventRepository) ListFilledByUser(ctx context.Context, userID string) ([]entity.OrderEvent, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From(entity.OrderEvent{}.TableName()).
		Where(sq.Eq{
			"user_id": userID,
			"status":  []entity.OrderStatus{entity.OrderStatusFilled, entity.OrderStatusPartiallyFilled},
		})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var events []entity.OrderEvent
	err = r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// ListLatestByOrderIDs returns the most recent event per order id.
func (r *OrderEventRepository) ListLatestByOrderIDs(ctx context.Context, orderIDs []string) (map[string]entity.OrderEvent, error) {
	if len(orderIDs) == 0 {
		return map[string]entity.OrderEvent{}, nil
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From(entity.OrderEvent{}.TableName()).
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("created_at desc")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var events []entity.OrderEvent
	err = r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]entity.OrderEvent, len(orderIDs))
	for _, event := range events {
		if _, exists := latest[event.OrderID]; !exists {
			latest[event.OrderID] = event
		}
	}

	return latest, nil
}
