package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/trading-service/internal/entity"
	"github.com/lib/pq"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateOrder = errors.New("order id already exists")
	// ErrTerminalStatus is returned when a status update targets a command
	// that already reached a terminal status. PENDING -> terminal is the only
	// allowed transition.
	ErrTerminalStatus = errors.New("order command already in terminal status")
)

const pqUniqueViolation = "23505"

type OrderCommandRepository struct {
	db *sqlx.DB
}

func NewOrderCommandRepository(db *sqlx.DB) *OrderCommandRepository {
	return &OrderCommandRepository{db: db}
}

func (r *OrderCommandRepository) Create(ctx context.Context, command *entity.OrderCommand) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(command.TableName()).
		Columns(
			"order_id",
			"user_id",
			"symbol",
			"side",
			"type",
			"quantity",
			"price",
			"status",
			"created_at",
			"updated_at",
		).
		Values(
			command.OrderID,
			command.UserID,
			command.Symbol,
			command.Side,
			command.Type,
			command.Quantity,
			command.Price,
			command.Status,
			command.CreatedAt,
			command.UpdatedAt,
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
			return ErrDuplicateOrder
		}
		return err
	}

	command.ID = id

	return nil
}

// UpdateStatus performs the single allowed state transition as one atomic
// write: the WHERE clause only matches rows still in PENDING.
func (r *OrderCommandRepository) UpdateStatus(ctx context.Context, orderID string, status entity.OrderStatus) error {
	if !entity.OrderStatusPending.CanTransitionTo(status) {
		return ErrTerminalStatus
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update(entity.OrderCommand{}.TableName()).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"order_id": orderID, "status": entity.OrderStatusPending})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		if _, err := r.GetByOrderID(ctx, orderID); err != nil {
			return err
		}
		return ErrTerminalStatus
	}

	return nil
}

func (r *OrderCommandRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.OrderCommand, error) {
	var command entity.OrderCommand
	err := r.db.GetContext(ctx, &command, "SELECT * FROM order_commands WHERE order_id = $1", orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &command, nil
}

func (r *OrderCommandRepository) ListByUser(ctx context.Context, userID string) ([]entity.OrderCommand, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From(entity.OrderCommand{}.TableName()).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at desc")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var commands []entity.OrderCommand
	err = r.db.SelectContext(ctx, &commands, query, args...)
	if err != nil {
		return nil, err
	}

	return commands, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
