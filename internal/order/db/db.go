package db

import (
	"context"
	"database/sql"

	"ms-booking/internal/models"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(models.ErrNotFound, "%s %s", kind, id)
	}
	return err
}

// ---------------- ORDERS ----------------

// CreateOrder → insert new order
func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(ctx)
	return err
}

// GetOrderByID → fetch one order by its ID
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// UpdateOrderStatus → only the status of a placed order ever changes
func (d *DB) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	return nil
}

// ListOrders → every order, newest first
func (d *DB) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := d.Bun.NewSelect().
		Model(&orders).
		Order("created_at DESC").
		Scan(ctx)
	return orders, err
}

// ListOrdersByUser → orders of one user, newest first
func (d *DB) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	return orders, err
}

// ---------------- TRANSACTIONS ----------------

func (d *DB) CreateTransaction(ctx context.Context, tx models.Transaction) error {
	_, err := d.Bun.NewInsert().Model(&tx).Exec(ctx)
	return err
}

func (d *DB) GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := d.Bun.NewSelect().
		Model(&tx).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &tx, nil
}

// UpdateTransaction → persists status and order link after settlement
func (d *DB) UpdateTransaction(ctx context.Context, tx models.Transaction) error {
	res, err := d.Bun.NewUpdate().
		Model(&tx).
		Column("order_id", "status").
		Where("id = ?", tx.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(models.ErrNotFound, "transaction %s", tx.ID)
	}
	return nil
}

// ListTransactions → every transaction, newest first
func (d *DB) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := d.Bun.NewSelect().
		Model(&txs).
		Order("timestamp DESC").
		Scan(ctx)
	return txs, err
}
