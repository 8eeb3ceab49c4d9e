package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, user_id, shipping_address, payment_method, status, delivery_cost, total_amount, idempotency_key, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*entity.Order, error) {
	order := &entity.Order{}
	var deliveryCost decimal.NullDecimal
	err := row.Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.ShippingAddress, &order.PaymentMethod, &order.Status, &deliveryCost, &order.TotalAmount, &order.IdempotencyKey, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrOrderNotFound
		}
		return nil, err
	}
	if deliveryCost.Valid {
		order.DeliveryCost = &deliveryCost.Decimal
	}
	return order, nil
}

// loadOrderLines fills Lines for every order with one query.
func loadOrderLines(ctx context.Context, q queryer, orders ...*entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*entity.Order, len(orders))
	args := make([]any, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		args = append(args, o.ID)
	}

	query := `SELECT order_id, product_id, reference, name, quantity, unit_price, line_total FROM order_lines WHERE order_id IN (` + placeholders(len(args)) + `) ORDER BY id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		line := entity.OrderLine{}
		if err := rows.Scan(&orderID, &line.ProductID, &line.Reference, &line.Name, &line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return rows.Err()
}

func getOrder(ctx context.Context, q queryer, where string, arg any) (*entity.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err != nil {
		return nil, err
	}
	if err := loadOrderLines(ctx, q, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *MySQLStore) GetOrderByID(ctx context.Context, id int64) (*entity.Order, error) {
	return getOrder(ctx, s.db, `id = ?`, id)
}

func (s *MySQLStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*entity.Order, error) {
	return getOrder(ctx, s.db, `idempotency_key = ?`, key)
}

func (s *MySQLStore) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadOrderLines(ctx, s.db, orders...); err != nil {
		return nil, err
	}
	return orders, nil
}

func (t *mysqlTx) CreateOrder(ctx context.Context, order *entity.Order) error {
	orderQuery := `INSERT INTO orders (order_number, user_id, shipping_address, payment_method, status, delivery_cost, total_amount, idempotency_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, orderQuery, order.OrderNumber, order.UserID, order.ShippingAddress, order.PaymentMethod, order.Status, order.DeliveryCost, order.TotalAmount, order.IdempotencyKey, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, order.IdempotencyKey)
		}
		return err
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	// Insert order lines with batch
	lineQuery := `INSERT INTO order_lines (order_id, product_id, reference, name, quantity, unit_price, line_total) VALUES `
	var values []any
	for _, line := range order.Lines {
		lineQuery += "(?, ?, ?, ?, ?, ?, ?),"
		values = append(values, orderID, line.ProductID, line.Reference, line.Name, line.Quantity, line.UnitPrice, line.LineTotal)
	}
	lineQuery = lineQuery[:len(lineQuery)-1]

	if _, err := t.tx.ExecContext(ctx, lineQuery, values...); err != nil {
		return err
	}

	order.ID = orderID
	return nil
}

// GetOrderByID locks the order row until the transaction ends.
func (t *mysqlTx) GetOrderByID(ctx context.Context, id int64) (*entity.Order, error) {
	return getOrder(ctx, t.tx, `id = ? FOR UPDATE`, id)
}

func (t *mysqlTx) SaveOrderStatus(ctx context.Context, order *entity.Order, from entity.OrderStatus) error {
	order.UpdatedAt = time.Now().UTC()
	query := `UPDATE orders SET status = ?, delivery_cost = ?, total_amount = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := t.tx.ExecContext(ctx, query, order.Status, order.DeliveryCost, order.TotalAmount, order.UpdatedAt, order.ID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", entity.ErrInvalidTransition, order.ID, from)
	}
	return nil
}
