package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

const productColumns = `id, reference, name, price, stock, is_active, version, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*entity.Product, error) {
	product := &entity.Product{}
	err := row.Scan(&product.ID, &product.Reference, &product.Name, &product.Price, &product.Stock, &product.IsActive, &product.Version, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func getProductByID(ctx context.Context, q queryer, id int) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(q.QueryRowContext(ctx, query, id))
}

func (s *MySQLStore) GetProductByID(ctx context.Context, id int) (*entity.Product, error) {
	return getProductByID(ctx, s.db, id)
}

func (s *MySQLStore) GetProducts(ctx context.Context) ([]*entity.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *MySQLStore) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	product.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO products (reference, name, price, stock, is_active, version, updated_at) VALUES (?, ?, ?, ?, ?, 0, ?)`
	res, err := s.db.ExecContext(ctx, query, product.Reference, product.Name, product.Price, product.Stock, product.IsActive, product.UpdatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, fmt.Errorf("%w: reference %s already exists", entity.ErrValidation, product.Reference)
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	product.ID = int(id)
	product.Version = 0
	return product, nil
}

// UpdateProduct writes catalog metadata. Stock and version are left to the ledger.
func (s *MySQLStore) UpdateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	product.UpdatedAt = time.Now().UTC()
	query := `UPDATE products SET reference = ?, name = ?, price = ?, is_active = ?, updated_at = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, product.Reference, product.Name, product.Price, product.IsActive, product.UpdatedAt, product.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, fmt.Errorf("%w: reference %s already exists", entity.ErrValidation, product.Reference)
		}
		return nil, err
	}

	// RowsAffected is 0 for unchanged rows on MySQL, so re-read instead.
	return s.GetProductByID(ctx, product.ID)
}

func (s *MySQLStore) ListMovements(ctx context.Context, productID int) ([]*entity.StockMovement, error) {
	query := `SELECT id, product_id, delta, stock_before, stock_after, reason, created_at FROM stock_movements WHERE product_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*entity.StockMovement
	for rows.Next() {
		m := &entity.StockMovement{}
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.StockBefore, &m.StockAfter, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (t *mysqlTx) GetProductByID(ctx context.Context, id int) (*entity.Product, error) {
	return getProductByID(ctx, t.tx, id)
}

// AdjustStock is a compare-and-swap on products.version. The movement insert
// shares the transaction, so a duplicate reason undoes the stock write too.
func (t *mysqlTx) AdjustStock(ctx context.Context, productID int, delta int, reason string) (int, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: stock delta must not be zero", entity.ErrValidation)
	}

	var stock int
	var version int64
	err := t.tx.QueryRowContext(ctx, `SELECT stock, version FROM products WHERE id = ?`, productID).Scan(&stock, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, entity.ErrProductNotFound
		}
		return 0, err
	}

	newStock := stock + delta
	if newStock < 0 {
		return stock, fmt.Errorf("%w: product %d has %d, requested %d", entity.ErrInsufficientStock, productID, stock, -delta)
	}

	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx, `UPDATE products SET stock = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`, newStock, now, productID, version)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: product %d", entity.ErrStaleWrite, productID)
	}

	movementQuery := `INSERT INTO stock_movements (product_id, delta, stock_before, stock_after, reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = t.tx.ExecContext(ctx, movementQuery, productID, delta, stock, newStock, reason, now)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, fmt.Errorf("%w: %s on product %d", entity.ErrDuplicateMovement, reason, productID)
		}
		return 0, err
	}

	return newStock, nil
}
