package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

const purchaseOrderColumns = `id, supplier_id, order_id, statut, total_ht, total_ttc, date_commande, date_livraison_prevue, invoice_number, idempotency_key, created_at, updated_at`

func scanPurchaseOrder(row interface{ Scan(...any) error }) (*entity.PurchaseOrder, error) {
	po := &entity.PurchaseOrder{}
	var orderID sql.NullInt64
	var dateLivraison sql.NullTime
	err := row.Scan(&po.ID, &po.SupplierID, &orderID, &po.Status, &po.TotalHT, &po.TotalTTC, &po.DateCommande, &dateLivraison, &po.InvoiceNumber, &po.IdempotencyKey, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrPurchaseOrderNotFound
		}
		return nil, err
	}
	if orderID.Valid {
		po.OrderID = &orderID.Int64
	}
	if dateLivraison.Valid {
		po.DateLivraisonPrevue = &dateLivraison.Time
	}
	return po, nil
}

func loadPurchaseOrderLines(ctx context.Context, q queryer, pos ...*entity.PurchaseOrder) error {
	if len(pos) == 0 {
		return nil
	}
	byID := make(map[int64]*entity.PurchaseOrder, len(pos))
	args := make([]any, 0, len(pos))
	for _, po := range pos {
		byID[po.ID] = po
		args = append(args, po.ID)
	}

	query := `SELECT purchase_order_id, product_id, reference, designation, quantity, unit_price, line_total FROM purchase_order_lines WHERE purchase_order_id IN (` + placeholders(len(args)) + `) ORDER BY id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var poID int64
		var productID sql.NullInt64
		line := entity.PurchaseOrderLine{}
		if err := rows.Scan(&poID, &productID, &line.Reference, &line.Designation, &line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return err
		}
		if productID.Valid {
			pid := int(productID.Int64)
			line.ProductID = &pid
		}
		if po, ok := byID[poID]; ok {
			po.Lines = append(po.Lines, line)
		}
	}
	return rows.Err()
}

func getPurchaseOrder(ctx context.Context, q queryer, where string, arg any) (*entity.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(q.QueryRowContext(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE `+where, arg))
	if err != nil {
		return nil, err
	}
	if err := loadPurchaseOrderLines(ctx, q, po); err != nil {
		return nil, err
	}
	return po, nil
}

func (s *MySQLStore) GetPurchaseOrderByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	return getPurchaseOrder(ctx, s.db, `id = ?`, id)
}

func (s *MySQLStore) GetPurchaseOrderByIdempotencyKey(ctx context.Context, key string) (*entity.PurchaseOrder, error) {
	return getPurchaseOrder(ctx, s.db, `idempotency_key = ?`, key)
}

func (s *MySQLStore) ListPurchaseOrders(ctx context.Context, filter entity.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "statut = ?")
		args = append(args, filter.Status)
	}
	if filter.SupplierID != 0 {
		conds = append(conds, "supplier_id = ?")
		args = append(args, filter.SupplierID)
	}

	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date_commande DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pos []*entity.PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		pos = append(pos, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadPurchaseOrderLines(ctx, s.db, pos...); err != nil {
		return nil, err
	}
	return pos, nil
}

func (t *mysqlTx) CreatePurchaseOrder(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `INSERT INTO purchase_orders (supplier_id, order_id, statut, total_ht, total_ttc, date_commande, date_livraison_prevue, invoice_number, idempotency_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, query, po.SupplierID, po.OrderID, po.Status, po.TotalHT, po.TotalTTC, po.DateCommande, po.DateLivraisonPrevue, po.InvoiceNumber, po.IdempotencyKey, po.CreatedAt, po.UpdatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, po.IdempotencyKey)
		}
		return err
	}

	poID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	lineQuery := `INSERT INTO purchase_order_lines (purchase_order_id, product_id, reference, designation, quantity, unit_price, line_total) VALUES `
	var values []any
	for _, line := range po.Lines {
		lineQuery += "(?, ?, ?, ?, ?, ?, ?),"
		values = append(values, poID, line.ProductID, line.Reference, line.Designation, line.Quantity, line.UnitPrice, line.LineTotal)
	}
	lineQuery = lineQuery[:len(lineQuery)-1]

	if _, err := t.tx.ExecContext(ctx, lineQuery, values...); err != nil {
		return err
	}

	po.ID = poID
	return nil
}

func (t *mysqlTx) GetPurchaseOrderByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	return getPurchaseOrder(ctx, t.tx, `id = ? FOR UPDATE`, id)
}

func (t *mysqlTx) SavePurchaseOrderStatus(ctx context.Context, po *entity.PurchaseOrder, from entity.PurchaseOrderStatus) error {
	po.UpdatedAt = time.Now().UTC()
	query := `UPDATE purchase_orders SET statut = ?, supplier_id = ?, updated_at = ? WHERE id = ? AND statut = ?`
	res, err := t.tx.ExecContext(ctx, query, po.Status, po.SupplierID, po.UpdatedAt, po.ID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: purchase order %d is no longer %s", entity.ErrInvalidTransition, po.ID, from)
	}
	return nil
}
