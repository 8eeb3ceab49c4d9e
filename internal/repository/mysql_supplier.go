package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

const supplierColumns = `id, name, email, phone, address, rating, specialties, created_at`

func scanSupplier(row interface{ Scan(...any) error }) (*entity.Supplier, error) {
	supplier := &entity.Supplier{}
	var specialties []byte
	err := row.Scan(&supplier.ID, &supplier.Name, &supplier.Email, &supplier.Phone, &supplier.Address, &supplier.Rating, &specialties, &supplier.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrSupplierNotFound
		}
		return nil, err
	}
	if len(specialties) > 0 {
		if err := json.Unmarshal(specialties, &supplier.Specialties); err != nil {
			return nil, err
		}
	}
	return supplier, nil
}

func getSupplierByID(ctx context.Context, q queryer, id int) (*entity.Supplier, error) {
	return scanSupplier(q.QueryRowContext(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id))
}

func (s *MySQLStore) GetSupplierByID(ctx context.Context, id int) (*entity.Supplier, error) {
	return getSupplierByID(ctx, s.db, id)
}

func (t *mysqlTx) GetSupplierByID(ctx context.Context, id int) (*entity.Supplier, error) {
	return getSupplierByID(ctx, t.tx, id)
}

func (s *MySQLStore) GetSuppliers(ctx context.Context) ([]*entity.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []*entity.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, rows.Err()
}

func (s *MySQLStore) CreateSupplier(ctx context.Context, supplier *entity.Supplier) (*entity.Supplier, error) {
	if supplier.Specialties == nil {
		supplier.Specialties = []string{}
	}
	specialties, err := json.Marshal(supplier.Specialties)
	if err != nil {
		return nil, err
	}
	supplier.CreatedAt = time.Now().UTC()

	query := `INSERT INTO suppliers (name, email, phone, address, rating, specialties, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, supplier.Name, supplier.Email, supplier.Phone, supplier.Address, supplier.Rating, specialties, supplier.CreatedAt)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	supplier.ID = int(id)
	return supplier, nil
}
