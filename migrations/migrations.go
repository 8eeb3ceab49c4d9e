package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// tables are created in order; later tables reference earlier ones.
var tables = []struct {
	name  string
	query string
}{
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id INT AUTO_INCREMENT PRIMARY KEY,
			reference VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(12,3) NOT NULL,
			stock INT NOT NULL CHECK (stock >= 0),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			version BIGINT NOT NULL DEFAULT 0,
			updated_at DATETIME(6) NOT NULL
		);
	`},
	{"stock_movements", `
		CREATE TABLE IF NOT EXISTS stock_movements (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			product_id INT NOT NULL,
			delta INT NOT NULL,
			stock_before INT NOT NULL,
			stock_after INT NOT NULL,
			reason VARCHAR(128) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_movement (product_id, reason),
			FOREIGN KEY (product_id) REFERENCES products(id)
		);
	`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_number VARCHAR(32) NOT NULL UNIQUE,
			user_id INT NOT NULL,
			shipping_address TEXT NOT NULL,
			payment_method VARCHAR(32) NOT NULL,
			status VARCHAR(20) NOT NULL,
			delivery_cost DECIMAL(12,3) NULL,
			total_amount DECIMAL(12,3) NOT NULL,
			idempotency_key VARCHAR(255) NOT NULL UNIQUE,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_orders_user (user_id),
			INDEX idx_orders_status (status)
		);
	`},
	{"order_lines", `
		CREATE TABLE IF NOT EXISTS order_lines (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			product_id INT NOT NULL,
			reference VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			unit_price DECIMAL(12,3) NOT NULL,
			line_total DECIMAL(12,3) NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
		);
	`},
	{"suppliers", `
		CREATE TABLE IF NOT EXISTS suppliers (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(64) NOT NULL,
			address TEXT NOT NULL,
			rating DOUBLE NOT NULL,
			specialties JSON NOT NULL,
			created_at DATETIME(6) NOT NULL
		);
	`},
	{"purchase_orders", `
		CREATE TABLE IF NOT EXISTS purchase_orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			supplier_id INT NOT NULL,
			order_id BIGINT NULL,
			statut VARCHAR(20) NOT NULL,
			total_ht DECIMAL(12,3) NOT NULL,
			total_ttc DECIMAL(12,3) NOT NULL,
			date_commande DATETIME(6) NOT NULL,
			date_livraison_prevue DATETIME(6) NULL,
			invoice_number VARCHAR(32) NOT NULL UNIQUE,
			idempotency_key VARCHAR(255) NOT NULL UNIQUE,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			FOREIGN KEY (supplier_id) REFERENCES suppliers(id)
		);
	`},
	{"purchase_order_lines", `
		CREATE TABLE IF NOT EXISTS purchase_order_lines (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			purchase_order_id BIGINT NOT NULL,
			product_id INT NULL,
			reference VARCHAR(64) NOT NULL,
			designation VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			unit_price DECIMAL(12,3) NOT NULL,
			line_total DECIMAL(12,3) NOT NULL,
			FOREIGN KEY (purchase_order_id) REFERENCES purchase_orders(id) ON DELETE CASCADE
		);
	`},
}

// AutoMigrate creates every table that does not exist yet.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, table := range tables {
		_, err := db.Exec(table.query)
		if err != nil {
			// Retry creating the table
			for i := 0; i < retries; i++ {
				time.Sleep(1 * time.Second)
				_, err = db.Exec(table.query)
				if err == nil {
					break
				}
			}
		}
		if err != nil {
			return fmt.Errorf("failed to migrate %s table: %w", table.name, err)
		}
	}
	return nil
}
