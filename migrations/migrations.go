package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// Tables in creation order; later tables reference earlier ones.
var tables = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) COLLATE utf8mb4_unicode_ci NOT NULL,
			password_hash VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			role VARCHAR(20) NOT NULL DEFAULT 'consumer',
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			UNIQUE KEY users_email_idx (email)
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"stores", `
		CREATE TABLE IF NOT EXISTS stores (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL UNIQUE,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			commission_rate DECIMAL(5,4) NOT NULL DEFAULT 0,
			total_sales DECIMAL(14,2) NOT NULL DEFAULT 0,
			total_orders BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			FOREIGN KEY (owner_id) REFERENCES users(id)
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			store_id BIGINT NOT NULL,
			category_id BIGINT NOT NULL DEFAULT 0,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL,
			sku VARCHAR(100) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			compare_at_price DECIMAL(12,2) NULL,
			inventory INT NOT NULL DEFAULT 0,
			track_inventory BOOLEAN NOT NULL DEFAULT TRUE,
			status VARCHAR(20) NOT NULL DEFAULT 'draft',
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			UNIQUE KEY products_store_sku_idx (store_id, sku),
			FOREIGN KEY (store_id) REFERENCES stores(id)
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"product_images", `
		CREATE TABLE IF NOT EXISTS product_images (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			product_id BIGINT NOT NULL,
			position INT NOT NULL,
			url VARCHAR(1024) NOT NULL,
			KEY product_images_position_idx (product_id, position),
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"carts", `
		CREATE TABLE IF NOT EXISTS carts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			expires_at DATETIME(6) NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			KEY carts_user_idx (user_id, expires_at),
			FOREIGN KEY (user_id) REFERENCES users(id)
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"cart_items", `
		CREATE TABLE IF NOT EXISTS cart_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			cart_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			UNIQUE KEY cart_items_product_idx (cart_id, product_id),
			FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_number VARCHAR(40) NOT NULL UNIQUE,
			user_id BIGINT NOT NULL,
			store_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			payment_status VARCHAR(20) NOT NULL,
			subtotal DECIMAL(14,2) NOT NULL,
			shipping_cost DECIMAL(14,2) NOT NULL,
			tax_amount DECIMAL(14,2) NOT NULL,
			total_amount DECIMAL(14,2) NOT NULL,
			shipping_address JSON NOT NULL,
			billing_address JSON NOT NULL,
			payment_method VARCHAR(50) NOT NULL DEFAULT '',
			payment_reference VARCHAR(255) NOT NULL DEFAULT '',
			tracking_number VARCHAR(255) NOT NULL DEFAULT '',
			fulfilled_at DATETIME(6) NULL,
			cancelled_at DATETIME(6) NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			KEY orders_user_idx (user_id, created_at),
			KEY orders_store_idx (store_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (store_id) REFERENCES stores(id)
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			unit_price DECIMAL(12,2) NOT NULL,
			total_price DECIMAL(14,2) NOT NULL,
			product_snapshot JSON NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
		) DEFAULT CHARSET = utf8mb4;
	`},
	{"fee_rules", `
		CREATE TABLE IF NOT EXISTS fee_rules (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			store_id BIGINT NOT NULL,
			country CHAR(2) NOT NULL DEFAULT '',
			flat_shipping DECIMAL(12,2) NOT NULL DEFAULT 0,
			free_shipping_threshold DECIMAL(12,2) NULL,
			tax_rate DECIMAL(6,5) NOT NULL DEFAULT 0,
			UNIQUE KEY fee_rules_store_country_idx (store_id, country),
			FOREIGN KEY (store_id) REFERENCES stores(id) ON DELETE CASCADE
		) DEFAULT CHARSET = utf8mb4;
	`},
}

// AutoMigrate creates every table that does not exist yet.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, table := range tables {
		if err := migrate(retries, db, table.ddl); err != nil {
			return fmt.Errorf("migrate %s: %w", table.name, err)
		}
	}
	return nil
}

func migrate(retries int, db *sql.DB, query string) error {
	_, err := db.Exec(query)
	if err != nil {
		// Retry creating the table
		for i := 0; i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = db.Exec(query)
			if err == nil {
				break
			}
		}
	}
	return err
}
