package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/reorder-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	product_id INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	price      REAL NOT NULL DEFAULT 0,
	stock      INTEGER NOT NULL DEFAULT 0,
	brand      TEXT NOT NULL DEFAULT 'Generic',
	pack_size  TEXT NOT NULL DEFAULT '',
	image      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS customers (
	customer_id INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS orders (
	id          TEXT PRIMARY KEY,
	customer_id INTEGER NOT NULL,
	order_date  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id   TEXT NOT NULL REFERENCES orders(id),
	product_id INTEGER NOT NULL,
	quantity   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS nudges (
	id          TEXT PRIMARY KEY,
	customer_id INTEGER NOT NULL,
	product_id  INTEGER NOT NULL,
	nudge_date  DATETIME NOT NULL,
	confidence  REAL NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id);
CREATE INDEX IF NOT EXISTS idx_nudges_pair_status ON nudges(customer_id, product_id, status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetProduct(ctx context.Context, productID int) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = ?`,
		productID,
	)
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Brand, &p.PackSize, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "product %d", productID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %d", productID)
	}
	return &p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY product_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	return scanProductRows(rows)
}

func (s *SQLiteStore) SearchProducts(ctx context.Context, keyword string) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE LOWER(name) LIKE '%' || LOWER(?) || '%' ORDER BY product_id`,
		keyword,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: search products %q", keyword)
	}
	return scanProductRows(rows)
}

func (s *SQLiteStore) LowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock < ? ORDER BY stock, product_id`,
		threshold,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: low stock products")
	}
	return scanProductRows(rows)
}

func (s *SQLiteStore) UpsertProducts(ctx context.Context, products []model.Product) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert products: begin tx")
	}
	defer tx.Rollback()

	var n int64
	for _, p := range products {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (product_id, name, price, stock, brand, pack_size, image)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(product_id) DO UPDATE SET
			   name = excluded.name, price = excluded.price, stock = excluded.stock,
			   brand = excluded.brand, pack_size = excluded.pack_size, image = excluded.image`,
			p.ID, p.Name, p.Price, p.Stock, p.Brand, p.PackSize, p.Image,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert product %d", p.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert products: commit")
	}
	return n, nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, customerID int) (*model.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT customer_id, name, phone FROM customers WHERE customer_id = ?`,
		customerID,
	)
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "customer %d", customerID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get customer %d", customerID)
	}
	return &c, nil
}

func (s *SQLiteStore) UpsertCustomers(ctx context.Context, customers []model.Customer) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert customers: begin tx")
	}
	defer tx.Rollback()

	var n int64
	for _, c := range customers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO customers (customer_id, name, phone) VALUES (?, ?, ?)
			 ON CONFLICT(customer_id) DO UPDATE SET name = excluded.name, phone = excluded.phone`,
			c.ID, c.Name, c.Phone,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert customer %d", c.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert customers: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT customer_id, name, phone FROM customers ORDER BY customer_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan customer")
		}
		customers = append(customers, c)
	}
	return customers, eris.Wrap(rows.Err(), "sqlite: list customers iterate")
}

func (s *SQLiteStore) PurchaseHistory(ctx context.Context, customerID int) ([]model.PurchaseEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT oi.product_id, o.order_date
		 FROM order_items oi
		 JOIN orders o ON oi.order_id = o.id
		 WHERE o.customer_id = ?
		 ORDER BY oi.product_id, o.order_date`,
		customerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: purchase history for customer %d", customerID)
	}
	defer rows.Close()

	var events []model.PurchaseEvent
	for rows.Next() {
		var ev model.PurchaseEvent
		if err := rows.Scan(&ev.ProductID, &ev.OrderDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan purchase event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: purchase history iterate")
}

func (s *SQLiteStore) FrequentProducts(ctx context.Context, customerID, limit int) ([]model.ProductFrequency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT oi.product_id, p.name, COUNT(*) AS freq
		 FROM order_items oi
		 JOIN orders o ON oi.order_id = o.id
		 JOIN products p ON oi.product_id = p.product_id
		 WHERE o.customer_id = ?
		 GROUP BY oi.product_id, p.name
		 ORDER BY freq DESC, oi.product_id
		 LIMIT ?`,
		customerID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: frequent products for customer %d", customerID)
	}
	defer rows.Close()

	var freqs []model.ProductFrequency
	for rows.Next() {
		var f model.ProductFrequency
		if err := rows.Scan(&f.ProductID, &f.Name, &f.Orders); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan frequency")
		}
		freqs = append(freqs, f)
	}
	return freqs, eris.Wrap(rows.Err(), "sqlite: frequent products iterate")
}

func (s *SQLiteStore) PlaceOrder(ctx context.Context, customerID int, items []model.OrderItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, eris.New("sqlite: place order: no items")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: place order: begin tx")
	}
	defer tx.Rollback()

	orderID := uuid.New().String()
	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, order_date) VALUES (?, ?, ?)`,
		orderID, customerID, now,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert order")
	}

	for _, item := range items {
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE product_id = ?`,
			item.ProductID,
		).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "product %d", item.ProductID)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: read stock for product %d", item.ProductID)
		}
		if stock < item.Quantity {
			return nil, eris.Wrapf(ErrInsufficientStock, "product %d: %d in stock, %d requested",
				item.ProductID, stock, item.Quantity)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - ? WHERE product_id = ?`,
			item.Quantity, item.ProductID,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decrement stock for product %d", item.ProductID)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity) VALUES (?, ?, ?)`,
			orderID, item.ProductID, item.Quantity,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert order item for product %d", item.ProductID)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE nudges SET status = 'resolved'
			 WHERE customer_id = ? AND product_id = ? AND status = 'pending'`,
			customerID, item.ProductID,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: resolve nudge for product %d", item.ProductID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: place order: commit")
	}

	return &model.Order{
		ID:         orderID,
		CustomerID: customerID,
		OrderDate:  now,
		Items:      items,
	}, nil
}

func (s *SQLiteStore) InsertPending(ctx context.Context, candidate model.NudgeCandidate) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert pending: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM nudges WHERE customer_id = ? AND product_id = ? AND status = 'pending'`,
		candidate.CustomerID, candidate.ProductID,
	); err != nil {
		return "", eris.Wrap(err, "sqlite: supersede pending nudge")
	}

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nudges (id, customer_id, product_id, nudge_date, confidence, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, candidate.CustomerID, candidate.ProductID, candidate.NextExpected,
		candidate.Confidence, string(model.NudgeStatusPending), time.Now().UTC(),
	); err != nil {
		return "", eris.Wrap(err, "sqlite: insert pending nudge")
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: insert pending: commit")
	}
	return id, nil
}

func (s *SQLiteStore) ResolvePending(ctx context.Context, customerID, productID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE nudges SET status = 'resolved'
		 WHERE customer_id = ? AND product_id = ? AND status = 'pending'`,
		customerID, productID,
	)
	return eris.Wrapf(err, "sqlite: resolve pending nudge for customer %d product %d", customerID, productID)
}

func (s *SQLiteStore) ListPending(ctx context.Context, customerID int) ([]model.Nudge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, product_id, nudge_date, confidence, status, created_at
		 FROM nudges WHERE customer_id = ? AND status = 'pending'
		 ORDER BY nudge_date, product_id`,
		customerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list pending nudges for customer %d", customerID)
	}
	defer rows.Close()

	var nudges []model.Nudge
	for rows.Next() {
		var n model.Nudge
		var status string
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.ProductID, &n.NudgeDate, &n.Confidence, &status, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan nudge")
		}
		n.Status = model.NudgeStatus(status)
		nudges = append(nudges, n)
	}
	return nudges, eris.Wrap(rows.Err(), "sqlite: list pending iterate")
}

func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.customer_id, c.name,
		        COUNT(n.id) AS total,
		        SUM(CASE WHEN n.status = 'resolved' THEN 1 ELSE 0 END) AS resolved
		 FROM customers c
		 JOIN nudges n ON n.customer_id = c.customer_id
		 GROUP BY c.customer_id, c.name
		 HAVING COUNT(n.id) > 0
		 ORDER BY CAST(SUM(CASE WHEN n.status = 'resolved' THEN 1 ELSE 0 END) AS REAL) / COUNT(n.id) DESC,
		          SUM(CASE WHEN n.status = 'resolved' THEN 1 ELSE 0 END) DESC,
		          c.customer_id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leaderboard")
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.CustomerID, &e.Name, &e.TotalNudges, &e.ResolvedNudges); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan leaderboard entry")
		}
		e.Consistency = consistency(e.ResolvedNudges, e.TotalNudges)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: leaderboard iterate")
}

func scanProductRows(rows *sql.Rows) ([]model.Product, error) {
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Brand, &p.PackSize, &p.Image); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: products iterate")
}
