package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outboxlab/orderflow/internal/order/application"
	"github.com/outboxlab/orderflow/internal/order/domain"
)

const statusCreated = "created"

// Repository persists order aggregates. Save writes the aggregate state and
// its drained events in one transaction, so outbox rows commit or roll back
// together with the business data.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const (
	upsertOrder = `
INSERT INTO orders (id, customer_id, status, total_amount, currency, created_at, updated_at)
VALUES ($1, NULL, $2, $3::numeric, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET total_amount = $3::numeric, currency = $4, updated_at = $6`

	deleteItems = `DELETE FROM order_items WHERE order_id = $1`

	insertItem = `
INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, total_price, currency, created_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8)`

	selectOrder = `SELECT id, created_at FROM orders WHERE id = $1`

	selectItems = `
SELECT product_id, quantity, unit_price::text, currency
FROM order_items
WHERE order_id = $1
ORDER BY created_at ASC`

	existsOrder = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

func (r *Repository) Save(ctx context.Context, order *domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	amount, currency := orderTotals(order)

	if _, err := tx.Exec(ctx, upsertOrder,
		order.ID().String(), statusCreated, amount, currency, order.CreatedAt(), now,
	); err != nil {
		return fmt.Errorf("upsert order %s: %w", order.ID(), err)
	}

	if _, err := tx.Exec(ctx, deleteItems, order.ID().String()); err != nil {
		return fmt.Errorf("rewrite items for %s: %w", order.ID(), err)
	}
	for i, item := range order.Items() {
		subtotal, serr := item.Subtotal()
		if serr != nil {
			return fmt.Errorf("subtotal for %s/%s: %w", order.ID(), item.ProductID(), serr)
		}
		// Stagger timestamps so the created_at ordering used on load
		// reflects line insertion order within a single save.
		if _, err := tx.Exec(ctx, insertItem,
			uuid.New(),
			order.ID().String(),
			item.ProductID().String(),
			item.Quantity().Value(),
			item.UnitPrice().Amount().String(),
			subtotal.Amount().String(),
			item.UnitPrice().Currency().String(),
			now.Add(time.Duration(i)*time.Microsecond),
		); err != nil {
			return fmt.Errorf("insert item %s/%s: %w", order.ID(), item.ProductID(), err)
		}
	}

	events := order.PullEvents()
	if err := NewEventSink(tx).PublishAll(ctx, events); err != nil {
		return fmt.Errorf("enqueue events for %s: %w", order.ID(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save for %s: %w", order.ID(), err)
	}
	r.log.Debug("order saved",
		"order_id", order.ID().String(),
		"items", order.ItemCount(),
		"events", len(events),
	)
	return nil
}

// orderTotals renders the totals columns. An order whose total cannot be
// computed (no items yet, or legacy mixed-currency lines) stores zero USD.
func orderTotals(order *domain.Order) (string, string) {
	total, err := order.Total()
	if err != nil {
		return "0", domain.USD.String()
	}
	return total.Amount().String(), total.Currency().String()
}

func (r *Repository) FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	var (
		rawID     string
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, selectOrder, id.String()).Scan(&rawID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, application.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, selectItems, id.String())
	if err != nil {
		return nil, fmt.Errorf("load items for %s: %w", id, err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			productID string
			quantity  int
			amount    string
			currency  string
		)
		if err := rows.Scan(&productID, &quantity, &amount, &currency); err != nil {
			return nil, fmt.Errorf("scan item for %s: %w", id, err)
		}
		item, ok := r.rebuildItem(rawID, productID, quantity, amount, currency)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read items for %s: %w", id, err)
	}

	return domain.Reconstitute(domain.OrderID(rawID), createdAt, items), nil
}

// rebuildItem revalidates one stored line. Lines that no longer satisfy the
// domain's rules are dropped with a warning so a single bad row cannot make
// the whole order unreadable.
func (r *Repository) rebuildItem(orderID, productID string, quantity int, amount, currencyCode string) (domain.OrderItem, bool) {
	drop := func(err error) (domain.OrderItem, bool) {
		r.log.Warn("dropping unreadable order item",
			"order_id", orderID,
			"product_id", productID,
			"err", err,
		)
		return domain.OrderItem{}, false
	}

	pid, err := domain.NewProductID(productID)
	if err != nil {
		return drop(err)
	}
	qty, err := domain.NewQuantity(quantity)
	if err != nil {
		return drop(err)
	}
	cur, err := domain.ParseCurrency(currencyCode)
	if err != nil {
		return drop(err)
	}
	price, err := domain.MoneyFromString(amount, cur)
	if err != nil {
		return drop(err)
	}
	return domain.NewOrderItem(pid, qty, price), true
}

func (r *Repository) Exists(ctx context.Context, id domain.OrderID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, existsOrder, id.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order %s: %w", id, err)
	}
	return exists, nil
}
