package db

import (
	"context"
	"time"
)

// streamOrders selects the SearchOrders columns in the same order, with no
// page clause. sqlc has no row-callback mode, so this file is maintained by
// hand and must be kept in step with SearchOrders in queries/order.sql.
const streamOrders = `-- name: StreamOrders :many
SELECT o.id, o.number, o.customer_id, o.customer_name, o.customer_email, o.total_minor, o.currency, o.status,
       o.payment_status, o.tracking_number, o.tracking_courier, o.tracking_estimated_delivery, o.created_at,
       o.updated_at, o.updated_by,
       COALESCE((SELECT jsonb_agg(jsonb_build_object(
                        'product_id', i.product_id,
                        'product_name', i.product_name,
                        'unit_price_minor', i.unit_price_minor,
                        'currency', i.currency,
                        'quantity', i.quantity) ORDER BY i.position)
                 FROM order_items i
                 WHERE i.order_id = o.id), '[]'::jsonb)::jsonb AS items
FROM orders o
WHERE ($1::text IS NULL
    OR o.number ILIKE $1 ESCAPE '\'
    OR o.customer_name ILIKE $1 ESCAPE '\'
    OR o.customer_email ILIKE $1 ESCAPE '\')
  AND ($2::text IS NULL OR o.status = $2)
  AND ($3::text IS NULL OR o.payment_status = $3)
  AND ($4::timestamptz IS NULL OR o.created_at >= $4)
  AND ($5::timestamptz IS NULL OR o.created_at < $5)
ORDER BY o.created_at DESC, o.id DESC
`

type StreamOrdersParams struct {
	SearchPattern *string
	Status        *string
	PaymentStatus *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// StreamOrders scans matching rows one at a time and hands each to fn.
// Returning an error from fn stops the iteration and closes the cursor.
func (q *Queries) StreamOrders(ctx context.Context, arg StreamOrdersParams, fn func(SearchOrdersRow) error) error {
	rows, err := q.db.Query(ctx, streamOrders,
		arg.SearchPattern,
		arg.Status,
		arg.PaymentStatus,
		arg.CreatedAfter,
		arg.CreatedBefore,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var i SearchOrdersRow
		if err := rows.Scan(
			&i.ID,
			&i.Number,
			&i.CustomerID,
			&i.CustomerName,
			&i.CustomerEmail,
			&i.TotalMinor,
			&i.Currency,
			&i.Status,
			&i.PaymentStatus,
			&i.TrackingNumber,
			&i.TrackingCourier,
			&i.TrackingEstimatedDelivery,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.UpdatedBy,
			&i.Items,
		); err != nil {
			return err
		}

		if err := fn(i); err != nil {
			return err
		}
	}

	return rows.Err()
}
