package schema

import (
	"context"
	"fmt"

	"tronquery/internal/domain"
)

// AddressQuery returns the model descriptor for persisted address
// lookups. The address field is unique: the service layer checks it
// before every write and the table constraint backstops races.
func AddressQuery() Model[domain.AddressQuery] {
	return Model[domain.AddressQuery]{
		Name:     "AddressQuery",
		Table:    "address_queries",
		IDColumn: "id",
		Fields: []Field[domain.AddressQuery]{
			{
				Name:   "address",
				Unique: true,
				Set: func(q *domain.AddressQuery, v any) error {
					s, err := asString(v)
					if err != nil {
						return err
					}
					q.Address = s
					return nil
				},
			},
			{
				Name: "trx_balance",
				Set: func(q *domain.AddressQuery, v any) error {
					f, err := asFloat64(v)
					if err != nil {
						return err
					}
					q.TrxBalance = f
					return nil
				},
			},
			{
				Name: "bandwidth",
				Set: func(q *domain.AddressQuery, v any) error {
					n, err := asInt64(v)
					if err != nil {
						return err
					}
					q.Bandwidth = n
					return nil
				},
			},
			{
				Name: "energy",
				Set: func(q *domain.AddressQuery, v any) error {
					n, err := asInt64(v)
					if err != nil {
						return err
					}
					q.Energy = n
					return nil
				},
			},
			{
				Name: "created_at",
				Set: func(q *domain.AddressQuery, v any) error {
					t, err := asTime(v)
					if err != nil {
						return err
					}
					q.CreatedAt = t
					return nil
				},
			},
		},
		Relations: []Relation[domain.AddressQuery]{
			{Name: "transfers", Load: loadTransfers},
		},
		ID: func(q *domain.AddressQuery) int64 { return q.ID },
		ScanDest: func(q *domain.AddressQuery) []any {
			return []any{&q.ID, &q.Address, &q.TrxBalance, &q.Bandwidth, &q.Energy, &q.CreatedAt}
		},
	}
}

// loadTransfers hydrates the transfers relation for a whole result set in
// one round trip, keyed by parent id.
func loadTransfers(ctx context.Context, q Querier, parents []*domain.AddressQuery) error {
	if len(parents) == 0 {
		return nil
	}

	ids := make([]int64, len(parents))
	byID := make(map[int64]*domain.AddressQuery, len(parents))
	for i, p := range parents {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	rows, err := q.Query(ctx,
		`SELECT id, address_query_id, tx_id, amount, to_address, created_at
		 FROM transfers WHERE address_query_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("load transfers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(&t.ID, &t.AddressQueryID, &t.TxID, &t.Amount, &t.ToAddress, &t.CreatedAt); err != nil {
			return fmt.Errorf("scan transfer: %w", err)
		}
		if parent, ok := byID[t.AddressQueryID]; ok {
			parent.Transfers = append(parent.Transfers, t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate transfers: %w", err)
	}

	return nil
}
