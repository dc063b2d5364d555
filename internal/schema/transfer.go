package schema

import "tronquery/internal/domain"

// Transfer returns the model descriptor for recorded TRX transfers.
func Transfer() Model[domain.Transfer] {
	return Model[domain.Transfer]{
		Name:     "Transfer",
		Table:    "transfers",
		IDColumn: "id",
		Fields: []Field[domain.Transfer]{
			{
				Name: "address_query_id",
				Set: func(t *domain.Transfer, v any) error {
					n, err := asInt64(v)
					if err != nil {
						return err
					}
					t.AddressQueryID = n
					return nil
				},
			},
			{
				Name:   "tx_id",
				Unique: true,
				Set: func(t *domain.Transfer, v any) error {
					s, err := asString(v)
					if err != nil {
						return err
					}
					t.TxID = s
					return nil
				},
			},
			{
				Name: "amount",
				Set: func(t *domain.Transfer, v any) error {
					f, err := asFloat64(v)
					if err != nil {
						return err
					}
					t.Amount = f
					return nil
				},
			},
			{
				Name: "to_address",
				Set: func(t *domain.Transfer, v any) error {
					s, err := asString(v)
					if err != nil {
						return err
					}
					t.ToAddress = s
					return nil
				},
			},
			{
				Name: "created_at",
				Set: func(t *domain.Transfer, v any) error {
					ts, err := asTime(v)
					if err != nil {
						return err
					}
					t.CreatedAt = ts
					return nil
				},
			},
		},
		ID: func(t *domain.Transfer) int64 { return t.ID },
		ScanDest: func(t *domain.Transfer) []any {
			return []any{&t.ID, &t.AddressQueryID, &t.TxID, &t.Amount, &t.ToAddress, &t.CreatedAt}
		},
	}
}
