package domain

import "time"

// AddressQuery is a persisted snapshot of a TRON account lookup: the
// address that was queried plus the balance and resource metrics the
// ledger reported at that moment.
type AddressQuery struct {
	ID         int64
	Address    string
	TrxBalance float64
	Bandwidth  int64
	Energy     int64
	CreatedAt  time.Time

	// Transfers is populated only when the "transfers" relation is
	// eagerly loaded.
	Transfers []Transfer
}

// Transfer is a single TRX transfer recorded alongside an address query.
type Transfer struct {
	ID             int64
	AddressQueryID int64
	TxID           string
	Amount         float64
	ToAddress      string
	CreatedAt      time.Time
}
