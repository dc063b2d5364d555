package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tronquery/internal/domain"
	"tronquery/internal/middleware"
	"tronquery/internal/service"
	"tronquery/internal/tron"
)

// Ledger is the external account source backing query creation.
type Ledger interface {
	GetAccount(ctx context.Context, address string) (tron.AccountInfo, error)
	ListTransfers(ctx context.Context, address string, limit int) ([]tron.TransferEvent, error)
}

// Handler wires the address query endpoints. Controllers stay thin: all
// persistence rules live in the entity services.
type Handler struct {
	queries       *service.Service[domain.AddressQuery]
	transfers     *service.Service[domain.Transfer]
	ledger        Ledger
	transferLimit int
}

// NewHandler builds the REST handler.
func NewHandler(
	queries *service.Service[domain.AddressQuery],
	transfers *service.Service[domain.Transfer],
	ledger Ledger,
) *Handler {
	return &Handler{
		queries:       queries,
		transfers:     transfers,
		ledger:        ledger,
		transferLimit: 20,
	}
}

// Routes registers all endpoints on a fresh mux. The export handler is
// passed in so the exporter package stays independent of this one.
func (h *Handler) Routes(exportHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /queries", h.createQuery)
	mux.HandleFunc("POST /queries/bulk", h.createBulk)
	mux.HandleFunc("GET /queries", h.listQueries)
	mux.Handle("GET /queries/export", exportHandler)
	mux.HandleFunc("GET /queries/{id}", h.retrieveQuery)
	mux.HandleFunc("PUT /queries/{id}", h.updateQuery)
	mux.HandleFunc("DELETE /queries/{id}", h.deleteQuery)
	return mux
}

type transferResponse struct {
	ID        int64     `json:"id"`
	TxID      string    `json:"tx_id"`
	Amount    float64   `json:"amount"`
	ToAddress string    `json:"to_address"`
	CreatedAt time.Time `json:"created_at"`
}

type queryResponse struct {
	ID         int64              `json:"id"`
	Address    string             `json:"address"`
	TrxBalance float64            `json:"trx_balance"`
	Bandwidth  int64              `json:"bandwidth"`
	Energy     int64              `json:"energy"`
	CreatedAt  time.Time          `json:"created_at"`
	Transfers  []transferResponse `json:"transfers,omitempty"`
}

func toQueryResponse(q *domain.AddressQuery) queryResponse {
	resp := queryResponse{
		ID:         q.ID,
		Address:    q.Address,
		TrxBalance: q.TrxBalance,
		Bandwidth:  q.Bandwidth,
		Energy:     q.Energy,
		CreatedAt:  q.CreatedAt,
	}
	for _, t := range q.Transfers {
		resp.Transfers = append(resp.Transfers, transferResponse{
			ID:        t.ID,
			TxID:      t.TxID,
			Amount:    t.Amount,
			ToAddress: t.ToAddress,
			CreatedAt: t.CreatedAt,
		})
	}
	return resp
}

type createQueryPayload struct {
	Address string `json:"address"`
}

func (h *Handler) createQuery(w http.ResponseWriter, r *http.Request) {
	var payload createQueryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	address := strings.TrimSpace(payload.Address)
	if address == "" {
		badRequest(w, "address is required")
		return
	}

	account, err := h.ledger.GetAccount(r.Context(), address)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "ledger lookup failed"})
		log.Printf("ledger lookup for %s: %v", address, err)
		return
	}

	created, err := h.queries.Create(r.Context(), map[string]any{
		"address":     address,
		"trx_balance": account.TrxBalance,
		"bandwidth":   account.Bandwidth,
		"energy":      account.Energy,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.recordTransfers(r.Context(), created)

	writeJSON(w, http.StatusCreated, toQueryResponse(created))
}

// recordTransfers stores the recent transfers reported by the ledger
// under the new query. Best effort: a ledger hiccup here must not fail
// the creation that already committed.
func (h *Handler) recordTransfers(ctx context.Context, created *domain.AddressQuery) {
	events, err := h.ledger.ListTransfers(ctx, created.Address, h.transferLimit)
	if err != nil {
		log.Printf("list transfers for %s: %v", created.Address, err)
		return
	}
	if len(events) == 0 {
		return
	}

	rows := make([]any, len(events))
	for i, ev := range events {
		rows[i] = map[string]any{
			"address_query_id": created.ID,
			"tx_id":            ev.TxID,
			"amount":           ev.Amount,
			"to_address":       ev.ToAddress,
		}
	}

	result, err := h.transfers.CreateBulk(ctx, map[string]any{"transfers": rows}, "transfers", "")
	if err != nil {
		log.Printf("record transfers for %s: %v", created.Address, err)
		return
	}

	for _, ev := range events {
		created.Transfers = append(created.Transfers, domain.Transfer{
			AddressQueryID: created.ID,
			TxID:           ev.TxID,
			Amount:         ev.Amount,
			ToAddress:      ev.ToAddress,
		})
	}
	for i, idRow := range result["transfers"] {
		if i >= len(created.Transfers) {
			break
		}
		if id, ok := idRow["id"].(int64); ok {
			created.Transfers[i].ID = id
		}
	}
}

func parseRelations(r *http.Request) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("relations"))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	relations := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			relations = append(relations, p)
		}
	}
	return relations
}

func (h *Handler) listQueries(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	opts := domain.ListOptions{
		Relations: parseRelations(r),
		SortField: params.Get("sort"),
		SortOrder: domain.SortDirection(params.Get("order")),
	}

	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			badRequest(w, "invalid offset")
			return
		}
		opts.Page.Offset = &offset
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(w, "invalid limit")
			return
		}
		opts.Page.Limit = &limit
	}

	if address := strings.TrimSpace(params.Get("address")); address != "" {
		opts.Filters = append(opts.Filters, domain.Eq("address", address))
	}
	if raw := params.Get("min_balance"); raw != "" {
		minBalance, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(w, "invalid min_balance")
			return
		}
		opts.Filters = append(opts.Filters, domain.Gte("trx_balance", minBalance))
	}

	rows, err := h.queries.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]queryResponse, len(rows))
	for i, q := range rows {
		out[i] = toQueryResponse(q)
	}
	writeJSON(w, http.StatusOK, out)
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

func (h *Handler) retrieveQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	relations := parseRelations(r)

	// Plain id fetches go through the per-request loader so concurrent
	// lookups batch into one round trip.
	if len(relations) == 0 {
		if loader := middleware.QueryLoaderFromContext(r.Context()); loader != nil {
			query, err := loader.Load(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			if query == nil {
				writeError(w, domain.NotFoundError{Model: "AddressQuery", ID: id})
				return
			}
			writeJSON(w, http.StatusOK, toQueryResponse(query))
			return
		}
	}

	query, err := h.queries.Retrieve(r.Context(), id, relations...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueryResponse(query))
}

func (h *Handler) updateQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	updated, err := h.queries.Update(r.Context(), data, id, parseRelations(r)...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueryResponse(updated))
}

func (h *Handler) deleteQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	if err := h.queries.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createBulk(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if _, ok := data["queries"]; !ok {
		badRequest(w, `payload must contain a "queries" list`)
		return
	}

	result, err := h.queries.CreateBulk(r.Context(), data, "queries", "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
