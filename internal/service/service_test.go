package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"tronquery/internal/domain"
	"tronquery/internal/schema"
)

// fakeStore is an in-memory Store implementation with the same observable
// semantics as the pgx engine: equality filtering with set-difference
// exclusion, id-ordered listings and sequential generated ids.
type fakeStore struct {
	model  schema.Model[domain.AddressQuery]
	byID   map[int64]*domain.AddressQuery
	nextID int64

	lastListOpts domain.ListOptions
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	model := schema.AddressQuery()
	if err := model.Validate(); err != nil {
		t.Fatalf("model failed validation: %v", err)
	}
	return &fakeStore{model: model, byID: map[int64]*domain.AddressQuery{}}
}

func (f *fakeStore) matches(q *domain.AddressQuery, fields map[string]any) bool {
	for key, want := range fields {
		var got any
		switch key {
		case "id":
			got = q.ID
		case "address":
			got = q.Address
		case "trx_balance":
			got = q.TrxBalance
		case "bandwidth":
			got = q.Bandwidth
		case "energy":
			got = q.Energy
		default:
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}

func (f *fakeStore) FilterByFields(_ context.Context, filter, exclude map[string]any, _ ...string) ([]*domain.AddressQuery, error) {
	var out []*domain.AddressQuery
	for _, q := range f.byID {
		if !f.matches(q, filter) {
			continue
		}
		if len(exclude) > 0 && f.matches(q, exclude) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeStore) List(_ context.Context, opts domain.ListOptions) ([]*domain.AddressQuery, error) {
	f.lastListOpts = opts

	out := make([]*domain.AddressQuery, 0, len(f.byID))
	for _, q := range f.byID {
		out = append(out, q)
	}

	if opts.SortField == "id" {
		sort.Slice(out, func(i, j int) bool {
			if opts.SortOrder == domain.SortDesc {
				return out[i].ID > out[j].ID
			}
			return out[i].ID < out[j].ID
		})
	}

	if opts.Page.Offset != nil && *opts.Page.Offset < len(out) {
		out = out[*opts.Page.Offset:]
	} else if opts.Page.Offset != nil {
		out = nil
	}
	if opts.Page.Limit != nil && *opts.Page.Limit < len(out) {
		out = out[:*opts.Page.Limit]
	}
	return out, nil
}

func (f *fakeStore) Scalar(ctx context.Context, criteria any, relations ...string) (*domain.AddressQuery, error) {
	filter, ok := criteria.(map[string]any)
	if !ok {
		return nil, errors.New("fake store only supports field maps")
	}
	rows, err := f.FilterByFields(ctx, filter, nil, relations...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (f *fakeStore) Create(_ context.Context, fields map[string]any) (*domain.AddressQuery, error) {
	inst := &domain.AddressQuery{}
	if err := f.model.SetFields(inst, fields); err != nil {
		return nil, err
	}
	f.nextID++
	inst.ID = f.nextID
	inst.CreatedAt = time.Now()
	f.byID[inst.ID] = inst
	return inst, nil
}

func (f *fakeStore) BulkInsert(ctx context.Context, rows []map[string]any, _ string) ([]any, error) {
	ids := make([]any, len(rows))
	for i, row := range rows {
		inst, err := f.Create(ctx, row)
		if err != nil {
			return nil, err
		}
		ids[i] = inst.ID
	}
	return ids, nil
}

func (f *fakeStore) Update(_ context.Context, inst *domain.AddressQuery, fields map[string]any) error {
	if _, ok := fields[f.model.IDColumn]; ok {
		return errors.New("id is immutable")
	}
	return f.model.SetFields(inst, fields)
}

func (f *fakeStore) Delete(_ context.Context, inst *domain.AddressQuery) error {
	delete(f.byID, inst.ID)
	return nil
}

func newQueryService(t *testing.T) (*Service[domain.AddressQuery], *fakeStore) {
	t.Helper()
	store := newFakeStore(t)
	return New(schema.AddressQuery(), store), store
}

func createQuery(t *testing.T, svc *Service[domain.AddressQuery], address string, balance float64) *domain.AddressQuery {
	t.Helper()
	inst, err := svc.Create(context.Background(), map[string]any{
		"address":     address,
		"trx_balance": balance,
		"bandwidth":   int64(0),
		"energy":      int64(0),
	})
	if err != nil {
		t.Fatalf("create %s: %v", address, err)
	}
	return inst
}

func TestCreateEchoesFieldsAndAssignsID(t *testing.T) {
	svc, _ := newQueryService(t)

	inst := createQuery(t, svc, "T1", 104.837)

	if inst.ID == 0 {
		t.Fatal("expected a generated id")
	}
	if inst.Address != "T1" || inst.TrxBalance != 104.837 || inst.Bandwidth != 0 || inst.Energy != 0 {
		t.Fatalf("fields not echoed exactly: %+v", inst)
	}

	listed, err := svc.List(context.Background(), domain.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, q := range listed {
		if q.ID == inst.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("created instance missing from listing")
	}
}

func TestCreateDuplicateAddressFailsWithConflict(t *testing.T) {
	svc, _ := newQueryService(t)

	createQuery(t, svc, "T1", 104.837)

	_, err := svc.Create(context.Background(), map[string]any{
		"address":     "T1",
		"trx_balance": 1.0,
		"bandwidth":   int64(0),
		"energy":      int64(0),
	})

	var conflict domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Model != "AddressQuery" || conflict.Field != "address" || conflict.Value != "T1" {
		t.Fatalf("conflict details wrong: %+v", conflict)
	}
}

func TestRetrieveRoundTrip(t *testing.T) {
	svc, _ := newQueryService(t)

	created := createQuery(t, svc, "TAbc", 55.5)

	got, err := svc.Retrieve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got.Address != "TAbc" || got.TrxBalance != 55.5 || got.Bandwidth != 0 || got.Energy != 0 {
		t.Fatalf("retrieved fields differ from created: %+v", got)
	}
}

func TestRetrieveMissingFailsWithNotFound(t *testing.T) {
	svc, _ := newQueryService(t)

	_, err := svc.Retrieve(context.Background(), 42)

	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Error() != "AddressQuery with ID №42 not found" {
		t.Fatalf("unexpected message: %q", notFound.Error())
	}
}

func TestUpdateMissingFailsWithNotFound(t *testing.T) {
	svc, _ := newQueryService(t)

	_, err := svc.Update(context.Background(), map[string]any{"energy": int64(1)}, 7)

	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteMissingFailsWithNotFound(t *testing.T) {
	svc, _ := newQueryService(t)

	err := svc.Delete(context.Background(), 7)

	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteThenRetrieveFailsWithNotFound(t *testing.T) {
	svc, _ := newQueryService(t)
	created := createQuery(t, svc, "T1", 1)

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := svc.Retrieve(context.Background(), created.ID)
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestUpdateWithEmptyMapLeavesFieldsUnchanged(t *testing.T) {
	svc, _ := newQueryService(t)
	created := createQuery(t, svc, "T1", 104.837)

	updated, err := svc.Update(context.Background(), map[string]any{}, created.ID)
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if updated.Address != "T1" || updated.TrxBalance != 104.837 || updated.Bandwidth != 0 || updated.Energy != 0 {
		t.Fatalf("fields changed by empty update: %+v", updated)
	}
}

func TestUpdateRejectsIDReassignment(t *testing.T) {
	svc, store := newQueryService(t)
	created := createQuery(t, svc, "T1", 1)

	_, err := svc.Update(context.Background(), map[string]any{"id": int64(9), "energy": int64(5)}, created.ID)
	if err == nil {
		t.Fatal("id reassignment accepted")
	}
	if store.byID[created.ID] == nil || store.byID[created.ID].ID != created.ID {
		t.Error("stored instance id changed")
	}
}

func TestUpdateExcludesOwnRowFromUniquenessCheck(t *testing.T) {
	svc, _ := newQueryService(t)
	created := createQuery(t, svc, "T1", 1)

	// Re-asserting the instance's own unique value must not conflict.
	updated, err := svc.Update(context.Background(), map[string]any{"address": "T1", "energy": int64(9)}, created.ID)
	if err != nil {
		t.Fatalf("self update: %v", err)
	}
	if updated.Energy != 9 {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestUpdateToTakenUniqueValueFailsWithConflict(t *testing.T) {
	svc, _ := newQueryService(t)
	createQuery(t, svc, "T1", 1)
	other := createQuery(t, svc, "T2", 2)

	_, err := svc.Update(context.Background(), map[string]any{"address": "T1"}, other.ID)

	var conflict domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestListDefaultsToAscendingByID(t *testing.T) {
	svc, store := newQueryService(t)
	createQuery(t, svc, "T3", 3)
	createQuery(t, svc, "T1", 1)
	createQuery(t, svc, "T2", 2)

	rows, err := svc.List(context.Background(), domain.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if store.lastListOpts.SortField != "id" || store.lastListOpts.SortOrder != domain.SortAsc {
		t.Fatalf("defaults not applied: %+v", store.lastListOpts)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].ID > rows[i].ID {
			t.Fatalf("listing not ascending by id: %d before %d", rows[i-1].ID, rows[i].ID)
		}
	}
}

func TestListDescendingOrder(t *testing.T) {
	svc, _ := newQueryService(t)
	createQuery(t, svc, "T1", 1)
	createQuery(t, svc, "T2", 2)

	rows, err := svc.List(context.Background(), domain.ListOptions{SortOrder: domain.SortDesc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].ID < rows[i].ID {
			t.Fatalf("listing not descending by id")
		}
	}
}

func TestListPaging(t *testing.T) {
	svc, _ := newQueryService(t)
	for _, addr := range []string{"T1", "T2", "T3", "T4"} {
		createQuery(t, svc, addr, 1)
	}

	offset, limit := 1, 2
	rows, err := svc.List(context.Background(), domain.ListOptions{
		Page: domain.PageOptions{Offset: &offset, Limit: &limit},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != 2 || rows[1].ID != 3 {
		t.Fatalf("wrong page window: %d, %d", rows[0].ID, rows[1].ID)
	}
}

func TestCreateBulkPreservesInputOrder(t *testing.T) {
	svc, _ := newQueryService(t)

	payload := map[string]any{
		"queries": []any{
			map[string]any{"address": "TA", "trx_balance": 1.0, "bandwidth": int64(0), "energy": int64(0)},
			map[string]any{"address": "TB", "trx_balance": 2.0, "bandwidth": int64(0), "energy": int64(0)},
			map[string]any{"address": "TC", "trx_balance": 3.0, "bandwidth": int64(0), "energy": int64(0)},
		},
	}

	result, err := svc.CreateBulk(context.Background(), payload, "queries", "")
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	ids := result["queries"]
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	for i, row := range ids {
		id, ok := row["id"].(int64)
		if !ok {
			t.Fatalf("id %d has unexpected type %T", i, row["id"])
		}
		if id != int64(i+1) {
			t.Fatalf("ids out of input order: position %d has id %d", i, id)
		}
	}
}

func TestCreateBulkRejectsMissingKey(t *testing.T) {
	svc, _ := newQueryService(t)

	if _, err := svc.CreateBulk(context.Background(), map[string]any{}, "queries", ""); err == nil {
		t.Fatal("expected error for missing bulk key")
	}
}
