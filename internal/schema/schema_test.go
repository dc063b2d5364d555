package schema

import (
	"reflect"
	"testing"

	"tronquery/internal/domain"
)

func TestRegisteredModelsValidate(t *testing.T) {
	if err := AddressQuery().Validate(); err != nil {
		t.Errorf("AddressQuery: %v", err)
	}
	if err := Transfer().Validate(); err != nil {
		t.Errorf("Transfer: %v", err)
	}
}

func TestValidateRejectsBrokenDefinitions(t *testing.T) {
	base := AddressQuery()

	noTable := base
	noTable.Table = ""
	if err := noTable.Validate(); err == nil {
		t.Error("missing table accepted")
	}

	dupField := base
	dupField.Fields = append(dupField.Fields, Field[domain.AddressQuery]{
		Name: "address",
		Set:  func(*domain.AddressQuery, any) error { return nil },
	})
	if err := dupField.Validate(); err == nil {
		t.Error("duplicate field accepted")
	}

	noSetter := base
	noSetter.Fields = append([]Field[domain.AddressQuery]{}, base.Fields...)
	noSetter.Fields = append(noSetter.Fields, Field[domain.AddressQuery]{Name: "extra"})
	if err := noSetter.Validate(); err == nil {
		t.Error("field without setter accepted")
	}

	dupRelation := base
	dupRelation.Relations = append(dupRelation.Relations, base.Relations[0])
	if err := dupRelation.Validate(); err == nil {
		t.Error("duplicate relation accepted")
	}
}

func TestColumnsPutIDFirst(t *testing.T) {
	got := AddressQuery().Columns()
	want := []string{"id", "address", "trx_balance", "bandwidth", "energy", "created_at"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
}

func TestColumnsAlignWithScanDest(t *testing.T) {
	for _, tc := range []struct {
		name string
		cols int
		dest int
	}{
		{"AddressQuery", len(AddressQuery().Columns()), len(AddressQuery().ScanDest(&domain.AddressQuery{}))},
		{"Transfer", len(Transfer().Columns()), len(Transfer().ScanDest(&domain.Transfer{}))},
	} {
		if tc.cols != tc.dest {
			t.Errorf("%s: %d columns but %d scan targets", tc.name, tc.cols, tc.dest)
		}
	}
}

func TestUniqueFields(t *testing.T) {
	if got := AddressQuery().UniqueFields(); !reflect.DeepEqual(got, []string{"address"}) {
		t.Errorf("AddressQuery unique fields = %v", got)
	}
	if got := Transfer().UniqueFields(); !reflect.DeepEqual(got, []string{"tx_id"}) {
		t.Errorf("Transfer unique fields = %v", got)
	}
}

func TestSetFieldsAppliesDeclaredSetters(t *testing.T) {
	model := AddressQuery()
	var q domain.AddressQuery

	err := model.SetFields(&q, map[string]any{
		"address":     "T1",
		"trx_balance": 104.837,
		// JSON decoding hands integers over as float64.
		"bandwidth": float64(600),
		"energy":    float64(0),
	})
	if err != nil {
		t.Fatalf("set fields: %v", err)
	}
	if q.Address != "T1" || q.TrxBalance != 104.837 || q.Bandwidth != 600 || q.Energy != 0 {
		t.Errorf("instance = %+v", q)
	}
}

func TestSetFieldsRejectsUnknownField(t *testing.T) {
	var q domain.AddressQuery
	err := AddressQuery().SetFields(&q, map[string]any{"owner": "x"})
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestSetFieldsRejectsWrongType(t *testing.T) {
	var q domain.AddressQuery
	if err := AddressQuery().SetFields(&q, map[string]any{"address": 12}); err == nil {
		t.Fatal("non-string address accepted")
	}
}

func TestHasFieldIncludesIDColumn(t *testing.T) {
	model := AddressQuery()
	if !model.HasField("id") {
		t.Error("id column not reported as field")
	}
	if model.HasField("transfers") {
		t.Error("relation name reported as field")
	}
}

func TestRelationLookup(t *testing.T) {
	model := AddressQuery()

	if _, ok := model.Relation("transfers"); !ok {
		t.Error("transfers relation not found")
	}
	if _, ok := model.Relation("holders"); ok {
		t.Error("unknown relation resolved")
	}
	if got := model.RelationNames(); !reflect.DeepEqual(got, []string{"transfers"}) {
		t.Errorf("relation names = %v", got)
	}
}
