package options

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/ohler55/ojg/oj"
)

const usersJSON = `{
  "data": {
    "items": [
      {"id": 1, "name": "Ann", "status": "active", "score": 10, "team": {"region": "EU"}},
      {"id": 2, "name": "Ben", "status": "pending", "score": 5, "team": {"region": "US"}},
      {"id": 3, "name": "Cal", "status": "disabled", "score": 7, "team": {"region": "EU"}}
    ]
  }
}`

func decodeDoc(s string) (any, error) {
	return oj.ParseString(s)
}

func items(t *testing.T) []any {
	t.Helper()
	doc, err := decodeDoc(usersJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	list, err := Extract(doc, "data.items")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return list
}

func names(list []any) []string {
	var out []string
	for _, it := range list {
		out = append(out, record.String(lookup(it, "name")))
	}
	return out
}

// ============================================================================
// Filters
// ============================================================================

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters schema.Filters
		want    []string
	}{
		{
			name:    "no filters keeps everything",
			filters: nil,
			want:    []string{"Ann", "Ben", "Cal"},
		},
		{
			name:    "in list",
			filters: schema.Filters{{Field: "status", Operator: schema.OpIn, Value: []any{"active", "pending"}}},
			want:    []string{"Ann", "Ben"},
		},
		{
			name:    "not in list",
			filters: schema.Filters{{Field: "status", Operator: schema.OpNotIn, Value: []any{"active", "pending"}}},
			want:    []string{"Cal"},
		},
		{
			name:    "equals",
			filters: schema.Filters{{Field: "status", Operator: schema.OpEquals, Value: "pending"}},
			want:    []string{"Ben"},
		},
		{
			name:    "not equals",
			filters: schema.Filters{{Field: "status", Operator: schema.OpNotEquals, Value: "pending"}},
			want:    []string{"Ann", "Cal"},
		},
		{
			name:    "contains is case-insensitive",
			filters: schema.Filters{{Field: "name", Operator: schema.OpContains, Value: "AN"}},
			want:    []string{"Ann"},
		},
		{
			name:    "not contains",
			filters: schema.Filters{{Field: "name", Operator: schema.OpNotContains, Value: "a"}},
			want:    []string{"Ben"},
		},
		{
			name:    "greater than numeric string",
			filters: schema.Filters{{Field: "score", Operator: schema.OpGreater, Value: "6"}},
			want:    []string{"Ann", "Cal"},
		},
		{
			name:    "less than number",
			filters: schema.Filters{{Field: "score", Operator: schema.OpLess, Value: 7}},
			want:    []string{"Ben"},
		},
		{
			name:    "nested field path",
			filters: schema.Filters{{Field: "team.region", Operator: schema.OpEquals, Value: "EU"}},
			want:    []string{"Ann", "Cal"},
		},
		{
			name: "filters are AND-combined",
			filters: schema.Filters{
				{Field: "team.region", Operator: schema.OpEquals, Value: "EU"},
				{Field: "score", Operator: schema.OpGreater, Value: 8},
			},
			want: []string{"Ann"},
		},
		{
			name:    "operator alias",
			filters: schema.Filters{{Field: "status", Operator: "!=", Value: "active"}},
			want:    []string{"Ben", "Cal"},
		},
		{
			name:    "unknown operator matches nothing",
			filters: schema.Filters{{Field: "status", Operator: "between", Value: "x"}},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(ApplyFilters(items(t), tt.filters))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ApplyFilters mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyFilters_InComparesWholeValue(t *testing.T) {
	list := []any{
		map[string]any{"name": "Dee", "status": "inactive, archived", "tags": []any{"vip", "eu"}},
		map[string]any{"name": "Eve", "status": "active", "tags": []any{"us"}},
	}
	tests := []struct {
		name   string
		filter schema.Filter
		want   []string
	}{
		{"in does not split the value", schema.Filter{Field: "status", Operator: schema.OpIn, Value: []any{"archived"}}, nil},
		{"not in does not split the value", schema.Filter{Field: "status", Operator: schema.OpNotIn, Value: []any{"archived"}}, []string{"Dee", "Eve"}},
		{"in matches whole value", schema.Filter{Field: "status", Operator: schema.OpIn, Value: []any{"inactive, archived"}}, []string{"Dee"}},
		{"comma-separated operand", schema.Filter{Field: "status", Operator: schema.OpIn, Value: "active, pending"}, []string{"Eve"}},
		{"list value matches any element", schema.Filter{Field: "tags", Operator: schema.OpIn, Value: []any{"eu"}}, []string{"Dee"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(ApplyFilters(list, schema.Filters{tt.filter}))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ApplyFilters mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatch_MissingValue(t *testing.T) {
	tests := []struct {
		op   schema.FilterOp
		want bool
	}{
		{schema.OpEquals, false},
		{schema.OpNotEquals, true},
		{schema.OpContains, false},
		{schema.OpNotContains, true},
		{schema.OpGreater, false},
		{schema.OpLess, false},
		{schema.OpIn, false},
		{schema.OpNotIn, true},
	}
	for _, tt := range tests {
		if got := Match(nil, schema.Filter{Operator: tt.op, Value: "x"}); got != tt.want {
			t.Errorf("Match(nil, %s) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

// ============================================================================
// Mapping
// ============================================================================

func TestMapItems(t *testing.T) {
	got := MapItems(items(t), "id", "name")
	want := []schema.Option{
		{Label: "Ann", Value: int64(1)},
		{Label: "Ben", Value: int64(2)},
		{Label: "Cal", Value: int64(3)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapItems mismatch (-want +got):\n%s", diff)
	}
}

func TestMapItems_ScalarsAndDefaults(t *testing.T) {
	list := []any{"red", map[string]any{"value": "g", "label": "Green"}, map[string]any{"value": "b"}, map[string]any{"label": "no value"}, nil}
	got := MapItems(list, "", "")
	want := []schema.Option{
		{Label: "red", Value: "red"},
		{Label: "Green", Value: "g"},
		{Label: "b", Value: "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapItems mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract(t *testing.T) {
	doc, _ := decodeDoc(`[1,2]`)
	if got, err := Extract(doc, ""); err != nil || len(got) != 2 {
		t.Errorf("Extract(root array) = %v, %v", got, err)
	}

	obj, _ := decodeDoc(`{"a": 1}`)
	if _, err := Extract(obj, ""); err == nil {
		t.Error("Extract(object, \"\") error = nil, want error")
	}
	if _, err := Extract(obj, "missing"); err == nil {
		t.Error("Extract(missing path) error = nil, want error")
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name string
		src  schema.RemoteSource
		dep  any
		want string
	}{
		{
			name: "no dependency",
			src:  schema.RemoteSource{URL: "http://x/api/cities"},
			want: "http://x/api/cities",
		},
		{
			name: "placeholder",
			src:  schema.RemoteSource{URL: "http://x/api/countries/{country}/cities", DependsOn: "country"},
			dep:  "New Zealand",
			want: "http://x/api/countries/New%20Zealand/cities",
		},
		{
			name: "query parameter",
			src:  schema.RemoteSource{URL: "http://x/api/cities?limit=5", DependsOn: "country"},
			dep:  "NZ",
			want: "http://x/api/cities?country=NZ&limit=5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURL(&tt.src, tt.dep); got != tt.want {
				t.Errorf("BuildURL = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Fetching
// ============================================================================

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(usersJSON))
	}))
	defer srv.Close()

	src := &schema.RemoteSource{
		URL:      srv.URL,
		Headers:  map[string]string{"X-Token": "secret"},
		Path:     "$.data.items",
		ValueKey: "id",
		LabelKey: "name",
		Filter:   schema.Filters{{Field: "status", Operator: schema.OpIn, Value: []any{"active", "pending"}}},
	}

	got, err := NewFetcher(srv.Client()).Fetch(context.Background(), "owner", src, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []schema.Option{{Label: "Ann", Value: int64(1)}, {Label: "Ben", Value: int64(2)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_TransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/garbage":
			w.Write([]byte("{not json"))
		default:
			w.Write([]byte(`{"x": 1}`))
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/broken", "/garbage", "/object"} {
		t.Run(path, func(t *testing.T) {
			_, err := NewFetcher(srv.Client()).Fetch(context.Background(), "f", &schema.RemoteSource{URL: srv.URL + path}, nil)
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("error = %v, want *TransportError", err)
			}
			if te.Field != "f" {
				t.Errorf("Field = %q, want f", te.Field)
			}
		})
	}
}

func TestLoad_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	field := schema.Field{Key: "owner", Kind: schema.KindSelect,
		Options: &schema.OptionsSource{Remote: &schema.RemoteSource{URL: srv.URL}}}

	got := NewFetcher(srv.Client()).Load(context.Background(), field, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Load = %#v, want empty non-nil list", got)
	}
}

func TestLoadAllAndRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("country") {
		case "NZ":
			w.Write([]byte(`["Auckland","Wellington"]`))
		case "FR":
			w.Write([]byte(`["Paris"]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	sch := schema.MustNew("address",
		schema.Field{Key: "country", Kind: schema.KindSelect, Options: &schema.OptionsSource{Static: []schema.Option{
			{Label: "New Zealand", Value: "NZ"}, {Label: "France", Value: "FR"},
		}}},
		schema.Field{Key: "city", Kind: schema.KindSelect, Options: &schema.OptionsSource{Remote: &schema.RemoteSource{
			URL: srv.URL + "/cities", DependsOn: "country",
		}}},
		schema.Field{Key: "street", Kind: schema.KindText},
	)

	f := NewFetcher(srv.Client())
	state := NewState()
	values := record.New[string]()

	if err := f.LoadAll(context.Background(), sch, values, state); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if diff := cmp.Diff([]string{"city", "country"}, state.Fields()); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
	if cities, _ := state.Get("city"); len(cities) != 0 {
		t.Errorf("city options before country chosen = %v, want none", cities)
	}
	if calls.Load() != 0 {
		t.Errorf("remote calls before country chosen = %d, want 0", calls.Load())
	}

	values.Set("country", "NZ")
	if err := f.Refresh(context.Background(), sch, "country", values, state); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	cities, _ := state.Get("city")
	want := []schema.Option{{Label: "Auckland", Value: "Auckland"}, {Label: "Wellington", Value: "Wellington"}}
	if diff := cmp.Diff(want, cities); diff != "" {
		t.Errorf("city options mismatch (-want +got):\n%s", diff)
	}

	// Refreshing an unrelated field fetches nothing.
	before := calls.Load()
	if err := f.Refresh(context.Background(), sch, "street", values, state); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if calls.Load() != before {
		t.Errorf("unrelated refresh made %d calls", calls.Load()-before)
	}
}

func TestState_IsolatedPerCaller(t *testing.T) {
	a, b := NewState(), NewState()
	a.Set("city", []schema.Option{{Label: "Paris", Value: "Paris"}})

	if _, ok := b.Get("city"); ok {
		t.Error("state leaked between callers")
	}
	snap := a.Snapshot()
	snap["city"][0].Label = "changed"
	if got, _ := a.Get("city"); got[0].Label != "Paris" {
		t.Error("Snapshot shares storage with State")
	}

	a.Forget("city")
	if _, ok := a.Get("city"); ok {
		t.Error("Forget did not remove field")
	}
}
