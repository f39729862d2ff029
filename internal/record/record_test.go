package record

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

type fieldKey string

func TestMap_Order(t *testing.T) {
	r := New[string]()
	r.Set("b", 1).Set("a", 2).Set("c", 3)
	r.Set("b", 10) // existing key keeps its slot

	if diff := cmp.Diff([]string{"b", "a", "c"}, r.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if got := r.Value("b"); got != 10 {
		t.Errorf("Value(b) = %v, want 10", got)
	}

	r.Delete("a")
	r.Delete("missing")
	if diff := cmp.Diff([]string{"b", "c"}, r.Keys()); diff != "" {
		t.Errorf("Keys after Delete mismatch (-want +got):\n%s", diff)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestMap_TypedKeys(t *testing.T) {
	m := New[fieldKey]()
	m.Set("amount", 5)
	if !m.Has(fieldKey("amount")) {
		t.Error("Has(amount) = false")
	}
}

func TestMap_NilSafe(t *testing.T) {
	var r *Record
	if r.Len() != 0 || r.Has("x") || r.Value("x") != nil || r.Keys() != nil {
		t.Error("nil record should behave as empty")
	}
	r.Range(func(string, any) bool { t.Error("Range visited a nil record"); return true })
}

func TestMap_PresentNil(t *testing.T) {
	r := New[string]().Set("x", nil)
	v, ok := r.Get("x")
	if !ok || v != nil {
		t.Errorf("Get(x) = %v, %v; want nil, true", v, ok)
	}
}

func TestFromMap(t *testing.T) {
	r := FromMap(map[string]any{"z": 1, "y": 2, "name": "n", "a": 3}, "name", "missing")
	if diff := cmp.Diff([]string{"name", "a", "y", "z"}, r.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestClone_IsShallowCopy(t *testing.T) {
	r := New[string]().Set("a", 1)
	c := r.Clone()
	c.Set("b", 2)
	if r.Has("b") {
		t.Error("Clone shares keys with the original")
	}
}

// ============================================================================
// JSON
// ============================================================================

func TestMarshalJSON_KeepsOrder(t *testing.T) {
	r := New[string]().Set("zeta", 1).Set("alpha", "x").Set("nested", New[string]().Set("b", true).Set("a", nil))
	got, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"zeta":1,"alpha":"x","nested":{"b":true,"a":null}}`
	if string(got) != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"b":1.50,"a":{"y":1,"x":2},"l":[1,"two",{"k":null}]}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a", "l"}, r.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if got, ok := r.Value("b").(json.Number); !ok || got != "1.50" {
		t.Errorf("b = %#v, want json.Number(1.50)", r.Value("b"))
	}
	nested, ok := r.Value("a").(*Record)
	if !ok {
		t.Fatalf("a = %T, want *Record", r.Value("a"))
	}
	if diff := cmp.Diff([]string{"y", "x"}, nested.Keys()); diff != "" {
		t.Errorf("nested keys mismatch (-want +got):\n%s", diff)
	}
	list, ok := r.Value("l").([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("l = %#v, want 3 elements", r.Value("l"))
	}
}

func TestUnmarshalJSON_NotObject(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
		t.Error("Unmarshal of an array succeeded")
	}
}

// ============================================================================
// String / IsStructured
// ============================================================================

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"int", 42, "42"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"timestamp", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), "2024-03-01T09:30:00Z"},
		{"record", New[string]().Set("k", "v"), `{"k":"v"}`},
		{"slice", []string{"a", "b"}, `["a","b"]`},
		{"json number", json.Number("7.10"), "7.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.in); got != tt.want {
				t.Errorf("String(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsStructured(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{"x", false},
		{[]byte("x"), false},
		{time.Now(), false},
		{3, false},
		{New[string](), true},
		{map[string]any{}, true},
		{[]any{1}, true},
		{struct{ A int }{1}, true},
	}
	for _, tt := range tests {
		if got := IsStructured(tt.in); got != tt.want {
			t.Errorf("IsStructured(%T) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
