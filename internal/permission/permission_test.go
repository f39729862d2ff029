package permission

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleYAML = `
contacts:
  admin: ["*"]
  editor: [c, r, u]
  viewer: rv
  support: "read, refresh"
"*":
  auditor: [read, export]
  "*": [view]
`

func mustParse(t *testing.T, doc string) *Config {
	t.Helper()
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		input  string
		want   Action
		wantOK bool
	}{
		{"create", Create, true},
		{"C", Create, true},
		{" r ", Read, true},
		{"u", Update, true},
		{"d", Delete, true},
		{"v", View, true},
		{"f", Refresh, true},
		{"refresh", Refresh, true},
		{"e", Export, true},
		{"EXPORT", Export, true},
		{"x", "", false},
		{"publish", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseAction(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseAction(%q) = %q, %v, want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCan(t *testing.T) {
	c := mustParse(t, sampleYAML)

	tests := []struct {
		name     string
		resource string
		role     string
		action   Action
		want     bool
	}{
		{"admin wildcard grants delete", "contacts", "admin", Delete, true},
		{"editor alias create", "contacts", "editor", Create, true},
		{"editor cannot delete", "contacts", "editor", Delete, false},
		{"compact viewer read", "contacts", "viewer", Read, true},
		{"compact viewer view", "contacts", "viewer", View, true},
		{"compact viewer cannot export", "contacts", "viewer", Export, false},
		{"comma list", "contacts", "support", Refresh, true},
		{"wildcard resource", "invoices", "auditor", Export, true},
		{"role missing on resource falls back to wildcard resource", "contacts", "auditor", Export, true},
		{"exact role wins over wildcard role", "contacts", "editor", View, false},
		{"wildcard role", "invoices", "guest", View, true},
		{"wildcard role lacks create", "invoices", "guest", Create, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Can(tt.resource, tt.role, tt.action); got != tt.want {
				t.Errorf("Can(%s, %s, %s) = %v, want %v", tt.resource, tt.role, tt.action, got, tt.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	c := mustParse(t, sampleYAML)

	if diff := cmp.Diff([]Action{Create, Read, Update}, c.Allowed("contacts", "editor")); diff != "" {
		t.Errorf("Allowed(editor) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Actions, c.Allowed("contacts", "admin")); diff != "" {
		t.Errorf("Allowed(admin) mismatch (-want +got):\n%s", diff)
	}
	if got := c.Allowed("nothing", "nobody"); len(got) != 1 || got[0] != View {
		t.Errorf("Allowed(nobody) = %v, want [view] from wildcard", got)
	}
	if diff := cmp.Diff([]string{"*", "contacts"}, c.Resources()); diff != "" {
		t.Errorf("Resources mismatch (-want +got):\n%s", diff)
	}
}

func TestNilConfigAllowsEverything(t *testing.T) {
	var c *Config
	if !c.Can("anything", "anyone", Delete) {
		t.Error("nil Config denied an action")
	}
	if err := c.Check("anything", "anyone", Export); err != nil {
		t.Errorf("nil Config Check = %v", err)
	}
}

func TestCheck(t *testing.T) {
	c := mustParse(t, sampleYAML)
	err := c.Check("contacts", "viewer", Delete)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Check = %v, want ErrForbidden", err)
	}
	if !strings.Contains(err.Error(), `"viewer"`) {
		t.Errorf("error = %q, want role named", err)
	}
}

func TestParse_UnknownActions(t *testing.T) {
	_, err := Parse([]byte("contacts:\n  admin: [create, publish]\n  viewer: [zap]\n  editor: reed\n"))
	if err == nil {
		t.Fatal("Parse error = nil, want unknown action")
	}
	for _, want := range []string{"publish", "zap", "reed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestParse_CompactActions(t *testing.T) {
	tests := []struct {
		in      string
		want    []Action
		wantErr bool
	}{
		{"rv", []Action{Read, View}, false},
		{"crud", []Action{Create, Read, Update, Delete}, false},
		{"RE", []Action{Read, Export}, false},
		{"reed", nil, true},
		{"vr", nil, true},
		{"rr", nil, true},
		{"rx", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := Parse([]byte("contacts:\n  viewer: " + tt.in + "\n"))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) error = nil, allowed %v", tt.in, c.Allowed("contacts", "viewer"))
				}
				if !strings.Contains(err.Error(), tt.in) {
					t.Errorf("error %q should mention %q", err, tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, c.Allowed("contacts", "viewer")); diff != "" {
				t.Errorf("Allowed mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Can("contacts", "editor", Update) {
		t.Error("loaded config lost editor update")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}
}
