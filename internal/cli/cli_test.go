package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/gridkit/internal/config"
	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(config.MapEnv(nil))
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--schemas", "testdata/schemas"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// ============================================================================
// validate
// ============================================================================

func TestValidate_Dir(t *testing.T) {
	out, err := run(t, "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if want := "ok  contacts (5 fields)\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestValidate_Files(t *testing.T) {
	bad := writeFile(t, "broken.yaml", "fields:\n  a:\n    kind: rainbow\n")
	out, err := run(t, "validate", "testdata/schemas/contacts.yaml", bad)
	if err == nil {
		t.Fatal("validate with a broken file succeeded")
	}
	if !strings.Contains(out, "ok  contacts") || !strings.Contains(out, "bad "+bad) {
		t.Errorf("output = %q, want one ok and one bad line", out)
	}
}

// ============================================================================
// columns / fields
// ============================================================================

func TestColumns(t *testing.T) {
	out, err := run(t, "columns", "contacts")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want header + 5:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "KEY") || !strings.HasPrefix(lines[1], "name") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestColumns_JSON(t *testing.T) {
	out, err := run(t, "--json", "columns", "contacts")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	var cols []struct {
		Key      string `json:"key"`
		Sortable bool   `json:"sortable"`
	}
	if err := json.Unmarshal([]byte(out), &cols); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var sortable []string
	for _, c := range cols {
		if c.Sortable {
			sortable = append(sortable, c.Key)
		}
	}
	if diff := cmp.Diff([]string{"name", "amount"}, sortable); diff != "" {
		t.Errorf("sortable columns mismatch (-want +got):\n%s", diff)
	}
}

func TestColumns_UnknownEntity(t *testing.T) {
	if _, err := run(t, "columns", "widgets"); !errors.Is(err, core.ErrUnknownEntity) {
		t.Errorf("error = %v, want ErrUnknownEntity", err)
	}
}

func TestFields(t *testing.T) {
	out, err := run(t, "fields", "contacts")
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	var reason string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "reason") {
			reason = line
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(reason), "status") {
		t.Errorf("reason line = %q, want it to depend on status", reason)
	}
}

// ============================================================================
// import
// ============================================================================

func TestImport_Preview(t *testing.T) {
	path := writeFile(t, "contacts.csv", "Name *,Email\nBob,bob@example.com\nalice,alice@example.com\n")
	out, err := run(t, "import", "contacts", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if want := "contacts.csv: 2 rows, 2 accepted, 0 rejected\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestImport_Rejected(t *testing.T) {
	path := writeFile(t, "contacts.csv", "Name *,Email\nBob,not-an-email\n")
	out, err := run(t, "import", "contacts", path)
	if !errors.Is(err, errRejected) {
		t.Fatalf("error = %v, want errRejected", err)
	}
	if !strings.Contains(out, "Row 2: Email must be a valid email address") {
		t.Errorf("output = %q, want the row error", out)
	}
}

func TestImport_CommitNeedsDatabase(t *testing.T) {
	path := writeFile(t, "contacts.csv", "Name *\nBob\n")
	_, err := run(t, "import", "--commit", "contacts", path)
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %v, want DATABASE_URL hint", err)
	}
}

// ============================================================================
// template
// ============================================================================

func TestTemplate_Stdout(t *testing.T) {
	out, err := run(t, "template", "contacts", "-o", "-", "--example")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + example:\n%s", len(lines), out)
	}
	if lines[0] != "Name *,Email,Amount,Status,Pending reason" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Alice,") {
		t.Errorf("example row = %q, want it to start with Alice", lines[1])
	}
}

func TestTemplate_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	out, err := run(t, "template", "contacts", "--format", "xlsx", "-o", path)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if out != "wrote "+path+"\n" {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("xlsx template is not a zip archive")
	}
}

func TestTemplate_BadFormat(t *testing.T) {
	if _, err := run(t, "template", "contacts", "--format", "pdf"); err == nil {
		t.Error("template --format pdf succeeded")
	}
}
