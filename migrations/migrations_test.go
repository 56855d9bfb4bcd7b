package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(FS, down); err != nil {
			t.Errorf("%s has no matching %s", up, down)
		}
	}
}

func TestFailureTableMatchesInsert(t *testing.T) {
	var schema strings.Builder
	for _, name := range []string{"000001_remote_failures.up.sql", "000002_failure_retryable.up.sql"} {
		data, err := fs.ReadFile(FS, name)
		if err != nil {
			t.Fatal(err)
		}
		schema.Write(data)
	}
	for _, col := range []string{"occurred_at", "operation", "provider", "category", "status_code", "duration_ms", "message", "retryable"} {
		if !strings.Contains(schema.String(), col) {
			t.Errorf("schema is missing column %s", col)
		}
	}
}
