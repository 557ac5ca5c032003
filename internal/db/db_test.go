package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"folders", "templates"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "prompted.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()

	if d.Path() != path {
		t.Errorf("Path() = %q", d.Path())
	}
}

func TestTitleLengthEnforced(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}
	_, err = d.Exec(`INSERT INTO templates (title, content, created_at, updated_at) VALUES (?, 'c', ?, ?)`,
		string(long), Now(), Now())
	if err == nil {
		t.Error("expected CHECK constraint to reject a 201-character title")
	}
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	seeded, err := d.Seed(ctx)
	if err != nil || !seeded {
		t.Fatalf("first Seed() = %v, %v", seeded, err)
	}

	var folders, favorites int
	d.QueryRow("SELECT COUNT(*) FROM folders").Scan(&folders)
	d.QueryRow("SELECT COUNT(*) FROM templates WHERE is_favorite = 1").Scan(&favorites)
	if folders != 3 || favorites != 1 {
		t.Errorf("folders=%d favorites=%d, want 3 and 1", folders, favorites)
	}

	seeded, err = d.Seed(ctx)
	if err != nil || seeded {
		t.Errorf("second Seed() = %v, %v, want false, nil", seeded, err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := Now()
	parsed := ParseTime(now)
	if parsed.IsZero() || time.Since(parsed) > time.Minute {
		t.Errorf("ParseTime(%q) = %v", now, parsed)
	}
	if !ParseTime("garbage").IsZero() {
		t.Error("malformed value should give the zero time")
	}
}
