package dbinit

import "testing"

func TestReplaceDBName(t *testing.T) {
	cases := []struct{ in, db, want string }{
		{"postgres://u:p@h:5432/postgres?sslmode=disable", "storefront", "postgres://u:p@h:5432/storefront?sslmode=disable"},
		{"postgres://u@h/postgres", "storefront", "postgres://u@h/storefront"},
	}
	for _, c := range cases {
		got, err := replaceDBName(c.in, c.db)
		if err != nil {
			t.Fatalf("replaceDBName(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("expected %s, got %s", c.want, got)
		}
	}
	if _, err := replaceDBName("nodb", "x"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestMigrationFiles_Sorted(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) == 0 || files[0] != "0001_transfer_state.sql" {
		t.Fatalf("unexpected migrations %v", files)
	}
}
