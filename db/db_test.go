package db

import (
	"context"
	"testing"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"", Postgres, false},
		{"pgx", Postgres, false},
		{"Postgres", Postgres, false},
		{"sqlite", SQLite, false},
		{" sqlite3 ", SQLite, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDialect(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseDialect(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseDialect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM games WHERE user_id = ? AND name = ?"
	if got := SQLite.Rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "SELECT * FROM games WHERE user_id = $1 AND name = $2"
	if got := Postgres.Rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := map[string]string{
		":memory:":                   ":memory:?_time_format=sqlite",
		"file:bot.db?cache=shared":   "file:bot.db?cache=shared&_time_format=sqlite",
		"bot.db?_time_format=sqlite": "bot.db?_time_format=sqlite",
	}
	for in, want := range tests {
		if got := sqliteDSN(in); got != want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrateSQLiteIdempotent(t *testing.T) {
	ctx := context.Background()
	database, err := Connect(ctx, SQLite, ":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer database.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, database, SQLite); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}
	for _, table := range []string{"users", "games", "league_accounts"} {
		var name string
		err := database.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	if _, err := Connect(context.Background(), Postgres, ""); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
