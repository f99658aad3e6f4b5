package db

import (
	"context"
	"testing"

	"ipcheck-tools/internal/infrastructure/config"
)

func TestConnect_Empty(t *testing.T) {
	ctx := context.Background()
	cfg := config.DBConfig{DSN: ""}
	db, err := Connect(ctx, cfg)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if db != nil {
		t.Error("expected nil db for empty DSN")
	}
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), config.DBConfig{Driver: "mysql", DSN: "x"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestDriverName(t *testing.T) {
	cases := map[string]string{"": "pgx", "pgx": "pgx", "postgres": "postgres", "pq": "postgres"}
	for in, want := range cases {
		got, err := driverName(in)
		if err != nil || got != want {
			t.Errorf("driverName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
