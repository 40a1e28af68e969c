package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		want    options
		wantErr string
	}{
		{
			name: "defaults with env dsn",
			env:  map[string]string{envPostgresDSN: " postgres://localhost/trading "},
			want: options{direction: "up", dsn: "postgres://localhost/trading"},
		},
		{
			name: "flag dsn wins",
			args: []string{"-dsn=postgres://flag/trading", "-direction=STATUS"},
			env:  map[string]string{envPostgresDSN: "postgres://env/trading"},
			want: options{direction: "status", dsn: "postgres://flag/trading"},
		},
		{
			name: "down defaults to one step",
			args: []string{"-direction=down", "-dsn=postgres://localhost/trading"},
			want: options{direction: "down", steps: 1, dsn: "postgres://localhost/trading"},
		},
		{
			name:    "missing dsn",
			wantErr: envPostgresDSN,
		},
		{
			name:    "unsupported direction",
			args:    []string{"-direction=sideways", "-dsn=postgres://localhost/trading"},
			wantErr: "unsupported direction",
		},
		{
			name:    "negative steps",
			args:    []string{"-steps=-2", "-dsn=postgres://localhost/trading"},
			wantErr: "steps must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOptions(tt.args, envMap(tt.env))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestRun_RequiresDSN(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-direction=status"}, envMap(nil), &out)
	if err == nil || !strings.Contains(err.Error(), "is required") {
		t.Fatalf("expected missing dsn error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestRun_PostgresRoundTrip(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TRADING_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("postgres dsn is not available")
	}
	ctx := context.Background()
	env := envMap(map[string]string{envPostgresDSN: dsn})

	var out bytes.Buffer
	if err := run(ctx, []string{"-direction=up"}, env, &out); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if !strings.Contains(out.String(), "migrate up ok") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := run(ctx, []string{"-direction=status"}, env, &out); err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if !strings.Contains(out.String(), "migration status:") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
