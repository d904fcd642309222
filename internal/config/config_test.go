package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DSN", "postgres://localhost/marketplace")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.AppPort != "8080" || cfg.StoreDriver != DriverPostgres {
		t.Fatalf("port/driver = %s/%s", cfg.AppPort, cfg.StoreDriver)
	}
	if cfg.ListTimeout != 3*time.Second || cfg.ListMaxLimit != 100 || cfg.ListDefaultLimit != 10 {
		t.Fatalf("list settings = %v/%d/%d", cfg.ListTimeout, cfg.ListMaxLimit, cfg.ListDefaultLimit)
	}
	if cfg.ViewDedupeTTL != time.Hour {
		t.Fatalf("view ttl = %v", cfg.ViewDedupeTTL)
	}
	if cfg.MilestonePolicy != MilestonesNotExceed {
		t.Fatalf("milestone policy = %s", cfg.MilestonePolicy)
	}
	if !cfg.RedisEnabled || cfg.Production() {
		t.Fatal("unexpected redis/production defaults")
	}
}

func TestParseRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", DriverMemory)
	if _, err := Parse(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres without dsn", map[string]string{"STORE_DRIVER": DriverPostgres}, "DB_DSN"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}, "STORE_DRIVER"},
		{"unknown milestone policy", map[string]string{"STORE_DRIVER": DriverMemory, "MILESTONE_POLICY": "sum"}, "MILESTONE_POLICY"},
		{"default above max", map[string]string{"STORE_DRIVER": DriverMemory, "LIST_DEFAULT_LIMIT": "200"}, "LIST_DEFAULT_LIMIT"},
		{"bad duration", map[string]string{"STORE_DRIVER": DriverMemory, "LIST_TIMEOUT": "soon"}, "ListTimeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv("DB_DSN", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
			if !strings.HasPrefix(err.Error(), "parse env:") {
				t.Fatalf("err = %v, want parse env prefix", err)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{CORSOrigins: " http://a.test ,,http://b.test"}
	if got := cfg.AllowedOrigins(); got != "http://a.test, http://b.test" {
		t.Fatalf("origins = %q", got)
	}
}
