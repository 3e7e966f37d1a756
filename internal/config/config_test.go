package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr default: %q", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" {
		t.Fatalf("driver default: %q", c.Storage.Driver)
	}
	if c.Queue.MaxDeliver != 6 {
		t.Fatalf("max_deliver default: %d", c.Queue.MaxDeliver)
	}
	if c.Queue.RetryDelay != 5*time.Minute {
		t.Fatalf("retry_delay default: %v", c.Queue.RetryDelay)
	}
	if c.Scheduler.ManagerDigestLead != time.Hour {
		t.Fatalf("manager_digest_lead default: %v", c.Scheduler.ManagerDigestLead)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9000"
storage:
  driver: postgres
  dsn: postgres://localhost/digestus
smtp:
  host: smtp.example.com
  port: 587
`)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("SMTP_TLS", "SSL")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":9999" {
		t.Fatalf("env override lost: %q", c.Server.Addr)
	}
	if c.SMTP.TLS != "ssl" {
		t.Fatalf("smtp tls not normalized: %q", c.SMTP.TLS)
	}
	if c.Storage.DSN != "postgres://localhost/digestus" {
		t.Fatalf("dsn: %q", c.Storage.DSN)
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	p := writeYAML(t, "storage:\n  driver: postgres\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
}

func TestLoadProdRejectsPlaintextAdminKey(t *testing.T) {
	p := writeYAML(t, `
app:
  env: prod
admin:
  api_key: super-secret
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for plaintext admin key in prod")
	}
}
