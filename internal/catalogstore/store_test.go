package catalogstore

import "testing"

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"driver: bad connection", true},
		{"invalid connection", true},
		{"read tcp 127.0.0.1:3306: i/o timeout", true},
		{"Error 1062: Duplicate entry 'x' for key 'uq_warehouse_project_name'", false},
		{"context canceled", false},
	}
	for _, c := range cases {
		if got := isRetryableError(errString(c.msg)); got != c.want {
			t.Errorf("isRetryableError(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short string changed it: %q", got)
	}
	if got := truncate("a very long statement text", 10); got != "a very lon…" {
		t.Errorf("truncate long string = %q", got)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	var c Config
	c.applyDefaults()
	if c.Database != "catalogd" {
		t.Errorf("default database = %q, want catalogd", c.Database)
	}
	if c.MaxOpenConns != 16 || c.MaxIdleConns != 4 {
		t.Errorf("default pool sizes = %d/%d, want 16/4", c.MaxOpenConns, c.MaxIdleConns)
	}

	c = Config{ServerMode: true}
	c.applyDefaults()
	if c.ServerHost != "127.0.0.1" || c.ServerPort != 3306 || c.ServerUser != "root" {
		t.Errorf("server-mode defaults = %+v", c)
	}
}

func TestConfigDSN(t *testing.T) {
	c := Config{Path: "/tmp/catalogd-data", Database: "catalogd"}
	driver, dsn := c.dsn()
	if driver != "dolt" {
		t.Errorf("embedded driver = %q, want dolt", driver)
	}
	if dsn == "" {
		t.Error("embedded dsn is empty")
	}

	c = Config{ServerMode: true, ServerHost: "db", ServerPort: 3306, ServerUser: "root", Database: "catalogd"}
	driver, dsn = c.dsn()
	if driver != "mysql" {
		t.Errorf("server-mode driver = %q, want mysql", driver)
	}
	if dsn == "" {
		t.Error("server-mode dsn is empty")
	}
}
