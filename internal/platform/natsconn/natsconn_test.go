package natsconn

import (
	"testing"
	"time"
)

func TestOptions_EnvDefaults(t *testing.T) {
	t.Setenv("NATS_URL", "nats://example:4222")
	t.Setenv("NATS_MAX_RECONNECTS", "7")
	t.Setenv("NATS_RECONNECT_WAIT", "3s")

	o := Options{}.withDefaults()
	if o.URL != "nats://example:4222" || o.MaxReconnects != 7 || o.ReconnectWait != 3*time.Second {
		t.Fatalf("unexpected options %+v", o)
	}
	if o.Logger == nil {
		t.Fatal("expected nop logger")
	}
}

func TestOptions_BuiltinDefaults(t *testing.T) {
	t.Setenv("NATS_URL", "")
	t.Setenv("NATS_MAX_RECONNECTS", "")
	t.Setenv("NATS_RECONNECT_WAIT", "")

	o := Options{}.withDefaults()
	if o.URL != "nats://nats:4222" || o.MaxReconnects != 5 || o.ReconnectWait != 2*time.Second {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestOptions_ExplicitWins(t *testing.T) {
	t.Setenv("NATS_MAX_RECONNECTS", "7")
	o := Options{URL: "nats://explicit:4222", MaxReconnects: 1, ReconnectWait: time.Millisecond}.withDefaults()
	if o.URL != "nats://explicit:4222" || o.MaxReconnects != 1 || o.ReconnectWait != time.Millisecond {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		Name:          "natsconn-test",
		MaxReconnects: 1,
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to invalid NATS URL")
	}
}
