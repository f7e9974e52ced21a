package relay

import (
	"testing"

	"github.com/alexgolec/td-ameritrade-api/envelope"
)

func TestNilRelay_PublishAndCloseAreNoops(t *testing.T) {
	var r *Relay
	r.Publish(envelope.DataEntry{Service: "QUOTE"}) // must not panic
	r.Close()                                       // must not panic
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.SubjectPrefix != "streamer" {
		t.Errorf("SubjectPrefix = %q, want %q", cfg.SubjectPrefix, "streamer")
	}
	if cfg.MaxReconnects != -1 {
		t.Errorf("MaxReconnects = %d, want -1", cfg.MaxReconnects)
	}
	if cfg.ReconnectWait <= 0 {
		t.Errorf("ReconnectWait = %v, want positive default", cfg.ReconnectWait)
	}
}

func TestSubject(t *testing.T) {
	r := &Relay{cfg: Config{SubjectPrefix: "td"}}
	if got, want := r.Subject("QUOTE"), "td.data.QUOTE"; got != want {
		t.Errorf("Subject(QUOTE) = %q, want %q", got, want)
	}
}
