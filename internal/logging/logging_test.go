package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", false)

	log.Info().Msg("hidden")
	log.Warn().Str("symbol", "BTC").Msg("skipped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["level"] != "warn" || entry["symbol"] != "BTC" || entry["message"] != "skipped" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestNew_FallbackAndPretty(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "nonsense", true)

	log.Debug().Msg("hidden")
	log.Info().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
		t.Errorf("expected info level fallback, got %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected console output, got %q", out)
	}
}
