package wizard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcastio/mcprobe/internal/config"
)

func TestNew(t *testing.T) {
	w := New()
	if w == nil {
		t.Fatal("New() returned nil")
	}
	if w.theme == nil {
		t.Error("New() returned wizard without a theme")
	}
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	w := New()
	cfg := config.Default()
	cfg.Group.Address = "239.7.7.7"
	cfg.Metrics.Enabled = true

	if err := w.writeConfig(cfg, path); err != nil {
		t.Fatalf("writeConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# mcprobe Configuration") {
		t.Error("written config is missing the header comment")
	}

	// The written file must parse back into an equivalent config.
	parsed, err := config.Parse(data)
	if err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	if parsed.Group.Address != "239.7.7.7" {
		t.Errorf("Group.Address = %s, want 239.7.7.7", parsed.Group.Address)
	}
	if !parsed.Metrics.Enabled {
		t.Error("Metrics.Enabled not preserved")
	}
}

func TestValidateIntRange(t *testing.T) {
	v := validateIntRange(1, 255)

	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1", false},
		{"255", false},
		{"20", false},
		{"0", true},
		{"256", true},
		{"-5", true},
		{"abc", true},
		{"", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			err := v(tc.input)
			if (err != nil) != tc.wantErr {
				t.Errorf("validateIntRange(%q) error = %v, wantErr = %v", tc.input, err, tc.wantErr)
			}
		})
	}
}
