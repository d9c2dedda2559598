package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"vistora/internal/domain"
)

const yamlCatalog = `
cards:
  - id: det-a
    role: detector
    family: YOLO
    objective: balanced
    maturity: baseline
  - id: res-a
    role: restorer
    family: BasicVSR++
    objective: balanced
    maturity: baseline
presets:
  - tier: balanced
    detector_model: det-a
    restorer_model: res-a
`

const tomlCatalog = `
[[cards]]
id = "det-a"
role = "detector"

[[cards]]
id = "res-a"
role = "restorer"

[[cards]]
id = "ref-a"
role = "refiner"

[[presets]]
tier = "high"
detector_model = "det-a"
restorer_model = "res-a"
refiner_model = "ref-a"
`

const jsonCatalog = `{"cards":[{"id":"det-a","role":"detector"},{"id":"res-a","role":"restorer"}],
"presets":[{"tier":"ultra","detector_model":"det-a","restorer_model":"res-a"}]}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadFileFormats(t *testing.T) {
	cases := []struct {
		name string
		body string
		tier domain.QualityTier
		ref  string
	}{
		{"catalog.yaml", yamlCatalog, domain.TierBalanced, ""},
		{"catalog.toml", tomlCatalog, domain.TierHigh, "ref-a"},
		{"catalog.json", jsonCatalog, domain.TierUltra, ""},
	}
	for _, tc := range cases {
		c, err := LoadFile(writeFile(t, tc.name, tc.body))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		got, err := c.Resolve(tc.tier)
		if err != nil {
			t.Fatalf("%s: resolve: %v", tc.name, err)
		}
		if got.Detector != "det-a" || got.Restorer != "res-a" || got.Refiner != tc.ref {
			t.Fatalf("%s: unexpected triple %+v", tc.name, got)
		}
	}
}

func TestLoadFileExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "catalog.json"), []byte(jsonCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile("~/catalog.json"); err != nil {
		t.Fatalf("LoadFile(~): %v", err)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(writeFile(t, "catalog.ini", "x=1")); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := LoadFile(writeFile(t, "bad.json", "{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
