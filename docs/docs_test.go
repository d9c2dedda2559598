package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestRegisteredDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	var parsed struct {
		Info  struct{ Title string } `json:"info"`
		Paths map[string]any        `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	if parsed.Info.Title != "vistora API" {
		t.Fatalf("title = %q", parsed.Info.Title)
	}
	for _, p := range []string{"/api/v1/jobs", "/api/v1/jobs/{id}/cancel", "/api/v1/credits/{user}/topup", "/api/v1/tg/webhook"} {
		if _, ok := parsed.Paths[p]; !ok {
			t.Fatalf("path %s missing", p)
		}
	}
}
