//go:build !swagger

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountSwagger_DisabledByDefault(t *testing.T) {
	r := chi.NewRouter()
	MountSwagger(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without the swagger tag, got %d", w.Code)
	}
}
