//go:build !swagger

package httpapi

import "github.com/go-chi/chi/v5"

// MountSwagger leaves /swagger unrouted unless the binary is built with -tags=swagger.
func MountSwagger(chi.Router) {}
