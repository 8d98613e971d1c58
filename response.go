package httprace

import (
	"github.com/andycostintoma/httprace/internal/httpx"
	"github.com/andycostintoma/httprace/internal/response"
)

// responseType is the shared placeholder/response type, defined in
// internal/response so that internal/dispatcher and internal/materialize
// can mutate it without importing this package (which would cycle back
// through internal/primer -> internal/conn -> this package's Session).
type responseType = response.Response

func newPendingResponse(req *httpx.PreparedRequest) *responseType {
	return response.NewPending(req)
}
