package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/vaultify/internal/common"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var kindStatus = map[error]int{
	common.ErrorNotFound:         http.StatusNotFound,
	common.ErrorForbidden:        http.StatusForbidden,
	common.ErrorInvalidArgument:  http.StatusBadRequest,
	common.ErrorInvalidOrExpired: http.StatusUnauthorized,
	common.ErrorUnauthorized:     http.StatusUnauthorized,
	common.ErrorRateLimited:      http.StatusTooManyRequests,
	common.ErrorConflict:         http.StatusConflict,
}

func (s *HTTPServer) jsonResponse(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		s.errorResponse(context.Background(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *HTTPServer) errorResponse(ctx context.Context, w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.jsonResponse(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
		return
	}

	kind := common.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		s.logger.Error(ctx, "request failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	s.logger.Warn(ctx, "request rejected", "status", status, "error", err)
	s.jsonResponse(w, status, errorResponse{Error: kind.Error(), Message: err.Error()})
}
