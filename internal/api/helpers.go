package api

import (
	"encoding/json"
	"errors"
	"net/http"

	perrors "github.com/netxfw/netguard/pkg/errors"
)

// writeJSONResponse writes data as indented JSON with the given status.
// writeJSONResponse 以给定状态码写入缩进的 JSON。
func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONResponse(w, status, map[string]string{"error": msg})
}

// statusFor maps the error taxonomy onto HTTP status codes.
// statusFor 将错误分类映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, perrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, perrors.ErrSafetyDenied):
		return http.StatusForbidden
	case errors.Is(err, perrors.ErrImpactWarning):
		return http.StatusConflict
	case errors.Is(err, perrors.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
