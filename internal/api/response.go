package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/errs"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// errorStatus maps an error kind to an HTTP status code.
func errorStatus(err error) int {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into a JSON error response. Unclassified errors
// are logged and reported as a generic internal error.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
		jsonError(w, status, "internal error")
		return
	case http.StatusBadGateway:
		log.Warn("upstream call failed", zap.Error(err))
	}
	jsonError(w, status, err.Error())
}

// decodeJSON decodes a JSON request body into the given target. An empty
// body leaves target untouched.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// bind decodes and validates a JSON request body.
func bind(r *http.Request, target any) error {
	if err := decodeJSON(r, target); err != nil {
		return errs.Validation("invalid request body")
	}
	return validate.check(target)
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid %s", name)
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.Validation("invalid %s", name)
	}
	return id, nil
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}
