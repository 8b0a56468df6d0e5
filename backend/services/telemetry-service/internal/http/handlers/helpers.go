package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/service"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var validation *service.ValidationError
	var notFound *service.NotFoundError
	var ingestion *service.IngestionError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &ingestion):
		logger.Error("ingestion failed",
			zap.String("stream", string(ingestion.Stream)),
			zap.String("stage", string(ingestion.Stage)),
			zap.String("record_id", ingestion.RecordID),
			zap.Bool("committed", ingestion.Committed),
			zap.Error(ingestion.Err),
		)
		writeError(w, http.StatusInternalServerError, "failed to store reading")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a single JSON object. Type mismatches surface as validation errors on the field.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &service.ValidationError{Field: typeErr.Field, Reason: fmt.Sprintf("must be a %s", jsonKind(typeErr.Type.Kind().String()))}
		}
		return errInvalidBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

var errInvalidBody = errors.New("invalid json")

func jsonKind(goKind string) string {
	switch {
	case strings.HasPrefix(goKind, "float"), strings.HasPrefix(goKind, "int"):
		return "number"
	default:
		return goKind
	}
}

