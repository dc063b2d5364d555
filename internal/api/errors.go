package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"tronquery/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError translates typed domain errors and store constraint
// violations into client-facing responses. Constraint errors the service
// pre-checks did not catch (bulk inserts, lost races) surface here.
func writeError(w http.ResponseWriter, err error) {
	var notFound domain.NotFoundError
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": notFound.Error()})
		return
	}

	var conflict domain.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": conflict.Error()})
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			writeJSON(w, http.StatusConflict, map[string]string{"detail": "record violates a unique constraint"})
		case strings.HasPrefix(pgErr.Code, "23"):
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "request violates a data constraint"})
		default:
			log.Printf("database error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal server error"})
		}
		return
	}

	log.Printf("unhandled error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal server error"})
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"detail": detail})
}
