package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tradeledger/src/ledger"
	"tradeledger/src/model"

	logger "github.com/sirupsen/logrus"
)

const defaultPageSize = 20

// pagination reads page and pageSize. It writes the 400 itself and reports false on bad input.
func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	page := 1
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		parsedPage, err := strconv.Atoi(pageParam)
		if err != nil || parsedPage <= 0 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return 0, 0, false
		}
		page = parsedPage
	}

	pageSize := defaultPageSize
	if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
		parsedSize, err := strconv.Atoi(sizeParam)
		if err != nil || parsedSize <= 0 {
			http.Error(w, "invalid pageSize", http.StatusBadRequest)
			return 0, 0, false
		}
		pageSize = parsedSize
	}

	return pageSize, (page - 1) * pageSize, true
}

// timeWindow reads from and to as ISO-8601 timestamps.
func timeWindow(w http.ResponseWriter, r *http.Request) (from, to string, ok bool) {
	from = r.URL.Query().Get("from")
	if from != "" {
		if _, err := model.ParseTimestamp(from); err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return "", "", false
		}
	}

	to = r.URL.Query().Get("to")
	if to != "" {
		if _, err := model.ParseTimestamp(to); err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return "", "", false
		}
	}

	return from, to, true
}

func writeLedgerError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	default:
		logger.WithError(err).Error(msg)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, body any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error(msg)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
