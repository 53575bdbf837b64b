package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) summary(ctx context.Context, month string) (core.Summary, error) {
	key := month
	if key == "" {
		key = "all"
	}
	return cache.GetOrLoad[core.Summary](ctx, s.summaryCache, key, func(ctx context.Context) (core.Summary, error) {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		return s.reports.Summary(ctx, month)
	})
}

func (s *Server) trends(ctx context.Context) ([]core.MonthlyTrend, error) {
	return cache.GetOrLoad[[]core.MonthlyTrend](ctx, s.trendsCache, "trends", func(ctx context.Context) ([]core.MonthlyTrend, error) {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		return s.reports.MonthlyTrends(ctx)
	})
}

func (s *Server) categoryTotals(ctx context.Context, flow core.Flow) ([]core.CategoryTotal, error) {
	return cache.GetOrLoad[[]core.CategoryTotal](ctx, s.categoriesCache, string(flow), func(ctx context.Context) ([]core.CategoryTotal, error) {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		return s.reports.CategoryTotals(ctx, flow)
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.summary(r.Context(), month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sum)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.trends(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, trends)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	flow := core.Expense
	if raw := r.URL.Query().Get("flow"); strings.TrimSpace(raw) != "" {
		f, err := core.ParseFlow(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		flow = f
	}
	totals, err := s.categoryTotals(r.Context(), flow)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, totals)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	txs, err := s.reports.ListTransactions(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, txs)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.reports.ExportCSV(r.Context(), &buf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported", log.FieldOperation, log.OpExport, log.FieldCount, n)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	_, _ = w.Write(buf.Bytes())
}

// errBadRequest marks query parameters that could not be parsed.
var errBadRequest = errors.New("bad request")

func parseFilter(r *http.Request) (core.TransactionFilter, error) {
	q := r.URL.Query()
	filter := core.TransactionFilter{Category: sanitizeInput(q.Get("category"))}

	if raw := strings.TrimSpace(q.Get("flow")); raw != "" {
		f, err := core.ParseFlow(raw)
		if err != nil {
			return filter, err
		}
		filter.Flow = f
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errors.Join(errBadRequest, errors.New("limit must be a non-negative integer"))
		}
		filter.Limit = n
	}
	return filter, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidMonth), errors.Is(err, core.ErrInvalidFlow), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err.Error())
		msg = http.StatusText(status)
	}
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeJSON encodes v before committing the status, so an unencodable
// payload becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
			log.FieldPath, r.URL.Path, log.FieldError, err.Error())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
