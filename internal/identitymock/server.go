package identitymock

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultPageSize = 100

// Server exposes the synthetic dataset over the identity data source
// HTTP contract. Every data endpoint wraps its payload in a
// {success, data, error} envelope; health responds bare so probes stay
// trivial to parse.
type Server struct {
	store  *Store
	logger *zap.Logger
}

func NewServer(store *Store, logger *zap.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/identities", s.handleIdentities)
	mux.HandleFunc("GET /api/v1/identities/{id}", s.handleIdentityByID)
	mux.HandleFunc("GET /api/v1/access-records", s.handleAccessRecords)
	mux.HandleFunc("GET /api/v1/compliance/violations", s.handleViolations)
	mux.HandleFunc("GET /api/v1/compliance/certifications", s.handleCertifications)
	mux.HandleFunc("GET /api/v1/reports/risk-summary", s.handleRiskSummary)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mux.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	identities, accessRecords := s.store.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "identity-source-mock",
		"dataStatus": map[string]int{
			"identities":     identities,
			"access_records": accessRecords,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleIdentities(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filters := queryFilters(r, "id", "status", "department", "riskScore")
	s.writeData(w, s.store.Identities(limit, offset, filters))
}

func (s *Server) handleIdentityByID(w http.ResponseWriter, r *http.Request) {
	id, ok := s.store.IdentityByID(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "identity not found",
		})
		return
	}
	s.writeData(w, id)
}

func (s *Server) handleAccessRecords(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filters := queryFilters(r, "identityId", "application", "riskLevel", "isPrivileged", "violatesSOD")
	s.writeData(w, s.store.AccessRecords(limit, offset, filters))
}

func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	violations := s.store.Violations(r.URL.Query().Get("type"))
	s.writeData(w, map[string]any{
		"violations": violations,
		"count":      len(violations),
	})
}

func (s *Server) handleCertifications(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, s.store.Certifications())
}

func (s *Server) handleRiskSummary(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, s.store.RiskSummary())
}

func (s *Server) writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func queryFilters(r *http.Request, keys ...string) map[string]string {
	filters := map[string]string{}
	for _, k := range keys {
		if v := r.URL.Query().Get(k); v != "" {
			filters[k] = v
		}
	}
	return filters
}
