package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/infra/logging"
	"checkout-payments/internal/infra/metrics"
)

// flexID accepts the payment id as either a JSON string or a number;
// Mercado Pago's own payloads carry it as a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type verifyRequest struct {
	PaymentID flexID `json:"mp_payment_id"`
}

type verifyResponse struct {
	Success      bool        `json:"success"`
	Status       string      `json:"status"`
	StatusDetail string      `json:"status_detail,omitempty"`
	Payment      interface{} `json:"payment,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Success: false, Error: msg})
}

// handleVerify drives one reconciliation for the payment id the
// success page is polling on. Client mistakes and gateway rejections
// are 400s; only our own config or persistence failing is a 500.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := logging.WithRequestID(r.Context(), uuid.NewString())

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.VerifyRequest("rejected", "bad_body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.verifyUC.Verify(ctx, string(req.PaymentID))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			metrics.VerifyRequest("rejected", "missing_payment_id")
			writeError(w, http.StatusBadRequest, "mp_payment_id is required")
		case errors.Is(err, domain.ErrGateway):
			metrics.VerifyRequest("rejected", "gateway")
			writeError(w, http.StatusBadRequest, "payment lookup failed")
		case errors.Is(err, domain.ErrConfiguration):
			metrics.VerifyRequest("failed", "configuration")
			logging.With(ctx, s.log).Error().Err(err).Msg("verify failed: gateway credentials missing")
			writeError(w, http.StatusInternalServerError, "payment provider not configured")
		default:
			metrics.VerifyRequest("failed", "internal")
			logging.With(ctx, s.log).Error().Err(err).Msg("verify failed")
			writeError(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	metrics.VerifyRequest("ok", string(res.Status))
	metrics.ObserveVerifyDuration("ok", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, verifyResponse{
		Success:      true,
		Status:       string(res.Status),
		StatusDetail: res.StatusDetail,
		Payment:      res.Payment,
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.adminPassword == "" {
		writeError(w, http.StatusForbidden, "admin API disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPassword)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("session mint failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func pageParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return offset, limit
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	payments, err := s.adminUC.ListPayments(r.Context(), offset, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list payments failed")
		writeError(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "payments": payments})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	orders, err := s.adminUC.ListOrders(r.Context(), offset, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list orders failed")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "orders": orders})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
