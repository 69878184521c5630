package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/infra/logging"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidRequest)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"status": "ok"})
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, err := s.d.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"token": token})
}

type analyzeRequest struct {
	Text    string   `json:"text"`
	Actions []string `json:"actions"`
	Style   string   `json:"style"`
	Gender  string   `json:"gender"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := logging.UserID(ctx)

	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.d.Analysis.Dispatch(ctx, userID, model.BatchRequest{
		Text:   req.Text,
		Types:  req.Actions,
		Style:  req.Style,
		Gender: req.Gender,
	})
	if err != nil {
		l := logging.With(ctx, s.log)
		if StatusFor(err) >= http.StatusInternalServerError {
			l.Error().Err(err).Msg("analyze failed")
		} else {
			l.Info().Err(err).Msg("analyze rejected")
		}
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{
		"batchId": res.BatchID,
		"results": res.Results,
		"quota":   res.Quota,
	})
}

type quotaView struct {
	Used      int       `json:"used"`
	Total     int       `json:"total"`
	Remaining int       `json:"remaining"`
	ResetDate time.Time `json:"resetDate"`
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	userID, _ := logging.UserID(r.Context())
	rec, err := s.d.Quota.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, err)
		return
	}
	snap := rec.Snapshot()
	writeOK(w, map[string]any{"quota": quotaView{
		Used:      snap.Used,
		Total:     snap.Total,
		Remaining: snap.Remaining,
		ResetDate: rec.ResetDate,
	}})
}

// flexID accepts a JSON number or a numeric string.
type flexID struct {
	set bool
	val int64
	ok  bool
}

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	f.set = true
	raw := strings.Trim(string(b), `"`)
	if raw == "" {
		f.set = false
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if fv, ferr := strconv.ParseFloat(raw, 64); ferr == nil && fv == float64(int64(fv)) {
			f.val, f.ok = int64(fv), true
		}
		return nil
	}
	f.val, f.ok = v, true
	return nil
}

type userPlanRequest struct {
	UserID flexID `json:"userId"`
	Email  string `json:"email"`
	PlanID flexID `json:"planId"`
	Key    string `json:"key"`
}

type userView struct {
	UserID        int64     `json:"userId"`
	Email         string    `json:"email"`
	PlanID        int64     `json:"planId"`
	UsedRequests  int       `json:"usedRequests"`
	TotalRequests int       `json:"totalRequests"`
	ResetDate     time.Time `json:"resetDate"`
}

func (s *Server) handleUserPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req userPlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.UserID.set || !req.PlanID.set || req.Email == "" || req.Key == "" {
		writeJSON(w, http.StatusBadRequest, "userId, email, planId, and key are required", nil)
		return
	}
	if !req.UserID.ok || !req.PlanID.ok {
		writeJSON(w, http.StatusBadRequest, "userId and planId must be valid numbers", nil)
		return
	}
	if s.d.SubscriptionAPIKey == "" {
		logging.With(ctx, s.log).Error().Msg("subscription api key is not configured")
		writeJSON(w, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.d.SubscriptionAPIKey)) != 1 {
		writeJSON(w, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}

	out, err := s.d.Users.AssignPlan(ctx, req.UserID.val, strings.TrimSpace(req.Email), req.PlanID.val)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidRequest) {
			logging.With(ctx, s.log).Error().Err(err).Int64("user_id", req.UserID.val).Msg("assign plan failed")
		}
		writeError(w, err)
		return
	}

	msg := "User updated"
	if out.Created {
		msg = "User created"
	}
	writeOK(w, map[string]any{
		"message": msg,
		"user": userView{
			UserID:        out.User.ID,
			Email:         out.User.Email,
			PlanID:        out.User.PlanID,
			UsedRequests:  out.User.UsedRequests,
			TotalRequests: out.TotalRequests,
			ResetDate:     out.User.ResetDate,
		},
	})
}
