// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dispecer/internal/audit"
	"github.com/tomtom215/dispecer/internal/auth"
	"github.com/tomtom215/dispecer/internal/dispatch"
	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/models"
	"github.com/tomtom215/dispecer/internal/phone"
)

// incomingCallRequest is the PBX webhook payload. Different PBX versions
// deliver the calling number under different keys; phone, caller and number
// are accepted in that priority.
type incomingCallRequest struct {
	Secret    string `json:"secret"`
	Phone     string `json:"phone"`
	Caller    string `json:"caller"`
	Number    string `json:"number"`
	Extension string `json:"extension"`
	Source    string `json:"source"`
	Status    string `json:"status"`
	Note      string `json:"note"`
	Name      string `json:"name"`
	PersonID  *int64 `json:"personId"`
}

// rawPhone returns the first non-empty phone field.
func (req *incomingCallRequest) rawPhone() string {
	for _, candidate := range []string{req.Phone, req.Caller, req.Number} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// IncomingCall handles POST /incoming-calls, the PBX webhook ingress.
// The shared secret is read from the X-PBX-Secret header, the secret body
// field, or the secret query parameter, in that priority. Acceptance means
// the event entered the pipeline; a failed persist still acknowledges with
// 200 because live delivery is the primary guarantee.
func (h *Handler) IncomingCall(w http.ResponseWriter, r *http.Request) {
	var req incomingCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.Warn().Err(err).Msg("Webhook payload could not be decoded")
		metrics.CallsRejected.WithLabelValues("bad_payload").Inc()
		respondRaw(w, http.StatusBadRequest, map[string]interface{}{"error": "phone missing"})
		return
	}

	presented := r.Header.Get("X-PBX-Secret")
	if presented == "" {
		presented = req.Secret
	}
	if presented == "" {
		presented = r.URL.Query().Get("secret")
	}

	if h.cfg.PBX.WebhookSecret == "" {
		h.warnOnce.Do(func() {
			logging.Warn().Msg("No webhook secret configured; accepting all PBX webhooks")
		})
	} else if !auth.SecretMatches(h.cfg.PBX.WebhookSecret, presented) {
		logging.Warn().Str("source", sanitizeLogValue(req.Source)).Msg("Webhook rejected: invalid secret")
		metrics.CallsRejected.WithLabelValues("invalid_secret").Inc()
		respondRaw(w, http.StatusUnauthorized, map[string]interface{}{"error": "invalid secret"})
		return
	}

	normalized := phone.Normalize(req.rawPhone())
	event := models.CallEvent{
		Phone:     normalized.Display,
		Digits:    normalized.Digits,
		Extension: req.Extension,
		Source:    req.Source,
		Status:    phone.NormalizeStatus(req.Status),
		Note:      req.Note,
		Meta: models.CallMeta{
			CallerName: req.Name,
			PersonID:   req.PersonID,
		},
	}

	accepted, err := h.service.Ingest(r.Context(), event)
	if err != nil {
		if errors.Is(err, dispatch.ErrPhoneMissing) {
			metrics.CallsRejected.WithLabelValues("missing_phone").Inc()
			respondRaw(w, http.StatusBadRequest, map[string]interface{}{"error": "phone missing"})
			return
		}
		respondRaw(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
		return
	}

	h.audit.Record(r.Context(), audit.Entry{
		Entity:   "incoming_call",
		Action:   "received",
		EntityID: accepted.ID,
		Actor:    "pbx",
		Detail: map[string]interface{}{
			"phone":  accepted.Phone,
			"status": accepted.Status,
		},
	})

	respondRaw(w, http.StatusOK, map[string]interface{}{"success": true})
}

// LastCall handles GET /incoming-calls/last, returning the most recent call
// with freshly resolved metadata, or null when none has been received.
func (h *Handler) LastCall(w http.ResponseWriter, r *http.Request) {
	last := h.service.Last(r.Context())
	respondRaw(w, http.StatusOK, map[string]interface{}{"call": last})
}

// CallLog handles GET /incoming-calls/log?limit=N, returning recent calls
// from persistent storage, newest first. The limit is clamped to the
// history capacity.
func (h *Handler) CallLog(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", 0)

	entries, err := h.service.Log(r.Context(), limit, h.cfg.Stream.LogDefaultLimit)
	if err != nil {
		logging.Error().Err(err).Msg("Call log query failed")
		respondRaw(w, http.StatusInternalServerError, map[string]interface{}{"error": "log unavailable"})
		return
	}

	if entries == nil {
		entries = []models.CallEvent{}
	}
	respondRaw(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
