package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trade-trackerv1/internal/marketdata"
	"trade-trackerv1/internal/markethours"
	"trade-trackerv1/internal/model"
	"trade-trackerv1/internal/selector"
	"trade-trackerv1/internal/slrule"
	"trade-trackerv1/internal/updater"
)

// handleBatches returns the distinct batch keys of the current snapshot.
func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.sel.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "record store unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"batches": batches})
}

// handleInstruments returns the instrument labels within a batch.
func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	batch := r.URL.Query().Get("batch")
	if batch == "" {
		writeError(w, http.StatusBadRequest, "missing batch parameter")
		return
	}
	legs, err := s.sel.LegsInBatch(r.Context(), batch)
	if err != nil {
		writeError(w, http.StatusBadGateway, "record store unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batch":       batch,
		"instruments": selector.InstrumentOptions(legs),
	})
}

// handleLegs returns the raw leg records for a batch+instrument selection.
func (s *Server) handleLegs(w http.ResponseWriter, r *http.Request) {
	legs, ok := s.selectedLegs(r.Context(), w, r.URL.Query().Get("batch"), r.URL.Query().Get("instrument"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"legs": legs})
}

// slRequest is the shared input of preview and apply.
type slRequest struct {
	Batch      string  `json:"batch"`
	Instrument string  `json:"instrument"`
	EntryCall  float64 `json:"entry_call"`
	EntryPut   float64 `json:"entry_put"`
}

// sideResult reports the computed SL for one side, or why it is absent.
type sideResult struct {
	SL      *float64 `json:"sl,omitempty"`
	Skipped string   `json:"skipped,omitempty"` // "no entry price" | "invalid instrument"
}

// handlePreview computes the candidate SLs without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, legs, ok := s.decodeSLRequest(w, r)
	if !ok {
		return
	}

	call, put := s.computeSides(legs[0].Name, req.EntryCall, req.EntryPut)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batch":      req.Batch,
		"instrument": req.Instrument,
		"call":       call,
		"put":        put,
		"legs":       legs,
	})
}

// handleApply computes the SLs and writes them to every matching leg.
// Each leg write is independent; partial failure is reported, not retried.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	req, legs, ok := s.decodeSLRequest(w, r)
	if !ok {
		return
	}

	call, put := s.computeSides(legs[0].Name, req.EntryCall, req.EntryPut)
	if call.SL == nil && put.SL == nil {
		writeError(w, http.StatusUnprocessableEntity, "nothing to apply: both sides absent or invalid")
		return
	}

	res := s.upd.ApplySL(r.Context(), legs, call.SL, put.SL)
	s.countUpdates(res)

	msg := "SL updated successfully"
	if res.Partial() {
		msg = "partial failure: some legs were not updated"
	} else if res.Updated == 0 && res.Intended > 0 {
		msg = "update failed: no legs were updated"
	}

	payload := map[string]interface{}{
		"batch":      req.Batch,
		"instrument": req.Instrument,
		"call":       call,
		"put":        put,
		"result":     res,
		"message":    msg,
	}
	s.hub.Broadcast("sl_applied", payload)
	writeJSON(w, http.StatusOK, payload)
}

// handleHedge suggests ATM±300 hedge strikes from the latest index price.
func (s *Server) handleHedge(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		ticker = "NIFTY"
	}

	if s.market == nil {
		writeError(w, http.StatusServiceUnavailable, "hedge unavailable: market data not configured")
		return
	}

	spot, err := s.market.LatestClose(r.Context(), ticker)
	if err != nil {
		if s.prom != nil {
			s.prom.MarketDataFailures.Inc()
		}
		if errors.Is(err, marketdata.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "hedge unavailable: "+err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "hedge unavailable: "+err.Error())
		return
	}

	suggestion := slrule.SuggestHedge(spot)
	s.hub.Broadcast("hedge", suggestion)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"hedge":  suggestion,
	})
}

type calcRequest struct {
	Entry  float64 `json:"entry"`
	Family string  `json:"family,omitempty"`
}

// handleCalcAdditional is the flat additional-trade calculator (×1.43).
func (s *Server) handleCalcAdditional(w http.ResponseWriter, r *http.Request) {
	var req calcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Entry <= 0 {
		writeError(w, http.StatusBadRequest, "entry price must be positive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"sl": slrule.AdditionalTradeSL(req.Entry)})
}

// handleCalcLateSession always applies the post-cutoff rate for the family,
// regardless of the actual current time.
func (s *Server) handleCalcLateSession(w http.ResponseWriter, r *http.Request) {
	var req calcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Entry <= 0 {
		writeError(w, http.StatusBadRequest, "entry price must be positive")
		return
	}

	cls := model.ClassifyInstrument(req.Family)
	sl, err := slrule.LateSessionSL(cls.Family, req.Entry)
	if err != nil {
		if s.prom != nil {
			s.prom.InvalidInstrument.Inc()
		}
		writeError(w, http.StatusUnprocessableEntity, "invalid instrument: "+req.Family)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"sl": sl})
}

// handleJournal returns recent SL update audit entries.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.journal.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "journal read failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// handleStatus reports market session state and the active policy.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"market":       markethours.StatusString(now),
		"market_open":  markethours.IsMarketOpen(now),
		"late_session": markethours.IsLateSession(now),
		"policy":       string(s.engine.Policy()),
	})
}

// decodeSLRequest parses the body and resolves the selected legs, writing
// the HTTP error itself when anything is off.
func (s *Server) decodeSLRequest(w http.ResponseWriter, r *http.Request) (slRequest, []model.TradeLegRecord, bool) {
	var req slRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, nil, false
	}
	if req.Batch == "" || req.Instrument == "" {
		writeError(w, http.StatusBadRequest, "batch and instrument are required")
		return req, nil, false
	}
	legs, ok := s.selectedLegs(r.Context(), w, req.Batch, req.Instrument)
	if !ok {
		return req, nil, false
	}
	return req, legs, true
}

func (s *Server) selectedLegs(ctx context.Context, w http.ResponseWriter, batch, instrument string) ([]model.TradeLegRecord, bool) {
	if batch == "" || instrument == "" {
		writeError(w, http.StatusBadRequest, "missing batch or instrument parameter")
		return nil, false
	}
	legs, err := s.sel.LegsInBatch(ctx, batch)
	if err != nil {
		writeError(w, http.StatusBadGateway, "record store unavailable: "+err.Error())
		return nil, false
	}
	matched := selector.LegsForInstrument(legs, instrument)
	if len(matched) == 0 {
		writeError(w, http.StatusNotFound, "no legs found for selection")
		return nil, false
	}
	return matched, true
}

// computeSides runs the rule engine per side. A non-positive entry is an
// absent side; an invalid instrument is flagged and never applied.
func (s *Server) computeSides(name string, entryCall, entryPut float64) (call, put sideResult) {
	return s.computeSide(name, entryCall), s.computeSide(name, entryPut)
}

func (s *Server) computeSide(name string, entry float64) sideResult {
	sl, err := s.engine.ComputeSL(name, entry)
	switch {
	case err == nil:
		return sideResult{SL: &sl}
	case errors.Is(err, slrule.ErrNoEntryPrice):
		return sideResult{Skipped: "no entry price"}
	case errors.Is(err, slrule.ErrInvalidInstrument):
		if s.prom != nil {
			s.prom.InvalidInstrument.Inc()
		}
		return sideResult{Skipped: "invalid instrument"}
	default:
		return sideResult{Skipped: err.Error()}
	}
}

func (s *Server) countUpdates(res updater.Result) {
	if s.prom == nil {
		return
	}
	for i := 0; i < res.Updated; i++ {
		s.prom.SLUpdatesTotal.WithLabelValues("ok").Inc()
	}
	for range res.Failures {
		s.prom.SLUpdatesTotal.WithLabelValues("error").Inc()
	}
}
