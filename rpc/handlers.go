package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"swaprouter/native/router"
	"swaprouter/observability"
)

type swapRequestPayload struct {
	Swapper      string `json:"swapper"`
	AssetIn      string `json:"asset_in"`
	AmountIn     string `json:"amount_in"`
	AssetOut     string `json:"asset_out"`
	MinAmountOut string `json:"min_amount_out"`
	Beneficiary  string `json:"beneficiary"`

	IntegratorFeeBps       uint16 `json:"integrator_fee_bps,omitempty"`
	IntegratorFeeRecipient string `json:"integrator_fee_recipient,omitempty"`
	Routes                 []struct {
		Pool     string `json:"pool"`
		AssetOut string `json:"asset_out"`
	} `json:"routes,omitempty"`
}

func (s *Server) handleSwapAggregated(w http.ResponseWriter, r *http.Request) {
	var payload swapRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req := router.AggregatedRouteRequest{IntegratorFeeBps: payload.IntegratorFeeBps}
	var err error
	if req.Swapper, err = parseAddress(payload.Swapper); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AssetIn, err = parseAddress(payload.AssetIn); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AssetOut, err = parseAddress(payload.AssetOut); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Beneficiary, err = parseAddress(payload.Beneficiary); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AmountIn, err = parseAmount(payload.AmountIn); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MinAmountOut, err = parseAmount(payload.MinAmountOut); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.IntegratorFeeRecipient != "" {
		if req.IntegratorFeeRecipient, err = parseAddress(payload.IntegratorFeeRecipient); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, hop := range payload.Routes {
		var leg router.RouteHop
		if leg.Pool, err = parseAddress(hop.Pool); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if leg.AssetOut, err = parseAddress(hop.AssetOut); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Routes = append(req.Routes, leg)
	}

	requestID := uuid.NewString()
	outcome, err := s.engine.SwapAggregated(s.cfg.Operator, req)
	if err != nil {
		s.swapFailed(requestID, router.VenueAggregated, err)
		engineError(w, err)
		return
	}
	s.logger.Info("swap settled",
		"request_id", requestID,
		"venue", outcome.Venue,
		"amount_in", amountString(outcome.AmountIn),
		"amount_out_net", amountString(outcome.AmountOutNet))
	writeJSON(w, http.StatusOK, outcomeResponse(requestID, outcome))
}

type splitRequestPayload struct {
	Swapper     string `json:"swapper"`
	AssetIn     string `json:"asset_in"`
	AmountIn    string `json:"amount_in"`
	AssetOut    string `json:"asset_out"`
	Beneficiary string `json:"beneficiary"`
	Hops        []struct {
		Pool     string `json:"pool"`
		AssetIn  string `json:"asset_in"`
		AssetOut string `json:"asset_out"`
	} `json:"hops"`
}

func (s *Server) handleSwapSplit(w http.ResponseWriter, r *http.Request) {
	var payload splitRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req := router.SplitRouteRequest{}
	var err error
	if req.Swapper, err = parseAddress(payload.Swapper); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Params.AssetIn, err = parseAddress(payload.AssetIn); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Params.AssetOut, err = parseAddress(payload.AssetOut); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Beneficiary, err = parseAddress(payload.Beneficiary); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Params.AmountIn, err = parseAmount(payload.AmountIn); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Proceeds must land in router custody before forwarding.
	req.Params.Destination = s.engine.Custody()
	for _, hop := range payload.Hops {
		var leg router.SwapLeg
		if leg.Pool, err = parseAddress(hop.Pool); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if leg.AssetIn, err = parseAddress(hop.AssetIn); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if leg.AssetOut, err = parseAddress(hop.AssetOut); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Hops = append(req.Hops, leg)
	}

	requestID := uuid.NewString()
	outcome, err := s.engine.SwapSplit(s.cfg.Operator, req)
	if err != nil {
		s.swapFailed(requestID, router.VenueSplit, err)
		engineError(w, err)
		return
	}
	s.logger.Info("swap settled",
		"request_id", requestID,
		"venue", outcome.Venue,
		"amount_in", amountString(outcome.AmountIn),
		"amount_out_net", amountString(outcome.AmountOutNet))
	writeJSON(w, http.StatusOK, outcomeResponse(requestID, outcome))
}

type callbackRequestPayload struct {
	Token0   string `json:"token0"`
	Token1   string `json:"token1"`
	FeeTier  uint32 `json:"fee_tier"`
	Amount   string `json:"amount"`
	IsToken1 bool   `json:"is_token1"`
	Swapper  string `json:"swapper"`
}

func (p callbackRequestPayload) request() (router.CallbackRequest, error) {
	req := router.CallbackRequest{IsToken1: p.IsToken1}
	var err error
	if req.Pool.Token0, err = parseAddress(p.Token0); err != nil {
		return req, err
	}
	if req.Pool.Token1, err = parseAddress(p.Token1); err != nil {
		return req, err
	}
	req.Pool.Fee = p.FeeTier
	if req.Amount, err = parseSignedAmount(p.Amount); err != nil {
		return req, err
	}
	if p.Swapper != "" {
		if req.Swapper, err = parseAddress(p.Swapper); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (s *Server) handleSwapCallback(w http.ResponseWriter, r *http.Request) {
	var payload callbackRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req, err := payload.request()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestID := uuid.NewString()
	outcome, err := s.engine.SwapCallback(s.cfg.Operator, req)
	if err != nil {
		s.swapFailed(requestID, router.VenueCallback, err)
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse(requestID, outcome))
}

// handleSwapCallbackManual swaps for the swapper named in the payload rather
// than the daemon's operator identity. The engine treats that address as both
// payer and recipient.
func (s *Server) handleSwapCallbackManual(w http.ResponseWriter, r *http.Request) {
	var payload callbackRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Swapper == "" {
		writeError(w, http.StatusBadRequest, "swapper required")
		return
	}
	req, err := payload.request()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestID := uuid.NewString()
	outcome, err := s.engine.SwapCallbackManual(req.Swapper, req)
	if err != nil {
		s.swapFailed(requestID, router.VenueCallback, err)
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse(requestID, outcome))
}

func (s *Server) swapFailed(requestID, venue string, err error) {
	observability.Router().RecordFailure(venue)
	s.logger.Warn("swap failed", "request_id", requestID, "venue", venue, "error", err)
}

func (s *Server) handleAssetStatus(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	supported, feed := s.engine.IsSupported(asset)
	resp := map[string]any{
		"asset":     formatAddress(asset),
		"supported": supported,
	}
	if supported {
		resp["feed"] = "0x" + hexEncode(feed[:])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := s.engine.ValueInUSD(asset, amount)
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":  formatAddress(asset),
		"amount": amount.String(),
		"value":  value.String(),
	})
}

func (s *Server) handleListOutcomes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	rows, err := s.store.ListOutcomes(r.Context(), limit)
	if err != nil {
		s.logger.Error("list outcomes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	type entry struct {
		ID           int64  `json:"id"`
		Venue        string `json:"venue"`
		AssetIn      string `json:"asset_in"`
		AmountIn     string `json:"amount_in"`
		AssetOut     string `json:"asset_out"`
		AmountOutNet string `json:"amount_out_net"`
		Fee          string `json:"fee"`
		Beneficiary  string `json:"beneficiary"`
		RecordedAt   string `json:"recorded_at"`
	}
	out := make([]entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entry{
			ID:           row.ID,
			Venue:        row.Venue,
			AssetIn:      row.AssetIn,
			AmountIn:     amountString(row.AmountIn),
			AssetOut:     row.AssetOut,
			AmountOutNet: amountString(row.AmountOutNet),
			Fee:          amountString(row.Fee),
			Beneficiary:  row.Beneficiary,
			RecordedAt:   row.RecordedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": out})
}

func (s *Server) handleVenueStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store not configured")
		return
	}
	stats, err := s.store.StatsByVenue(r.Context())
	if err != nil {
		s.logger.Error("aggregate outcomes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	type venueEntry struct {
		Count         int64  `json:"count"`
		FeesCollected string `json:"fees_collected"`
	}
	venues := make(map[string]venueEntry, len(stats))
	for venue, entry := range stats {
		venues[venue] = venueEntry{Count: entry.Count, FeesCollected: amountString(entry.Fees)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": venues})
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, _ *http.Request) {
	policy := s.engine.FeePolicy()
	writeJSON(w, http.StatusOK, map[string]any{
		"paused":     s.engine.Paused(),
		"fee_policy": map[string]any{"kind": policy.String(), "bps": policy.Bps},
		"custody":    formatAddress(s.engine.Custody()),
	})
}

func (s *Server) handleSetFeePolicy(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind string `json:"kind"`
		Bps  uint16 `json:"bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var kind router.FeePolicyKind
	switch payload.Kind {
	case "fixed":
		kind = router.FeePolicyFixed
	case "percentage":
		kind = router.FeePolicyPercentage
	default:
		writeError(w, http.StatusBadRequest, "kind must be fixed or percentage")
		return
	}
	if err := s.engine.SetFeePolicy(s.cfg.Owner, router.FeePolicy{Kind: kind, Bps: payload.Bps}); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegisterAssets(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Assets []struct {
			Address string `json:"address"`
			Feed    string `json:"feed"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(payload.Assets) == 0 {
		writeError(w, http.StatusBadRequest, "at least one asset required")
		return
	}
	assets := make([][20]byte, 0, len(payload.Assets))
	feeds := make([][32]byte, 0, len(payload.Assets))
	for _, entry := range payload.Assets {
		addr, err := parseAddress(entry.Address)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		feed, err := parseFeed(entry.Feed)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		assets = append(assets, addr)
		feeds = append(feeds, feed)
	}
	if err := s.engine.RegisterAssets(s.cfg.Owner, assets, feeds); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registered": len(assets)})
}

func (s *Server) handleDeregisterAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.DeregisterAsset(s.cfg.Owner, asset); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddOperator(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	operator, err := parseAddress(payload.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.AddOperator(s.cfg.Owner, operator); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveOperator(w http.ResponseWriter, r *http.Request) {
	operator, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.RemoveOperator(s.cfg.Owner, operator); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.engine.SetPaused(s.cfg.Owner, payload.Paused); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paused": payload.Paused})
}
