package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/estatemarket/auction-service/internal/adapter/httpapi/middleware"
	"github.com/estatemarket/auction-service/internal/auction"
	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Engine is the part of the bid processor the HTTP surface needs.
type Engine interface {
	SubmitBid(ctx context.Context, req auction.SubmitBidRequest) (domain.Snapshot, error)
	CreateAuction(ctx context.Context, req auction.CreateAuctionRequest) (domain.Snapshot, error)
	Close(ctx context.Context, listingID string) (domain.Snapshot, error)
	Snapshot(ctx context.Context, listingID string) (domain.Snapshot, error)
	History(ctx context.Context, listingID string, limit, offset int64) ([]*domain.Bid, int64, error)
}

// SettingsStore is the admin configuration surface.
type SettingsStore interface {
	AuctionSettings(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, settings domain.Settings) error
}

type Handler struct {
	engine   Engine
	settings SettingsStore
	log      logger.Logger
	validate *validator.Validate
}

func NewHandler(engine Engine, settings SettingsStore, log logger.Logger) *Handler {
	return &Handler{
		engine:   engine,
		settings: settings,
		log:      log,
		validate: validator.New(),
	}
}

type submitBidRequest struct {
	Amount    decimal.Decimal  `json:"amount"`
	MaxAmount *decimal.Decimal `json:"maxAmount,omitempty"`
}

type createAuctionRequest struct {
	ListingID     string           `json:"listingId" validate:"required"`
	SellerID      string           `json:"sellerId" validate:"required"`
	StartingPrice decimal.Decimal  `json:"startingPrice"`
	BidIncrement  decimal.Decimal  `json:"bidIncrement"`
	StartTime     time.Time        `json:"startTime" validate:"required"`
	EndTime       time.Time        `json:"endTime" validate:"required"`
	DepositAmount *decimal.Decimal `json:"depositAmount,omitempty"`
}

type settingsPayload struct {
	AntiSnipingWindowSec    int64           `json:"antiSnipingWindowSec" validate:"gte=0"`
	AntiSnipingExtensionSec int64           `json:"antiSnipingExtensionSec" validate:"gte=0"`
	CommissionRate          decimal.Decimal `json:"commissionRate"`
	DefaultDepositAmount    decimal.Decimal `json:"defaultDepositAmount"`
}

type errorBody struct {
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	CurrentPrice *decimal.Decimal `json:"currentPrice,omitempty"`
	MinimumBid   *decimal.Decimal `json:"minimumBid,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// HandleSubmitBid accepts a bid from the authenticated user for the listing
// in the path.
func (h *Handler) HandleSubmitBid(w http.ResponseWriter, r *http.Request) {
	bidderID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errorBody{Code: "bad_request", Message: "invalid request body"}, http.StatusBadRequest)
		return
	}

	snap, err := h.engine.SubmitBid(r.Context(), auction.SubmitBidRequest{
		ListingID: chi.URLParam(r, "listingId"),
		BidderID:  bidderID,
		Amount:    req.Amount,
		MaxAmount: req.MaxAmount,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// HandleCreateAuction registers an auction for a listing entering auction
// mode. Called by the listing service, not by end users.
func (h *Handler) HandleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errorBody{Code: "bad_request", Message: "invalid request body"}, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, errorBody{Code: "bad_request", Message: err.Error()}, http.StatusBadRequest)
		return
	}

	snap, err := h.engine.CreateAuction(r.Context(), auction.CreateAuctionRequest{
		ListingID:     req.ListingID,
		SellerID:      req.SellerID,
		StartingPrice: req.StartingPrice,
		BidIncrement:  req.BidIncrement,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		DepositAmount: req.DepositAmount,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, snap)
}

// HandleGetAuction returns the current snapshot.
func (h *Handler) HandleGetAuction(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context(), chi.URLParam(r, "listingId"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

type bidHistoryResponse struct {
	Bids  []bidView `json:"bids"`
	Total int64     `json:"total"`
}

type bidView struct {
	BidID     string          `json:"bidId"`
	BidderID  string          `json:"bidderId"`
	Amount    decimal.Decimal `json:"amount"`
	Winning   bool            `json:"winning"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HandleBidHistory returns the accepted-bid ledger, newest first. Sealed
// proxy ceilings are never exposed.
func (h *Handler) HandleBidHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	bids, total, err := h.engine.History(r.Context(), chi.URLParam(r, "listingId"), limit, offset)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	views := make([]bidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, bidView{
			BidID:     b.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			Winning:   b.Winning,
			CreatedAt: b.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, bidHistoryResponse{Bids: views, Total: total})
}

// HandleCloseAuction withdraws a scheduled or live auction.
func (h *Handler) HandleCloseAuction(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Close(r.Context(), chi.URLParam(r, "listingId"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.AuctionSettings(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settingsPayload{
		AntiSnipingWindowSec:    int64(settings.AntiSnipingWindow / time.Second),
		AntiSnipingExtensionSec: int64(settings.AntiSnipingExtension / time.Second),
		CommissionRate:          settings.CommissionRate,
		DefaultDepositAmount:    settings.DefaultDepositAmount,
	})
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errorBody{Code: "bad_request", Message: "invalid request body"}, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, errorBody{Code: "bad_request", Message: err.Error()}, http.StatusBadRequest)
		return
	}
	if req.CommissionRate.IsNegative() || req.DefaultDepositAmount.IsNegative() {
		h.writeError(w, errorBody{Code: "bad_request", Message: "commission rate and deposit must not be negative"}, http.StatusBadRequest)
		return
	}

	err := h.settings.Update(r.Context(), domain.Settings{
		AntiSnipingWindow:    time.Duration(req.AntiSnipingWindowSec) * time.Second,
		AntiSnipingExtension: time.Duration(req.AntiSnipingExtensionSec) * time.Second,
		CommissionRate:       req.CommissionRate,
		DefaultDepositAmount: req.DefaultDepositAmount,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

// writeEngineError maps the domain error taxonomy onto HTTP statuses. A
// too-low rejection always tells the bidder the current price and the
// minimum admissible next bid.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var tooLow *domain.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		h.writeError(w, errorBody{
			Code:         "bid_too_low",
			Message:      tooLow.Error(),
			CurrentPrice: &tooLow.CurrentPrice,
			MinimumBid:   &tooLow.MinimumBid,
		}, http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrAuctionNotFound):
		h.writeError(w, errorBody{Code: "auction_not_found", Message: err.Error()}, http.StatusNotFound)
	case errors.Is(err, domain.ErrAuctionNotLive):
		h.writeError(w, errorBody{Code: "auction_not_live", Message: err.Error()}, http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidBidAmount), errors.Is(err, domain.ErrInvalidAuctionData):
		h.writeError(w, errorBody{Code: "invalid_request", Message: err.Error()}, http.StatusBadRequest)
	case errors.Is(err, domain.ErrConcurrentBidConflict):
		h.writeError(w, errorBody{Code: "concurrent_bid_conflict", Message: err.Error()}, http.StatusConflict)
	case errors.Is(err, domain.ErrAuctionAlreadyExists):
		h.writeError(w, errorBody{Code: "auction_exists", Message: err.Error()}, http.StatusConflict)
	default:
		h.log.Errorf("internal error: %v", err)
		h.writeError(w, errorBody{Code: "internal", Message: "internal server error"}, http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, body errorBody, status int) {
	h.writeJSON(w, status, errorResponse{Error: body})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Errorf("failed to encode response: %v", err)
	}
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
