// Package api exposes forge operations over HTTP. Callers are authenticated
// upstream; their identity arrives base58-encoded in the X-Forge-Caller header.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"tokenforge/internal/domain"
	"tokenforge/internal/events"
	"tokenforge/internal/forge"
	"tokenforge/internal/ledger"
	"tokenforge/internal/pda"
)

// CallerHeader carries the authenticated caller identity.
const CallerHeader = "X-Forge-Caller"

const maxBodyBytes = 1 << 16

// Forge is the subset of *forge.Program the API serves.
type Forge interface {
	Launch(ctx context.Context, params forge.LaunchParams) (*forge.LaunchResult, error)
	EnableTrading(ctx context.Context, caller, tokenData pda.Pubkey) (*domain.TokenData, error)
	DistributeRevenue(ctx context.Context, authority, tokenData pda.Pubkey, amount uint64) (*domain.TokenData, error)
	TokenData(ctx context.Context, addr pda.Pubkey) (*domain.TokenData, error)
	FindTokenData(ctx context.Context, creator pda.Pubkey, name string) (*domain.TokenData, pda.Pubkey, error)
	Derive(creator pda.Pubkey, name string) (*forge.Addresses, error)
	Airdrop(ctx context.Context, to pda.Pubkey, lamports uint64) error
	Lamports(ctx context.Context, addr pda.Pubkey) (uint64, error)
	HoldingBalance(ctx context.Context, tokenData, owner pda.Pubkey) (uint64, error)
}

var _ Forge = (*forge.Program)(nil)

// History serves the analytics event log of a metadata record.
type History interface {
	GetByTokenData(ctx context.Context, tokenData pda.Pubkey) ([]events.Event, error)
	RevenueTotal(ctx context.Context, tokenData pda.Pubkey) (uint64, error)
}

// Handler routes /v1 requests to the forge.
type Handler struct {
	forge   Forge
	history History
	faucet  bool
	logger  *log.Logger
	mux     *http.ServeMux
}

// Options contains configuration for creating a Handler.
type Options struct {
	Forge Forge
	// History enables GET /v1/tokens/{address}/events.
	History History
	// Faucet enables POST /v1/airdrop.
	Faucet bool
	Logger *log.Logger
}

// NewHandler creates the API handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	h := &Handler{
		forge:   opts.Forge,
		history: opts.History,
		faucet:  opts.Faucet,
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/tokens", h.handleLaunch)
	h.mux.HandleFunc("GET /v1/tokens/{address}", h.handleGetToken)
	h.mux.HandleFunc("GET /v1/creators/{creator}/tokens/{name}", h.handleFindToken)
	h.mux.HandleFunc("POST /v1/tokens/{address}/trading", h.handleEnableTrading)
	h.mux.HandleFunc("POST /v1/tokens/{address}/revenue", h.handleDistributeRevenue)
	h.mux.HandleFunc("GET /v1/tokens/{address}/balances/{owner}", h.handleBalance)
	h.mux.HandleFunc("GET /v1/derive", h.handleDerive)
	h.mux.HandleFunc("GET /v1/accounts/{address}/lamports", h.handleLamports)
	if h.history != nil {
		h.mux.HandleFunc("GET /v1/tokens/{address}/events", h.handleEvents)
	}
	if h.faucet {
		h.mux.HandleFunc("POST /v1/airdrop", h.handleAirdrop)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// TokenResponse is the JSON form of a metadata record.
type TokenResponse struct {
	Address                 pda.Pubkey `json:"address"`
	Creator                 pda.Pubkey `json:"creator"`
	Name                    string     `json:"name"`
	Symbol                  string     `json:"symbol"`
	Supply                  uint64     `json:"supply"`
	Decimals                uint8      `json:"decimals"`
	CreatedAt               int64      `json:"created_at"`
	TradingEnabled          bool       `json:"trading_enabled"`
	TotalRevenueDistributed uint64     `json:"total_revenue_distributed"`
}

func tokenResponse(addr pda.Pubkey, t *domain.TokenData) TokenResponse {
	return TokenResponse{
		Address:                 addr,
		Creator:                 t.Creator,
		Name:                    t.Name,
		Symbol:                  t.Symbol,
		Supply:                  t.Supply,
		Decimals:                t.Decimals,
		CreatedAt:               t.CreatedAt,
		TradingEnabled:          t.TradingEnabled,
		TotalRevenueDistributed: t.TotalRevenueDistributed,
	}
}

// LaunchRequest is the body of POST /v1/tokens. The creator is the caller.
type LaunchRequest struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Supply   uint64 `json:"supply"`
	Decimals uint8  `json:"decimals"`
}

// LaunchResponse is the body returned by a successful launch.
type LaunchResponse struct {
	forge.Addresses
	Token TokenResponse `json:"token"`
}

func (h *Handler) handleLaunch(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req LaunchRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.forge.Launch(r.Context(), forge.LaunchParams{
		Creator:  caller,
		Name:     req.Name,
		Symbol:   req.Symbol,
		Supply:   req.Supply,
		Decimals: req.Decimals,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, LaunchResponse{
		Addresses: res.Addresses,
		Token:     tokenResponse(res.TokenData, res.Record),
	})
}

func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathKey(w, r, "address")
	if !ok {
		return
	}
	t, err := h.forge.TokenData(r.Context(), addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(addr, t))
}

func (h *Handler) handleFindToken(w http.ResponseWriter, r *http.Request) {
	creator, ok := h.pathKey(w, r, "creator")
	if !ok {
		return
	}
	t, addr, err := h.forge.FindTokenData(r.Context(), creator, r.PathValue("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(addr, t))
}

func (h *Handler) handleEnableTrading(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	addr, ok := h.pathKey(w, r, "address")
	if !ok {
		return
	}
	t, err := h.forge.EnableTrading(r.Context(), caller, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(addr, t))
}

// RevenueRequest is the body of POST /v1/tokens/{address}/revenue.
type RevenueRequest struct {
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleDistributeRevenue(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	addr, ok := h.pathKey(w, r, "address")
	if !ok {
		return
	}
	var req RevenueRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.forge.DistributeRevenue(r.Context(), caller, addr, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(addr, t))
}

// BalanceResponse reports the amount in one holding record.
type BalanceResponse struct {
	TokenData pda.Pubkey `json:"token_data"`
	Owner     pda.Pubkey `json:"owner"`
	Amount    uint64     `json:"amount"`
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathKey(w, r, "address")
	if !ok {
		return
	}
	owner, ok := h.pathKey(w, r, "owner")
	if !ok {
		return
	}
	amount, err := h.forge.HoldingBalance(r.Context(), addr, owner)
	if err != nil {
		if errors.Is(err, ledger.ErrUninitializedAccount) {
			err = fmt.Errorf("%w: %w", forge.ErrTokenNotFound, err)
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{TokenData: addr, Owner: owner, Amount: amount})
}

// EventsResponse is the recorded history of one metadata record.
type EventsResponse struct {
	TokenData    pda.Pubkey     `json:"token_data"`
	Events       []events.Event `json:"events"`
	RevenueTotal uint64         `json:"revenue_total"`
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathKey(w, r, "address")
	if !ok {
		return
	}
	evs, err := h.history.GetByTokenData(r.Context(), addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	total, err := h.history.RevenueTotal(r.Context(), addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, EventsResponse{TokenData: addr, Events: evs, RevenueTotal: total})
}

func (h *Handler) handleDerive(w http.ResponseWriter, r *http.Request) {
	creator, err := pda.ParsePubkey(r.URL.Query().Get("creator"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("creator: %v", err)})
		return
	}
	addrs, err := h.forge.Derive(creator, r.URL.Query().Get("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addrs)
}

// AirdropRequest is the body of POST /v1/airdrop.
type AirdropRequest struct {
	To       pda.Pubkey `json:"to"`
	Lamports uint64     `json:"lamports"`
}

// LamportsResponse reports an account balance.
type LamportsResponse struct {
	Address  pda.Pubkey `json:"address"`
	Lamports uint64     `json:"lamports"`
}

func (h *Handler) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	var req AirdropRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.forge.Airdrop(r.Context(), req.To, req.Lamports); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeLamports(w, r, req.To)
}

func (h *Handler) handleLamports(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathKey(w, r, "address")
	if !ok {
		return
	}
	h.writeLamports(w, r, addr)
}

func (h *Handler) writeLamports(w http.ResponseWriter, r *http.Request, addr pda.Pubkey) {
	lamports, err := h.forge.Lamports(r.Context(), addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LamportsResponse{Address: addr, Lamports: lamports})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (pda.Pubkey, bool) {
	raw := r.Header.Get(CallerHeader)
	if raw == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: CallerHeader + " header is required"})
		return pda.Pubkey{}, false
	}
	caller, err := pda.ParsePubkey(raw)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: fmt.Sprintf("%s: %v", CallerHeader, err)})
		return pda.Pubkey{}, false
	}
	return caller, true
}

func (h *Handler) pathKey(w http.ResponseWriter, r *http.Request, name string) (pda.Pubkey, bool) {
	key, err := pda.ParsePubkey(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("%s: %v", name, err)})
		return pda.Pubkey{}, false
	}
	return key, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("decode body: %v", err)})
		return false
	}
	return true
}

type errorBody struct {
	Code  int    `json:"code,omitempty"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// statusFor maps a forge error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, forge.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, forge.ErrDuplicateIssuance),
		errors.Is(err, forge.ErrTradingAlreadyEnabled),
		errors.Is(err, forge.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, forge.ErrInvalidName),
		errors.Is(err, forge.ErrInvalidSymbol),
		errors.Is(err, forge.ErrInvalidSupply),
		errors.Is(err, forge.ErrRevenueOverflow),
		errors.Is(err, ledger.ErrOverflow),
		errors.Is(err, ledger.ErrInvalidPayer):
		return http.StatusBadRequest
	case errors.Is(err, forge.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, forge.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, forge.ErrExternalLedgerRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Printf("internal error: %v", err)
	}
	writeJSON(w, status, errorBody{Code: forge.Code(err), Name: forge.Name(err), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
