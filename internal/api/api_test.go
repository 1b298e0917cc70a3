package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenforge/internal/events"
	"tokenforge/internal/forge"
	"tokenforge/internal/pda"
	"tokenforge/internal/storage/memory"
)

var (
	creator  = pda.MustParsePubkey("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	stranger = pda.Pubkey{0xAB, 0xCD}
)

func newTestServer(t *testing.T, faucet bool) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, faucet, nil)
}

func newTestServerWith(t *testing.T, faucet bool, history *recordedHistory) *httptest.Server {
	t.Helper()
	var sink events.Sink = events.Discard{}
	var hist History
	if history != nil {
		sink = history
		hist = history
	}
	program, err := forge.NewProgram(forge.Options{
		Store:  memory.NewAccountStore(),
		Clock:  func() time.Time { return time.Unix(1_700_000_000, 0) },
		Logger: log.New(io.Discard, "", 0),
		Sink:   sink,
	})
	require.NoError(t, err)
	require.NoError(t, program.Airdrop(t.Context(), creator, 1_000_000_000))

	srv := httptest.NewServer(NewHandler(Options{
		Forge:   program,
		History: hist,
		Faucet:  faucet,
		Logger:  log.New(io.Discard, "", 0),
	}))
	t.Cleanup(srv.Close)
	return srv
}

// recordedHistory answers history queries from the events the program published.
type recordedHistory struct {
	*events.Recorder
}

func (r *recordedHistory) GetByTokenData(_ context.Context, tokenData pda.Pubkey) ([]events.Event, error) {
	var out []events.Event
	for _, ev := range r.Events() {
		if ev.TokenData == tokenData {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *recordedHistory) RevenueTotal(ctx context.Context, tokenData pda.Pubkey) (uint64, error) {
	evs, _ := r.GetByTokenData(ctx, tokenData)
	var total uint64
	for _, ev := range evs {
		if ev.Kind == events.KindRevenueDistributed {
			total += ev.Amount
		}
	}
	return total, nil
}

func do(t *testing.T, srv *httptest.Server, method, path string, caller *pda.Pubkey, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if caller != nil {
		req.Header.Set(CallerHeader, caller.String())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func launchFoo(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost, "/v1/tokens", &creator, LaunchRequest{
		Name: "Foo", Symbol: "FOO", Supply: 1_000_000, Decimals: 6,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["token_data"].(string)
}

func TestLaunchAndRead(t *testing.T) {
	srv := newTestServer(t, false)
	addr := launchFoo(t, srv)

	resp, body := do(t, srv, http.MethodGet, "/v1/tokens/"+addr, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Foo", body["name"])
	assert.Equal(t, creator.String(), body["creator"])
	assert.Equal(t, false, body["trading_enabled"])
	assert.EqualValues(t, 1_700_000_000, body["created_at"])

	resp, body = do(t, srv, http.MethodGet, "/v1/creators/"+creator.String()+"/tokens/Foo", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, addr, body["address"])

	resp, body = do(t, srv, http.MethodGet, "/v1/tokens/"+addr+"/balances/"+creator.String(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1_000_000, body["amount"])

	resp, body = do(t, srv, http.MethodGet, "/v1/derive?creator="+creator.String()+"&name=Foo", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, addr, body["token_data"])
}

func TestLaunchErrors(t *testing.T) {
	srv := newTestServer(t, false)
	launchFoo(t, srv)

	tests := []struct {
		name   string
		caller *pda.Pubkey
		body   any
		status int
		code   float64
	}{
		{"duplicate", &creator, LaunchRequest{Name: "Foo", Symbol: "FOO", Supply: 1}, http.StatusConflict, 6003},
		{"zero supply", &creator, LaunchRequest{Name: "Bar", Symbol: "BAR"}, http.StatusBadRequest, 6002},
		{"long symbol", &creator, LaunchRequest{Name: "Bar", Symbol: strings.Repeat("B", 11), Supply: 1}, http.StatusBadRequest, 6007},
		{"unfunded", &stranger, LaunchRequest{Name: "Bar", Symbol: "BAR", Supply: 1}, http.StatusPaymentRequired, 6008},
		{"no caller", nil, LaunchRequest{Name: "Bar", Symbol: "BAR", Supply: 1}, http.StatusUnauthorized, 0},
		{"unknown field", &creator, map[string]any{"name": "Bar", "owner": "x"}, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodPost, "/v1/tokens", tt.caller, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.code != 0 {
				assert.Equal(t, tt.code, body["code"])
			}
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestEnableTrading(t *testing.T) {
	srv := newTestServer(t, false)
	addr := launchFoo(t, srv)
	path := "/v1/tokens/" + addr + "/trading"

	resp, body := do(t, srv, http.MethodPost, path, &stranger, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body["name"])

	resp, body = do(t, srv, http.MethodPost, path, &creator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["trading_enabled"])

	resp, body = do(t, srv, http.MethodPost, path, &creator, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.EqualValues(t, 6001, body["code"])

	resp, _ = do(t, srv, http.MethodPost, "/v1/tokens/"+stranger.String()+"/trading", &creator, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/v1/tokens/not-a-key/trading", &creator, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDistributeRevenue(t *testing.T) {
	srv := newTestServer(t, false)
	addr := launchFoo(t, srv)
	path := "/v1/tokens/" + addr + "/revenue"

	resp, body := do(t, srv, http.MethodPost, path, &creator, RevenueRequest{Amount: 40})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 40, body["total_revenue_distributed"])

	resp, body = do(t, srv, http.MethodPost, path, &creator, RevenueRequest{Amount: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 42, body["total_revenue_distributed"])

	resp, _ = do(t, srv, http.MethodPost, path, &stranger, RevenueRequest{Amount: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAirdrop(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, false)
		resp, _ := do(t, srv, http.MethodPost, "/v1/airdrop", nil, AirdropRequest{To: stranger, Lamports: 5})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("enabled", func(t *testing.T) {
		srv := newTestServer(t, true)
		resp, body := do(t, srv, http.MethodPost, "/v1/airdrop", nil, AirdropRequest{To: stranger, Lamports: 5})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 5, body["lamports"])

		resp, body = do(t, srv, http.MethodGet, "/v1/accounts/"+stranger.String()+"/lamports", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 5, body["lamports"])
	})
}

func TestEvents(t *testing.T) {
	t.Run("disabled without history", func(t *testing.T) {
		srv := newTestServer(t, false)
		addr := launchFoo(t, srv)
		resp, _ := do(t, srv, http.MethodGet, "/v1/tokens/"+addr+"/events", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("history", func(t *testing.T) {
		srv := newTestServerWith(t, false, &recordedHistory{events.NewRecorder()})
		addr := launchFoo(t, srv)
		do(t, srv, http.MethodPost, "/v1/tokens/"+addr+"/revenue", &creator, RevenueRequest{Amount: 40})
		do(t, srv, http.MethodPost, "/v1/tokens/"+addr+"/trading", &creator, nil)
		do(t, srv, http.MethodPost, "/v1/tokens/"+addr+"/revenue", &creator, RevenueRequest{Amount: 2})

		resp, body := do(t, srv, http.MethodGet, "/v1/tokens/"+addr+"/events", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, addr, body["token_data"])
		assert.EqualValues(t, 42, body["revenue_total"])

		evs := body["events"].([]any)
		require.Len(t, evs, 4)
		var kinds []string
		for _, ev := range evs {
			kinds = append(kinds, ev.(map[string]any)["kind"].(string))
		}
		assert.Equal(t, []string{"token_launched", "revenue_distributed", "trading_enabled", "revenue_distributed"}, kinds)

		resp, body = do(t, srv, http.MethodGet, "/v1/tokens/"+stranger.String()+"/events", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, body["events"])
	})
}
