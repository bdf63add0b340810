package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/history"
	"github.com/wonny/valuescreener/pkg/errs"
)

// dcfStub serves canned valuations and fails for unknown tickers
type dcfStub struct {
	mu    sync.Mutex
	calls []string
}

func (s *dcfStub) FetchDCFValuation(ctx context.Context, ticker string) (*contracts.DCFValuation, error) {
	s.mu.Lock()
	s.calls = append(s.calls, ticker)
	s.mu.Unlock()

	if ticker == "BAD.PA" {
		return nil, errs.New(errs.KindNetwork, "Données FCF insuffisantes")
	}
	return &contracts.DCFValuation{Ticker: ticker, CurrentPrice: 100}, nil
}

// upstream records every request the CLI sends
type upstream struct {
	mu       sync.Mutex
	requests []string
	screen   []contracts.ScreeningRequest
}

func (u *upstream) calls(prefix string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, r := range u.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func newUpstream(t *testing.T) (*upstream, string) {
	t.Helper()
	u := &upstream{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.Method+" "+r.URL.Path)
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/indices":
			_ = json.NewEncoder(w).Encode(contracts.IndicesResponse{Indices: []string{"CAC 40 (France)", "DAX (Allemagne)"}})

		case r.Method == http.MethodPost && r.URL.Path == "/screening":
			var req contracts.ScreeningRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			u.mu.Lock()
			u.screen = append(u.screen, req)
			u.mu.Unlock()
			_ = json.NewEncoder(w).Encode(contracts.ScreeningResponse{Results: []contracts.StockResult{
				{Symbol: "OR.PA", CompanyName: "L'Oréal", Currency: "EUR", Score: 60, CurrentPrice: 400, IntrinsicValue: contracts.Float(380)},
				{Symbol: "MC.PA", CompanyName: "LVMH", Currency: "EUR", Score: 85, CurrentPrice: 700, IntrinsicValue: contracts.Float(820)},
			}})

		case r.Method == http.MethodGet && r.URL.Path == "/screening/history":
			_ = json.NewEncoder(w).Encode(contracts.HistoryResponse{History: []contracts.HistoryRecord{
				{ID: 3, IndexName: "CAC 40 (France)", Timestamp: "2024-05-02T09:30:00", TotalResults: 2},
			}})

		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/screening/history/"):
			_ = json.NewEncoder(w).Encode(contracts.MessageResponse{Message: "deleted"})

		case r.Method == http.MethodGet && r.URL.Path == "/financials/MC.PA":
			_, _ = w.Write([]byte(`{
				"financials": {
					"2023-12-31 00:00:00": {"Total Revenue": 86153000000},
					"2024-12-31 00:00:00": {"Total Revenue": 84683000000, "Net Income": null}
				},
				"balance_sheet": {},
				"cash_flow": {"2024-12-31 00:00:00": {"Free Cash Flow": 10600000000}}
			}`))

		case r.Method == http.MethodGet && r.URL.Path == "/dcf-valuation/BAD.PA":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"Données FCF insuffisantes"}`))

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/dcf-valuation/"):
			_ = json.NewEncoder(w).Encode(contracts.DCFValuation{
				CurrentPrice: 100,
				Scenario1:    contracts.DCFScenario{IntrinsicValue: 125},
				Scenario2:    contracts.DCFScenario{IntrinsicValue: 95},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		}
	}))
	t.Cleanup(server.Close)

	return u, server.URL
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("ENV", "development")
	t.Setenv("API_RATE_LIMIT_RPS", "0")
	t.Setenv("REDIS_ENABLED", "false")
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestScreen_JSON(t *testing.T) {
	u, url := newUpstream(t)

	out, _, err := execute(t, "", "--api-url", url, "screen", "--json", "--sort-score")
	require.NoError(t, err)

	var got screenJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "CAC 40 (France)", got.Criteria.IndexName)
	assert.Equal(t, 2, got.Summary.Count)
	assert.Equal(t, 1, got.Summary.UndervaluedCount)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "MC.PA", got.Results[0].Symbol)

	// 기본 인덱스는 목록 조회 없이 바로 스크리닝
	assert.Equal(t, 0, u.calls("GET /indices"))
	require.Len(t, u.screen, 1)
	assert.Equal(t, 15.0, u.screen[0].PEMax)
	assert.Equal(t, 0.12, u.screen[0].ROEMin)
}

func TestScreen_OutOfRangeSendsNothing(t *testing.T) {
	u, url := newUpstream(t)

	_, stderr, err := execute(t, "", "--api-url", url, "screen", "--pe-max=-5")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
	assert.Contains(t, stderr, "pe_max")
	assert.Empty(t, u.requests)
}

func TestScreen_UnknownIndexRejected(t *testing.T) {
	u, url := newUpstream(t)

	_, _, err := execute(t, "", "--api-url", url, "screen", "--index", "Nikkei 225")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
	assert.Equal(t, 1, u.calls("GET /indices"))
	assert.Equal(t, 0, u.calls("POST /screening"))
}

func TestScreen_TableAndPreset(t *testing.T) {
	_, url := newUpstream(t)

	dir := t.TempDir()
	preset := filepath.Join(dir, "value.yaml")
	require.NoError(t, os.WriteFile(preset, []byte("index_name: DAX (Allemagne)\npe_max: 12\n"), 0o644))
	saved := filepath.Join(dir, "saved.yaml")

	out, _, err := execute(t, "", "--api-url", url, "screen", "--preset", preset, "--pb-max", "2", "--page-size", "1", "--save-preset", saved)
	require.NoError(t, err)

	assert.Contains(t, out, "Screening: DAX (Allemagne)")
	assert.Contains(t, out, "Page 1/2 (2 results)")

	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pe_max: 12")
	assert.Contains(t, string(data), "pb_max: 2")
}

func TestScreen_CSVToDirectory(t *testing.T) {
	_, url := newUpstream(t)
	dir := t.TempDir()

	_, stderr, err := execute(t, "", "--api-url", url, "screen", "--csv", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "2 results exported")

	matches, err := filepath.Glob(filepath.Join(dir, "screening_results_*.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestHistoryDelete_Confirmation(t *testing.T) {
	u, url := newUpstream(t)

	out, _, err := execute(t, "n\n", "--api-url", url, "history", "delete", "3")
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrNotConfirmed)
	assert.Contains(t, out, "Delete screening #3 (CAC 40 (France), 2024-05-02 09:30)?")
	assert.Equal(t, 0, u.calls("DELETE"))

	out, _, err = execute(t, "", "--api-url", url, "history", "delete", "3", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Screening #3 deleted")
	assert.Equal(t, 1, u.calls("DELETE /screening/history/3"))
}

func TestIndices(t *testing.T) {
	_, url := newUpstream(t)

	out, _, err := execute(t, "", "--api-url", url, "indices")
	require.NoError(t, err)
	assert.Contains(t, out, "DAX (Allemagne)")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"oui\n", true},
		{"o", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, tt.want, Confirm(strings.NewReader(tt.input), &out, "Delete?"))
			assert.Equal(t, "Delete? [y/N] ", out.String())
		})
	}
}

func TestExportCSV_Stdout(t *testing.T) {
	var out, status bytes.Buffer
	rows := []contracts.StockResult{{Symbol: "AI.PA", CompanyName: "Air Liquide", Score: 70}}

	require.NoError(t, exportCSV(&out, &status, "-", rows, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, strings.HasPrefix(out.String(), "symbol,"))
	assert.Contains(t, out.String(), `"AI.PA"`)
	assert.Empty(t, status.String())
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestRenderDCF(t *testing.T) {
	var out bytes.Buffer
	RenderDCF(&out, &contracts.DCFValuation{
		Ticker:       "AI.PA",
		CurrentPrice: 100,
		Scenario1:    contracts.DCFScenario{IntrinsicValue: 120, Assumptions: contracts.DCFAssumptions{FCFGrowth: 0.05, PerpGrowth: 0.02}},
		Scenario2:    contracts.DCFScenario{IntrinsicValue: 90},
	})

	s := out.String()
	assert.Contains(t, s, "DCF valuation: AI.PA")
	assert.Contains(t, s, "20.0%")
	assert.Contains(t, s, "-10.0%")
}

func TestFetchDCFs_KeepsOrderAndErrors(t *testing.T) {
	stub := &dcfStub{}

	got := fetchDCFs(context.Background(), stub, []string{"AI.PA", "BAD.PA", "MC.PA"}, 2)

	require.Len(t, got, 3)
	assert.Equal(t, "AI.PA", got[0].Ticker)
	require.NotNil(t, got[0].Valuation)
	assert.Equal(t, "BAD.PA", got[1].Ticker)
	assert.Nil(t, got[1].Valuation)
	assert.Contains(t, got[1].Error, "Données FCF insuffisantes")
	assert.Equal(t, "MC.PA", got[2].Ticker)
	require.NotNil(t, got[2].Valuation)
	assert.Len(t, stub.calls, 3)
}

func TestDCF_MultipleTickers(t *testing.T) {
	u, url := newUpstream(t)

	out, stderr, err := execute(t, "", "--api-url", url, "dcf", "ai.pa", "BAD.PA", "MC.PA")
	require.NoError(t, err)

	assert.Contains(t, out, "DCF valuation: AI.PA")
	assert.Contains(t, out, "DCF valuation: MC.PA")
	assert.NotContains(t, out, "BAD.PA")
	assert.Contains(t, stderr, "Données FCF insuffisantes")
	assert.Equal(t, 3, u.calls("GET /dcf-valuation/"))
}

func TestDCF_AllFailed(t *testing.T) {
	_, url := newUpstream(t)

	_, _, err := execute(t, "", "--api-url", url, "dcf", "BAD.PA")
	assert.Error(t, err)
}

func TestDCF_JSON(t *testing.T) {
	_, url := newUpstream(t)

	out, _, err := execute(t, "", "--api-url", url, "dcf", "--json", "AI.PA", "OR.PA")
	require.NoError(t, err)

	var got []dcfOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "OR.PA", got[1].Ticker)
	require.NotNil(t, got[1].Valuation)
	assert.InDelta(t, 125, got[1].Valuation.Scenario1.IntrinsicValue, 1e-9)
}

func TestProfile_SuppliesAPIURL(t *testing.T) {
	u, url := newUpstream(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "screener.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: "+url+"\n"), 0o644))

	_, _, err := execute(t, "", "--config", path, "indices", "--json")
	require.NoError(t, err)
	assert.Equal(t, 1, u.calls("GET /indices"))
}

func TestProfile_ExplicitMissingFile(t *testing.T) {
	_, _, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "indices")
	assert.Error(t, err)
}

func TestFinancials_Table(t *testing.T) {
	u, url := newUpstream(t)

	out, _, err := execute(t, "", "--api-url", url, "financials", "mc.pa", "--periods", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "Financial statements: MC.PA")
	assert.Contains(t, out, "Income statement")
	assert.Contains(t, out, "Cash flow")
	assert.NotContains(t, out, "Balance sheet")
	assert.Contains(t, out, "2024-12-31")
	assert.NotContains(t, out, "2023-12-31")
	assert.Contains(t, out, "84.68B")
	assert.Contains(t, out, "N/A")
	assert.Equal(t, 1, u.calls("GET /financials/MC.PA"))
}

func TestFinancials_UpstreamError(t *testing.T) {
	_, url := newUpstream(t)

	_, _, err := execute(t, "", "--api-url", url, "financials", "XYZ")
	require.Error(t, err)
	assert.Equal(t, "Not Found", err.Error())
}

func TestFormatAmount(t *testing.T) {
	v := func(f float64) *float64 { return &f }

	assert.Equal(t, "N/A", formatAmount(nil))
	assert.Equal(t, "84.68B", formatAmount(v(84683000000)))
	assert.Equal(t, "-1.50M", formatAmount(v(-1500000)))
	assert.Equal(t, "2.00K", formatAmount(v(2000)))
	assert.Equal(t, "12.50", formatAmount(v(12.5)))
}
