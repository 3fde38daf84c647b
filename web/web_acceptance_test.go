//go:build acceptance

package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/kv/pgxstore"
	"github.com/dreamplay/rewards/migrator/migratortest"
	"github.com/dreamplay/rewards/pkg/logger"
	"github.com/dreamplay/rewards/rewards"
	"github.com/dreamplay/rewards/web/api"
	"github.com/dreamplay/rewards/web/handler"
	"github.com/dreamplay/rewards/web/testcfg"
)

const (
	player = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	anchor = "0x1111111111111111111111111111111111111111"
	root   = "0x2222222222222222222222222222222222222222"
)

// TestWebAPIAcceptanceBehavior drives the rewards API end to end over Postgres
func TestWebAPIAcceptanceBehavior(t *testing.T) {
	t.Parallel()

	t.Run("it caps a day of actions and claims", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server, clk := createTestServer(t)

		// Act
		first := postJSON[api.LogActionResponse](t, server.URL+"/api/actions",
			`{"wallet":"`+player+`","action":"quest","points":70,"sponsor":"`+anchor+`"}`)
		claim := postJSON[api.ClaimDailyResponse](t, server.URL+"/api/claim-daily", `{"wallet":"`+player+`"}`)
		clk.Advance(time.Hour)
		again := postJSON[api.ClaimDailyResponse](t, server.URL+"/api/claim-daily", `{"wallet":"`+player+`"}`)
		status := getJSON[api.StatusResponse](t, server.URL+"/api/status?wallet="+player)

		// Assert
		assert.Equal(t, 70.0, first.Awarded)
		assert.Equal(t, 30.0, claim.PointsAwarded)
		assert.True(t, claim.Capped)
		assert.True(t, again.AlreadyClaimed)
		assert.Equal(t, 100.0, status.DayTotal)
		assert.True(t, status.Capped)
	})

	t.Run("it ranks today's wallets and derives commissions", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server, _ := createTestServer(t)
		postJSON[api.LogActionResponse](t, server.URL+"/api/actions",
			`{"wallet":"`+player+`","action":"quest","points":50,"sponsor":"`+anchor+`"}`)
		postJSON[api.LogActionResponse](t, server.URL+"/api/actions",
			`{"wallet":"`+root+`","action":"quest","points":20}`)

		// Act
		leaderboard := getJSON[api.LeaderboardResponse](t, server.URL+"/api/leaderboard?diag=1")
		board := getJSON[api.BoardResponse](t, server.URL+"/api/board?wallet="+player)

		// Assert
		assert.Equal(t, []api.WalletPoints{{Wallet: player, Points: 50}, {Wallet: root, Points: 20}}, leaderboard.Entries)
		require.NotNil(t, leaderboard.Diag)
		assert.Equal(t, 2, leaderboard.Diag.ReadOK)
		assert.Equal(t, []api.WalletPoints{{Wallet: anchor, Points: 10.5}, {Wallet: root, Points: 6.5}}, board.Totals)
		assert.Len(t, board.Levels, rewards.MaxLevels)
	})
}

type staticGraph struct{}

func (staticGraph) IsAnchor(_ context.Context, a common.Address) (bool, error) {
	return a == common.HexToAddress(anchor), nil
}

func (staticGraph) HasLaunched(context.Context, common.Address) (bool, error) {
	return false, nil
}

func (staticGraph) SponsorOf(_ context.Context, a common.Address) (common.Address, error) {
	if a == common.HexToAddress(anchor) {
		return common.HexToAddress(root), nil
	}
	return common.Address{}, nil
}

func createTestServer(t *testing.T) (*httptest.Server, *clockwork.FakeClock) {
	t.Helper()

	cfg := testcfg.New()
	log := logger.New(os.Stdout, logger.Config{LogLevel: cfg.LogLevel, LogHumanFriendly: cfg.LogHumanFriendly})

	pool := migratortest.CreateTestDatabase(t, cfg.MigrationsDir)
	pgStore, closeStore := pgxstore.New(pool)
	t.Cleanup(closeStore)
	store := kv.WithTimeout(kv.Instrument(pgStore, kv.BackendPostgres), 5*time.Second)

	clk := clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	opts := []rewards.Option{rewards.WithClock(clk), rewards.WithLogger(log)}
	ledger := rewards.NewLedger(store, opts...)

	mux := http.NewServeMux()
	handler.NewRewards(
		rewards.NewActionLogger(store, ledger, staticGraph{}, opts...),
		ledger,
		rewards.NewLeaderboardView(store, opts...),
		rewards.NewCommissionEngine(store, staticGraph{}, opts...),
		staticGraph{},
	).AddRoutes(mux)
	handler.NewSystem(kv.BackendPostgres, clk).AddRoutes(mux)

	server := httptest.NewServer(logger.NewMiddleware(log)(mux))
	t.Cleanup(server.Close)
	return server, clk
}

func postJSON[T any](t *testing.T, url, body string) T {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return doJSON[T](t, req)
}

func getJSON[T any](t *testing.T, url string) T {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)
	return doJSON[T](t, req)
}

func doJSON[T any](t *testing.T, req *http.Request) T {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
