package bind

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dreamplay/rewards/pkg/httpkit"
	"github.com/dreamplay/rewards/rewards"
	"github.com/dreamplay/rewards/web/api"
)

// Sentinel errors for request binding
var (
	ErrInvalidBody  = errors.New("invalid request body")
	ErrInvalidLimit = errors.New("invalid limit parameter")

	// Specific limit validation errors
	ErrLimitNotNumeric  = errors.New("limit must be numeric")
	ErrLimitNotPositive = errors.New("limit must be positive")
)

// LogActionRequest binds the JSON body of POST /api/actions
func LogActionRequest(r *http.Request) (rewards.LogActionRequest, error) {
	var body api.LogActionRequest
	if err := httpkit.DecodeJSON(r, &body); err != nil {
		return rewards.LogActionRequest{}, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	return rewards.LogActionRequest{
		Wallet:  body.Wallet,
		Action:  body.Action,
		Points:  body.Points,
		Sponsor: body.Sponsor,
		Note:    body.Note,
	}, nil
}

// WalletRequest reads the wallet from the query string, falling back to a JSON body.
// The result is validated and canonical.
func WalletRequest(r *http.Request) (rewards.Wallet, error) {
	raw := r.URL.Query().Get("wallet")
	if raw == "" && r.Method == http.MethodPost {
		var body api.WalletRequest
		if err := httpkit.DecodeJSON(r, &body); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidBody, err)
		}
		raw = body.Wallet
	}

	w, err := rewards.ParseWallet(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", rewards.ErrValidation, err)
	}
	return w, nil
}

// SponsorRequest binds the JSON body of POST /api/sponsors/validate
func SponsorRequest(r *http.Request) (rewards.Wallet, error) {
	var body api.ValidateSponsorRequest
	if err := httpkit.DecodeJSON(r, &body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	sponsor, err := rewards.ParseSponsor(body.Sponsor)
	if err != nil {
		return "", err
	}
	if sponsor.IsZero() {
		return "", fmt.Errorf("%w: %w", rewards.ErrValidation, rewards.ErrInvalidSponsor)
	}
	return sponsor, nil
}

// LeaderboardRequest binds limit (default 100, capped at 100) and the diag flag
func LeaderboardRequest(r *http.Request) (limit int, diag bool, err error) {
	query := r.URL.Query()
	diag = query.Get("diag") == "1"

	limit = rewards.DefaultLeaderboardLimit
	if limitParam := query.Get("limit"); limitParam != "" {
		limit, err = parseLimit(limitParam)
		if err != nil {
			return 0, diag, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
		}
	}
	return rewards.ClampLeaderboardLimit(limit), diag, nil
}

func parseLimit(limitParam string) (int, error) {
	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		return 0, ErrLimitNotNumeric
	}
	if limit <= 0 {
		return 0, ErrLimitNotPositive
	}
	return limit, nil
}

// LogActionResponse binds the action outcome
func LogActionResponse(res rewards.LogActionResult) api.LogActionResponse {
	return api.LogActionResponse{
		OK:       true,
		Awarded:  res.Awarded,
		DayTotal: res.DayTotal,
		Capped:   res.Capped,
		EventKey: res.EventKey,
	}
}

// ClaimDailyResponse binds the claim outcome
func ClaimDailyResponse(res rewards.DailyClaimResult) api.ClaimDailyResponse {
	return api.ClaimDailyResponse{
		OK:             true,
		AlreadyClaimed: res.AlreadyClaimed,
		NextEligibleMs: res.NextEligibleMs,
		PointsAwarded:  res.PointsAwarded,
		DayTotal:       res.DayTotal,
		Capped:         res.Capped,
	}
}

// StatusResponse binds today's standing
func StatusResponse(s rewards.Status) api.StatusResponse {
	return api.StatusResponse{
		OK:       true,
		Wallet:   s.Wallet.String(),
		Date:     s.Date,
		DayTotal: s.DayTotal,
		Capped:   s.Capped,
	}
}

// LeaderboardResponse binds the ranking; diagnostics only when requested
func LeaderboardResponse(b rewards.Leaderboard, diag bool) api.LeaderboardResponse {
	resp := api.LeaderboardResponse{
		OK:      true,
		Date:    b.Date,
		Entries: walletPoints(b.Entries),
	}
	if diag {
		resp.Diag = &api.LeaderboardDiag{
			Listed:   b.Diag.Listed,
			ReadOK:   b.Diag.ReadOK,
			ReadFail: b.Diag.ReadFail,
		}
	}
	return resp
}

// BoardResponse binds the commission board
func BoardResponse(b rewards.Board) api.BoardResponse {
	levels := make([]api.BoardLevel, len(b.Levels))
	for i, l := range b.Levels {
		levels[i] = api.BoardLevel{Level: l.Level, Pct: l.Pct, Points: l.Points}
	}

	return api.BoardResponse{
		OK:         true,
		Base:       b.Base.String(),
		Totals:     walletPoints(b.Totals),
		Levels:     levels,
		EventCount: b.EventCount,
		Diag:       api.BoardDiag{ReadOK: b.Diag.ReadOK, ReadFail: b.Diag.ReadFail},
	}
}

func walletPoints(entries []rewards.WalletPoints) []api.WalletPoints {
	out := make([]api.WalletPoints, len(entries))
	for i, e := range entries {
		out[i] = api.WalletPoints{Wallet: e.Wallet.String(), Points: e.Points}
	}
	return out
}
