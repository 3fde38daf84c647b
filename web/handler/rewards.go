package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/dreamplay/rewards/pkg/httpkit"
	"github.com/dreamplay/rewards/rewards"
	"github.com/dreamplay/rewards/web/api"
	"github.com/dreamplay/rewards/web/handler/bind"
)

// Routes served by the rewards handler
const (
	LogActionRoute       = http.MethodPost + " " + "/api/actions"
	ClaimDailyRoute      = http.MethodPost + " " + "/api/claim-daily"
	GetStatusRoute       = http.MethodGet + " " + "/api/status"
	PostStatusRoute      = http.MethodPost + " " + "/api/status"
	LeaderboardRoute     = http.MethodGet + " " + "/api/leaderboard"
	BoardRoute           = http.MethodGet + " " + "/api/board"
	ValidateSponsorRoute = http.MethodPost + " " + "/api/sponsors/validate"
)

// ActionLogger logs capped actions
type ActionLogger interface {
	LogAction(ctx context.Context, req rewards.LogActionRequest) (rewards.LogActionResult, error)
}

// Ledger serves daily claims and status reads
type Ledger interface {
	Status(ctx context.Context, w rewards.Wallet) (rewards.Status, error)
	ClaimDaily(ctx context.Context, w rewards.Wallet) (rewards.DailyClaimResult, error)
}

// LeaderboardView ranks today's wallets
type LeaderboardView interface {
	TopToday(ctx context.Context, limit int) (rewards.Leaderboard, error)
}

// BoardComputer derives the commission board of a wallet
type BoardComputer interface {
	ComputeBoard(ctx context.Context, base rewards.Wallet) (rewards.Board, error)
}

// Rewards serves the points, claim, leaderboard and commission endpoints.
type Rewards struct {
	actions     ActionLogger
	ledger      Ledger
	leaderboard LeaderboardView
	board       BoardComputer
	graph       rewards.SponsorGraph
}

func NewRewards(actions ActionLogger, ledger Ledger, leaderboard LeaderboardView, board BoardComputer, graph rewards.SponsorGraph) *Rewards {
	return &Rewards{
		actions:     actions,
		ledger:      ledger,
		leaderboard: leaderboard,
		board:       board,
		graph:       graph,
	}
}

func (h *Rewards) AddRoutes(m *http.ServeMux) {
	m.Handle(LogActionRoute, httpkit.HandlerFunc(h.LogAction))
	m.Handle(ClaimDailyRoute, httpkit.HandlerFunc(h.ClaimDaily))
	m.Handle(GetStatusRoute, httpkit.HandlerFunc(h.Status))
	m.Handle(PostStatusRoute, httpkit.HandlerFunc(h.Status))
	m.Handle(LeaderboardRoute, httpkit.HandlerFunc(h.Leaderboard))
	m.Handle(BoardRoute, httpkit.HandlerFunc(h.Board))
	m.Handle(ValidateSponsorRoute, httpkit.HandlerFunc(h.ValidateSponsor))
}

func (h *Rewards) LogAction(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.LogActionRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	res, err := h.actions.LogAction(r.Context(), req)
	if err != nil {
		return httpkit.JsonError(domainError(err))
	}

	return httpkit.JSON(bind.LogActionResponse(res))
}

func (h *Rewards) ClaimDaily(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	wallet, err := bind.WalletRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	res, err := h.ledger.ClaimDaily(r.Context(), wallet)
	if err != nil {
		return httpkit.JsonError(domainError(err))
	}

	return httpkit.JSON(bind.ClaimDailyResponse(res))
}

// Status never mutates, whichever method it is called with.
func (h *Rewards) Status(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	wallet, err := bind.WalletRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	status, err := h.ledger.Status(r.Context(), wallet)
	if err != nil {
		return httpkit.JsonError(domainError(err))
	}

	return httpkit.JSON(bind.StatusResponse(status))
}

func (h *Rewards) Leaderboard(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	limit, diag, err := bind.LeaderboardRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	board, err := h.leaderboard.TopToday(r.Context(), limit)
	if err != nil {
		return httpkit.JsonError(domainError(err))
	}

	return httpkit.JSON(bind.LeaderboardResponse(board, diag))
}

func (h *Rewards) Board(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	wallet, err := bind.WalletRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	board, err := h.board.ComputeBoard(r.Context(), wallet)
	if err != nil {
		return httpkit.JsonError(domainError(err))
	}

	return httpkit.JSON(bind.BoardResponse(board))
}

func (h *Rewards) ValidateSponsor(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	sponsor, err := bind.SponsorRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	if err := rewards.CheckSponsorEligible(r.Context(), h.graph, sponsor); err != nil {
		return httpkit.JsonError(domainError(err))
	}

	return httpkit.JSON(api.ValidateSponsorResponse{Valid: true, Sponsor: sponsor.String()})
}

// domainError maps rewards errors onto API errors. 5xx messages never carry the cause.
func domainError(err error) *api.Error {
	switch {
	case errors.Is(err, rewards.ErrValidation), errors.Is(err, rewards.ErrIneligibleSponsor):
		return api.BadRequest(err)
	case errors.Is(err, rewards.ErrListingUnavailable):
		return api.ServiceUnavailable(rewards.ErrListingUnavailable, err)
	case errors.Is(err, rewards.ErrSponsorCheckUnavailable):
		return api.ServiceUnavailable(rewards.ErrSponsorCheckUnavailable, err)
	case errors.Is(err, rewards.ErrStorageUnavailable):
		return api.ServiceUnavailable(rewards.ErrStorageUnavailable, err)
	default:
		return api.Wrap(err)
	}
}
