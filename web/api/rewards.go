package api

import (
	"encoding/json"
	"errors"
)

// LogActionRequest is the body of POST /api/actions
type LogActionRequest struct {
	Wallet  string  `json:"wallet"`
	Action  string  `json:"action"`
	Points  float64 `json:"points"`
	Sponsor string  `json:"sponsor,omitempty"`
	Note    string  `json:"note,omitempty"`
}

// LogActionResponse is returned by POST /api/actions
type LogActionResponse struct {
	OK       bool    `json:"ok"`
	Awarded  float64 `json:"awarded"`
	DayTotal float64 `json:"dayTotal"`
	Capped   bool    `json:"capped"`
	EventKey string  `json:"eventKey"`
}

// WalletRequest is the body of POST /api/claim-daily and POST /api/status
type WalletRequest struct {
	Wallet string `json:"wallet"`
}

// ClaimDailyResponse is returned by POST /api/claim-daily
type ClaimDailyResponse struct {
	OK             bool    `json:"ok"`
	AlreadyClaimed bool    `json:"alreadyClaimed"`
	NextEligibleMs int64   `json:"nextEligibleMs"`
	PointsAwarded  float64 `json:"pointsAwarded"`
	DayTotal       float64 `json:"dayTotal"`
	Capped         bool    `json:"capped"`
}

// StatusResponse is returned by /api/status
type StatusResponse struct {
	OK       bool    `json:"ok"`
	Wallet   string  `json:"wallet"`
	Date     string  `json:"date"`
	DayTotal float64 `json:"dayTotal"`
	Capped   bool    `json:"capped"`
}

// WalletPoints is encoded as a two element array: ["0x...", 12.5]
type WalletPoints struct {
	Wallet string
	Points float64
}

var errWalletPointsShape = errors.New("wallet points must be a [wallet, points] pair")

func (p WalletPoints) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Wallet, p.Points})
}

func (p *WalletPoints) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errWalletPointsShape
	}
	if err := json.Unmarshal(pair[0], &p.Wallet); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &p.Points)
}

// LeaderboardDiag is included when the request sets diag=1
type LeaderboardDiag struct {
	Listed   int `json:"listed"`
	ReadOK   int `json:"readOk"`
	ReadFail int `json:"readFail"`
}

// LeaderboardResponse is returned by GET /api/leaderboard
type LeaderboardResponse struct {
	OK      bool             `json:"ok"`
	Date    string           `json:"date"`
	Entries []WalletPoints   `json:"entries"`
	Diag    *LeaderboardDiag `json:"diag,omitempty"`
}

// BoardLevel is the commission credited at one sponsor level
type BoardLevel struct {
	Level  int     `json:"level"`
	Pct    int64   `json:"pct"`
	Points float64 `json:"points"`
}

// BoardDiag counts readable and unreadable events
type BoardDiag struct {
	ReadOK   int `json:"readOk"`
	ReadFail int `json:"readFail"`
}

// BoardResponse is returned by GET /api/board
type BoardResponse struct {
	OK         bool           `json:"ok"`
	Base       string         `json:"base"`
	Totals     []WalletPoints `json:"totals"`
	Levels     []BoardLevel   `json:"levels"`
	EventCount int            `json:"eventCount"`
	Diag       BoardDiag      `json:"diag"`
}

// ValidateSponsorRequest is the body of POST /api/sponsors/validate
type ValidateSponsorRequest struct {
	Sponsor string `json:"sponsor"`
}

// ValidateSponsorResponse is returned for an eligible sponsor
type ValidateSponsorResponse struct {
	Valid   bool   `json:"valid"`
	Sponsor string `json:"sponsor"`
}

// NonceResponse is returned by GET /api/nonce
type NonceResponse struct {
	OK    bool   `json:"ok"`
	Nonce string `json:"nonce"`
	Ts    int64  `json:"ts"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	OK    bool   `json:"ok"`
	Store string `json:"store"`
}
