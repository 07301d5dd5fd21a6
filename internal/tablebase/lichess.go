package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/board"
)

// DefaultLichessURL is the public standard-chess tablebase endpoint.
const DefaultLichessURL = "https://tablebase.lichess.ovh/standard"

// LichessProber uses the Lichess tablebase API for online lookups.
// It needs network access and is rate limited, so wrap it in a CachedProber.
type LichessProber struct {
	client    *http.Client
	baseURL   string
	maxPieces int
}

// NewLichessProber creates a prober querying baseURL, DefaultLichessURL if empty.
func NewLichessProber(baseURL string, timeout time.Duration) *LichessProber {
	if baseURL == "" {
		baseURL = DefaultLichessURL
	}
	return &LichessProber{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		maxPieces: 7,
	}
}

type lichessMove struct {
	UCI      string `json:"uci"`
	Category string `json:"category"`
	DTZ      *int   `json:"dtz"`
}

type lichessResponse struct {
	Category string        `json:"category"`
	DTZ      *int          `json:"dtz"`
	Moves    []lichessMove `json:"moves"`
}

// Lookup queries the API for pos.
func (lp *LichessProber) Lookup(ctx context.Context, pos *board.Position) (*lichessResponse, error) {
	if pos.PieceCount() > lp.maxPieces {
		return nil, fmt.Errorf("%d pieces: %w", pos.PieceCount(), ErrNotAvailable)
	}

	u := lp.baseURL + "?fen=" + url.QueryEscape(pos.ToFEN())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build tablebase request: %w", err)
	}
	resp, err := lp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tablebase request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tablebase status %d: %w", resp.StatusCode, ErrNotAvailable)
	}

	var result lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tablebase response: %w", err)
	}
	if categoryToWDL(result.Category) == nil {
		return nil, fmt.Errorf("category %q: %w", result.Category, ErrNotAvailable)
	}
	return &result, nil
}

func (lp *LichessProber) Probe(pos *board.Position) ProbeResult {
	result, err := lp.Lookup(context.Background(), pos)
	if err != nil {
		log.Debug().Err(err).Str("fen", pos.ToFEN()).Msg("tablebase probe failed")
		return ProbeResult{}
	}
	return ProbeResult{
		Found: true,
		WDL:   *categoryToWDL(result.Category),
		DTZ:   deref(result.DTZ),
	}
}

func (lp *LichessProber) ProbeRoot(pos *board.Position) RootResult {
	result, err := lp.Lookup(context.Background(), pos)
	if err != nil {
		log.Debug().Err(err).Str("fen", pos.ToFEN()).Msg("tablebase root probe failed")
		return RootResult{}
	}

	// move categories are given for the side to move after the move
	best := WDLLoss - 1
	var root RootResult
	for _, lm := range result.Moves {
		w := categoryToWDL(lm.Category)
		if w == nil {
			continue
		}
		ours := -*w
		m, err := board.ParseMove(lm.UCI, pos)
		if err != nil {
			log.Warn().Err(err).Msg("tablebase returned an unknown move")
			continue
		}
		switch {
		case ours > best:
			best = ours
			root = RootResult{Found: true, WDL: ours, DTZ: deref(lm.DTZ), Moves: []board.Move{m}}
		case ours == best:
			root.Moves = append(root.Moves, m)
		}
	}
	return root
}

// SetMaxPieces limits lookups to positions with at most n pieces, 3 to 7.
func (lp *LichessProber) SetMaxPieces(n int) {
	lp.maxPieces = max(3, min(n, 7))
}

func (lp *LichessProber) MaxPieces() int {
	return lp.maxPieces
}

// categoryToWDL maps an API category, nil when the outcome is unknown.
func categoryToWDL(category string) *WDL {
	var w WDL
	switch category {
	case "win":
		w = WDLWin
	case "cursed-win", "maybe-win":
		w = WDLCursedWin
	case "draw":
		w = WDLDraw
	case "blessed-loss", "maybe-loss":
		w = WDLBlessedLoss
	case "loss":
		w = WDLLoss
	default:
		return nil
	}
	return &w
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
