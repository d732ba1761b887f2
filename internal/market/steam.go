package market

import (
	"time"

	"github.com/pitchedge/pitchedge/internal/models"
)

// SteamMove is a rapid single-direction price drop within the steam window.
type SteamMove struct {
	Market  models.Market `json:"market"`
	DropPct float64       `json:"drop_pct"`
	From    float64       `json:"from"`
	To      float64       `json:"to"`
}

// SteamConfig bounds the detector.
type SteamConfig struct {
	ThresholdPct float64       // minimum drop, default 5%
	Window       time.Duration // lookback, default 15m
}

// DetectSteam scans the odds history (snapshots in capture order) for a
// market whose latest price sits at least ThresholdPct below an older
// snapshot inside the window. Returns nil when nothing qualifies.
func DetectSteam(history []models.OddsSnapshot, cfg SteamConfig) *SteamMove {
	if cfg.ThresholdPct <= 0 {
		cfg.ThresholdPct = 5.0
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if len(history) < 2 {
		return nil
	}

	latest := history[len(history)-1]
	cutoff := latest.CapturedAt.Add(-cfg.Window)

	var best *SteamMove
	markets := []models.Market{
		models.MarketHome, models.MarketDraw, models.MarketAway,
		models.MarketOver25, models.MarketBTTS,
	}
	for _, snap := range history[:len(history)-1] {
		if snap.CapturedAt.Before(cutoff) {
			continue
		}
		for _, m := range markets {
			old := snap.Odds.Get(m)
			cur := latest.Odds.Get(m)
			if old < 1.01 || cur < 1.01 {
				continue
			}
			drop := (old - cur) / old * 100
			if drop >= cfg.ThresholdPct && (best == nil || drop > best.DropPct) {
				best = &SteamMove{Market: m, DropPct: drop, From: old, To: cur}
			}
		}
	}
	return best
}
