package injury

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchedge/pitchedge/internal/models"
)

func starter(name string, pos models.PlayerPosition, key bool) models.MissingPlayer {
	return models.MissingPlayer{Name: name, Role: models.RoleStarter, Position: pos, KeyPlayer: key}
}

func TestScoreTeamEmpty(t *testing.T) {
	out := ScoreTeam(nil, nil)
	assert.Zero(t, out.Total)
	assert.Equal(t, SeverityLow, out.Severity)

	out = ScoreTeam([]models.MissingPlayer{{Name: "  "}}, nil)
	assert.Zero(t, out.Total, "nameless entries are skipped")
}

func TestScoreTeamSeverityTiers(t *testing.T) {
	tests := []struct {
		name    string
		missing []models.MissingPlayer
		want    Severity
	}{
		{
			name:    "one starter is medium",
			missing: []models.MissingPlayer{starter("A", models.PosMID, false)},
			want:    SeverityMedium,
		},
		{
			name: "two starters is high",
			missing: []models.MissingPlayer{
				starter("A", models.PosMID, false),
				starter("B", models.PosDEF, false),
			},
			want: SeverityHigh,
		},
		{
			name: "three starters is critical",
			missing: []models.MissingPlayer{
				starter("A", models.PosGK, true),
				starter("B", models.PosDEF, true),
				starter("C", models.PosFWD, true),
			},
			want: SeverityCritical,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreTeam(tt.missing, nil)
			assert.Equal(t, tt.want, got.Severity)
		})
	}
}

func TestScoreTeamSplitsImpact(t *testing.T) {
	out := ScoreTeam([]models.MissingPlayer{
		starter("GK", models.PosGK, false),
		starter("FW", models.PosFWD, false),
		starter("MF", models.PosMID, false),
	}, nil)

	// GK 3.0*1.6 defensive, FWD 2.5*1.6 offensive, MID 2.0*1.6 split.
	assert.InDelta(t, 4.8+1.6, out.DefensiveImpact, 1e-9)
	assert.InDelta(t, 4.0+1.6, out.OffensiveImpact, 1e-9)
	assert.Len(t, out.KeyPlayersOut, 0)
}

func TestKeyPlayerBonus(t *testing.T) {
	plain := ScoreTeam([]models.MissingPlayer{starter("A", models.PosFWD, false)}, nil)
	key := ScoreTeam([]models.MissingPlayer{starter("A", models.PosFWD, true)}, nil)
	assert.InDelta(t, 1.5, key.Total-plain.Total, 1e-9)
	assert.Equal(t, []string{"A"}, key.KeyPlayersOut)
}

func TestResolveRoleHeuristics(t *testing.T) {
	squad := &SquadInfo{
		PositionGroups: map[models.PlayerPosition][]string{
			models.PosFWD: {"First Choice", "Second", "Third", "Fourth", "Fifth"},
		},
		Appearances: map[string]int{"Second": 20},
	}

	p := ResolveRole(models.MissingPlayer{Name: "First Choice", Position: models.PosFWD}, squad)
	assert.Equal(t, models.RoleStarter, p.Role, "first listed in group")

	p = ResolveRole(models.MissingPlayer{Name: "Second", Position: models.PosFWD}, squad)
	assert.Equal(t, models.RoleStarter, p.Role, "appearance count promotes to starter")

	p = ResolveRole(models.MissingPlayer{Name: "Fifth", Position: models.PosFWD}, squad)
	assert.Equal(t, models.RoleRotation, p.Role, "unknown player in a deep group")

	p = ResolveRole(models.MissingPlayer{Name: "X", Position: models.PosGK}, squad)
	assert.Equal(t, models.RoleBackup, p.Role, "position group unknown")

	p = ResolveRole(models.MissingPlayer{Name: "X"}, nil)
	assert.Equal(t, models.PosUNK, p.Position)
	assert.Equal(t, models.RoleBackup, p.Role)
}

func TestCompareCapsAdjustment(t *testing.T) {
	home := ScoreTeam([]models.MissingPlayer{
		starter("A", models.PosGK, true),
		starter("B", models.PosDEF, true),
		starter("C", models.PosFWD, true),
		starter("D", models.PosMID, true),
	}, nil)
	away := ScoreTeam(nil, nil)

	d := Compare(home, away)
	require.Greater(t, d.Diff, maxScoreAdjustment)
	assert.Equal(t, maxScoreAdjustment, d.ScoreAdjustment)

	inverted := Compare(away, home)
	assert.Equal(t, -maxScoreAdjustment, inverted.ScoreAdjustment)
}

func TestApplyToScoreMarketAware(t *testing.T) {
	d := Differential{ScoreAdjustment: 1.2}
	assert.InDelta(t, 6.8, d.ApplyToScore(8.0, models.MarketHome), 1e-9)
	assert.InDelta(t, 9.2, d.ApplyToScore(8.0, models.MarketAway), 1e-9)
	assert.InDelta(t, 8.0, d.ApplyToScore(8.0, models.MarketOver25), 1e-9)
}
