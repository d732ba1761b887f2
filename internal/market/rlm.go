package market

// RLMConfidence grades a reverse-line-movement signal.
type RLMConfidence string

const (
	RLMLow    RLMConfidence = "LOW"
	RLMMedium RLMConfidence = "MEDIUM"
	RLMHigh   RLMConfidence = "HIGH"
)

// RLMSignal marks the market moving against the public side.
type RLMSignal struct {
	SharpSide  string        `json:"sharp_side"` // HOME or AWAY
	MovePct    float64       `json:"move_pct"`
	PublicSide string        `json:"public_side"`
	PublicPct  float64       `json:"public_pct"`
	Confidence RLMConfidence `json:"confidence"`
}

// PublicSplit is the share of public bets on each side. Zero values mean
// unknown; the detector then estimates from opening prices under the
// favorite-attracts-public heuristic.
type PublicSplit struct {
	Home float64
	Away float64
}

// DetectRLM detects that the line moved against the public side by at least
// thresholdPct. Missing or invalid odds return nil.
func DetectRLM(openHome, curHome, openAway, curAway float64, public PublicSplit, thresholdPct float64) *RLMSignal {
	if thresholdPct <= 0 {
		thresholdPct = 3.0
	}
	if openHome < 1.01 || curHome < 1.01 || openAway < 1.01 || curAway < 1.01 {
		return nil
	}

	if public.Home <= 0 && public.Away <= 0 {
		// Favorites attract the public: the shorter opening price carries
		// the estimated majority.
		if openHome < openAway {
			public = PublicSplit{Home: 0.65, Away: 0.35}
		} else {
			public = PublicSplit{Home: 0.35, Away: 0.65}
		}
	}

	publicSide, publicPct := "HOME", public.Home
	sharpSide := "AWAY"
	moveAgainstPublic := (curHome - openHome) / openHome * 100
	if public.Away > public.Home {
		publicSide, publicPct = "AWAY", public.Away
		sharpSide = "HOME"
		moveAgainstPublic = (curAway - openAway) / openAway * 100
	}

	// RLM = the public side's price lengthening despite the money on it.
	if moveAgainstPublic < thresholdPct {
		return nil
	}

	conf := RLMLow
	if moveAgainstPublic >= thresholdPct+2 {
		conf = RLMHigh
	} else if moveAgainstPublic >= thresholdPct+1 {
		conf = RLMMedium
	}

	return &RLMSignal{
		SharpSide:  sharpSide,
		MovePct:    moveAgainstPublic,
		PublicSide: publicSide,
		PublicPct:  publicPct,
		Confidence: conf,
	}
}
