// internal/rating/glicko2.go
package rating

import (
	"math"
)

const (
	// GlickoScale converts between the integer rating scale and Glicko-2's mu.
	GlickoScale = 173.7178
	// DefaultMu is the rating that maps to mu = 0.
	DefaultMu = 1500.0
	// DefaultPhi is the rating deviation of a player with no ranked history.
	DefaultPhi = 350.0
	// MinPhi is the floor the deviation settles to after many ranked games.
	MinPhi = 50.0
	// DefaultSigma is the starting volatility.
	DefaultSigma = 0.06
	// Tau is the constraint on volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// Glicko2Rating is a rating (Mu), deviation (Phi) and volatility (Sigma) in Glicko-2 space.
type Glicko2Rating struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// NewGlicko2Rating converts a rating and deviation on the integer scale into Glicko-2 space.
func NewGlicko2Rating(rating, rd, sigma float64) Glicko2Rating {
	return Glicko2Rating{
		Mu:    (rating - DefaultMu) / GlickoScale,
		Phi:   rd / GlickoScale,
		Sigma: sigma,
	}
}

// Rating converts Mu back to the integer scale stored on users.
func (r Glicko2Rating) Rating() int {
	return int(math.Round(r.Mu*GlickoScale + DefaultMu))
}

// deviationFor narrows the deviation as a player accumulates ranked games. Users only carry
// a single integer rating, so the game count stands in for a persisted deviation.
func deviationFor(rankedGames int) float64 {
	return math.Max(MinPhi, DefaultPhi/math.Sqrt(1+float64(rankedGames)))
}

// doGlickoUpdate updates r after one result against opp, with score in [0, 1].
func doGlickoUpdate(r, opp Glicko2Rating, score float64) Glicko2Rating {
	gVal := g(opp.Phi)
	EVal := E(r.Mu, opp.Mu, opp.Phi)
	v := 1.0 / (gVal * gVal * EVal * (1 - EVal))
	delta := v * gVal * (score - EVal)

	// volatility, Illinois variant of regula falsi
	a := math.Log(r.Sigma * r.Sigma)
	fx := func(x float64) float64 {
		return f(x, r.Phi, v, delta, a)
	}
	A := a
	var B float64
	if delta*delta > r.Phi*r.Phi+v {
		B = math.Log(delta*delta - r.Phi*r.Phi - v)
	} else {
		k := 1.0
		for fx(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}
	fA, fB := fx(A), fx(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fx(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	newSigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.Phi*r.Phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	return Glicko2Rating{
		Mu:    r.Mu + phiPrime*phiPrime*gVal*(score-EVal),
		Phi:   phiPrime,
		Sigma: newSigma,
	}
}

// g is 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// E is the expected score of mu against an opponent at mu2 with deviation phi2.
func E(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the function whose root is the new log-volatility.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}
