// internal/rating/rating.go
package rating

import (
	"sort"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
)

// Iterations is how many Glicko-2 passes FinalizeRatings runs over one match.
const Iterations = 3

// FinalizeRatings settles a finished match. scores maps each player to a final score where
// lower is better; Linot passes 0 for the winner, the hand size for everyone else and a
// high score for players who left. Scores become rank fractions from 1 (best) to 0 (worst),
// with ties sharing the average, and the fractions feed MultiIterationGlicko2.
//
// Players are returned in input order with Rating updated. The input slice is not modified.
// Fewer than two players leaves every rating unchanged.
func FinalizeRatings(players []models.User, scores map[uuid.UUID]int) []models.User {
	if len(players) < 2 {
		out := make([]models.User, len(players))
		copy(out, players)
		return out
	}

	type userScore struct {
		UserID uuid.UUID
		Score  int
	}
	arr := make([]userScore, 0, len(players))
	for _, p := range players {
		arr = append(arr, userScore{p.ID, scores[p.ID]})
	}
	sort.SliceStable(arr, func(i, j int) bool {
		return arr[i].Score < arr[j].Score
	})

	rankFrac := make(map[uuid.UUID]float64, len(arr))
	for i := 0; i < len(arr); {
		j := i + 1
		for j < len(arr) && arr[j].Score == arr[i].Score {
			j++
		}
		avgRank := float64(i+(j-1)) / 2
		fr := 1.0 - (avgRank / float64(len(arr)-1))
		for k := i; k < j; k++ {
			rankFrac[arr[k].UserID] = fr
		}
		i = j
	}

	fractions := make([]float64, len(players))
	for i, p := range players {
		fractions[i] = rankFrac[p.ID]
	}
	return MultiIterationGlicko2(players, fractions, Iterations)
}

// MultiIterationGlicko2 applies Glicko-2 repeatedly for one match. Each player is scored
// against a single opponent whose rating and deviation are the averages of everyone else.
// fractions is parallel to players, each in [0, 1].
func MultiIterationGlicko2(players []models.User, fractions []float64, iterations int) []models.User {
	out := make([]models.User, len(players))
	copy(out, players)
	if len(players) < 2 || len(fractions) != len(players) {
		return out
	}

	states := make([]Glicko2Rating, len(players))
	for i, u := range players {
		states[i] = NewGlicko2Rating(float64(u.Rating), deviationFor(u.RankedGames), DefaultSigma)
	}

	others := float64(len(players) - 1)
	for iter := 0; iter < iterations; iter++ {
		var totalMu, totalPhi float64
		for _, s := range states {
			totalMu += s.Mu
			totalPhi += s.Phi
		}
		next := make([]Glicko2Rating, len(states))
		for i, s := range states {
			opp := Glicko2Rating{
				Mu:    (totalMu - s.Mu) / others,
				Phi:   (totalPhi - s.Phi) / others,
				Sigma: DefaultSigma,
			}
			next[i] = doGlickoUpdate(s, opp, fractions[i])
		}
		states = next
	}

	for i := range out {
		out[i].Rating = states[i].Rating()
	}
	return out
}

// Update1v1 settles a two-player result.
func Update1v1(winner, loser models.User) (models.User, models.User) {
	out := FinalizeRatings([]models.User{winner, loser}, map[uuid.UUID]int{
		winner.ID: 0,
		loser.ID:  1,
	})
	return out[0], out[1]
}
