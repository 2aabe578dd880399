package models

import "math/big"

// Results is the display summary of a finished race. Winner is surfaced
// verbatim; EmptyParticipant means the authority left it undetermined.
type Results struct {
	Winner       ParticipantID `json:"winner"`
	Prize        *big.Int      `json:"prize"`
	ParticipantA ParticipantID `json:"participant_a"`
	ParticipantB ParticipantID `json:"participant_b"`
	ScoreA       int           `json:"score_a"`
	ScoreB       int           `json:"score_b"`
	// Final is false while the authority has not yet settled the race.
	Final bool `json:"final"`
}

// WinnerLabel renders the winner for display.
func (r *Results) WinnerLabel() string {
	if r.Winner.IsEmpty() {
		return "Undetermined"
	}
	return string(r.Winner)
}
