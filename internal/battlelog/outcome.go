package battlelog

// Outcome is a match result seen from the querying user's side
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeUnknown Outcome = "unknown"
)

// ParseOutcome converts a query value to an Outcome.
func ParseOutcome(s string) (Outcome, bool) {
	switch Outcome(s) {
	case OutcomeWin, OutcomeLoss, OutcomeUnknown:
		return Outcome(s), true
	default:
		return "", false
	}
}

// MatchedIdentity returns the first identity, in configured order, that
// played in the match.
func MatchedIdentity(facts MatchFacts, identities []string) (string, bool) {
	for _, name := range identities {
		if name != "" && facts.HasPlayer(name) {
			return name, true
		}
	}
	return "", false
}

// ClassifyOutcome resolves win/loss/unknown for the given identities. The
// identity is matched before the winner is looked at so that users with
// several aliases always resolve through their first configured alias.
func ClassifyOutcome(facts MatchFacts, identities []string) Outcome {
	me, ok := MatchedIdentity(facts, identities)
	if !ok || facts.WinnerName == nil {
		return OutcomeUnknown
	}

	winner := *facts.WinnerName
	switch {
	case winner == me:
		return OutcomeWin
	case facts.HasPlayer(winner):
		return OutcomeLoss
	default:
		return OutcomeUnknown
	}
}

// Opponents returns the match's players that are not any of the identities.
func Opponents(facts MatchFacts, identities []string) []string {
	mine := make(map[string]struct{}, len(identities))
	for _, name := range identities {
		mine[name] = struct{}{}
	}

	opponents := make([]string, 0, len(facts.Players))
	for _, player := range facts.Players {
		if player == "" {
			continue
		}
		if _, ok := mine[player]; ok {
			continue
		}
		opponents = append(opponents, player)
	}
	return opponents
}
