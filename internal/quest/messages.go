package quest

import (
	"fmt"
	"math/rand"
)

// Scripted transcript lines appended by the controller.
const (
	msgEmptyDecomposition = "Sorry, I couldn't break that down into micro-wins. " +
		"Could you try rephrasing your goal?"
	msgStreamFailure = "I couldn't reach the decomposition service. " +
		"Check your connection and send your goal again."
	questCompleteReward = "Quest complete! Every micro-win counted."
)

// questAccepted reports how many steps the decomposition produced.
func questAccepted(n int) string {
	if n == 1 {
		return "Quest accepted! I broke that down into 1 micro-win. Let's go."
	}
	return fmt.Sprintf(
		"Quest accepted! I broke that down into %d micro-wins. Let's start with the first one.",
		n,
	)
}

// questResumed introduces a reloaded quest.
func questResumed(goal string) string {
	return fmt.Sprintf("Resuming your quest: %s", goal)
}

// encouragements is the fixed pool of step-completion reward lines.
var encouragements = []string{
	"Nice! One micro-win down.",
	"That's momentum. Keep it rolling!",
	"Small step, real progress.",
	"Done and dusted. On to the next one!",
	"You're chipping away at it. Well done!",
}

// pickEncouragement selects a reward line pseudo-randomly for variety.
func pickEncouragement(rng *rand.Rand) string {
	return encouragements[rng.Intn(len(encouragements))]
}
