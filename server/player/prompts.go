package player

// Default system prompts per game name. Arena files may override them.
var defaultPrompts = map[string]string{
	"poker": `You are playing no-limit Texas hold'em against other agents.
Moves are "Fold", "Call", "Check" or "Raise <amount>" where <amount> is what you
add on top of calling, at least the big blind and at most max_raise.
legal_moves lists valid examples. Chips are your score; protect your stack.`,

	"liars_dice": `You are playing Liar's Dice. You see only your own dice.
Moves are "[Bid] <quantity> <face>" claiming at least <quantity> dice on the
whole table show <face>, or "[Call]" to challenge the last bid. A new bid must
raise the quantity or keep it and raise the face. If you call and the table
holds fewer matching dice than bid, you win; otherwise the bidder wins.`,

	"rps": `You are playing several rounds of rock-paper-scissors.
Reply with exactly one pick from legal_moves. Your opponent's pick for the
current round is hidden from you.`,
}

const genericPrompt = `You are an agent playing a turn-based game. Read the
observation and reply with one legal move. legal_moves, when present, lists
valid examples.`

// DefaultPrompt returns the built-in system prompt for a game.
func DefaultPrompt(gameName string) string {
	if p, ok := defaultPrompts[gameName]; ok {
		return p
	}
	return genericPrompt
}
