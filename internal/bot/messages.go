package bot

// The point of a thawing notice is the timestamp it leaves behind, not the
// content; might as well have some fun with the content.
var thawMessages = []string{
	"thaw",
	"sprinkling antifreeze",
	"!freeze",
	"♫ the heat never bothered me anyway🎶",
	"Kilr^WSloshy the Thawman was here!",
}

func (b *Bot) thawMessage() string {
	return thawMessages[b.rng.Intn(len(thawMessages))]
}
