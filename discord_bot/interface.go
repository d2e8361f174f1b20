package discord_bot

// Bot is the running chat frontend. Start opens the gateway session and the
// generation worker; Stop tears both down.
type Bot interface {
	Start() error
	Stop() error
}
