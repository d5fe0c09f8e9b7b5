package main

import (
	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	APIKey   string `env:"OPENROUTER_API_KEY" help:"OpenRouter API key"`
	BaseURL  string `help:"Custom API base URL"`
	LogLevel string `default:"warn" help:"Log level"`
	LogFile  bool   `help:"Write JSON logs to the state directory instead of stderr"`
	DBPath   string `help:"Database path (defaults to XDG state dir)"`

	Chat     ChatCmd     `cmd:"" help:"Send a message through the assistant pipeline"`
	Sessions SessionsCmd `cmd:"" help:"Session management"`
	Cleanup  CleanupCmd  `cmd:"" help:"Sweep expired dedup records"`
	Status   StatusCmd   `cmd:"" help:"Show database and process status"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("taskpilot"),
		kong.Description("Task-management assistant conversation engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	NewErrorHandler(createLogger(&cli)).HandleError(err)
}
