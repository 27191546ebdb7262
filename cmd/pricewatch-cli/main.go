package main

import (
	"context"

	"pricewatch-backend/cmd/pricewatch-cli/commands"
	"pricewatch-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(true)
	telemetry.SetupFromEnv(context.Background(), "pricewatch-cli")
	commands.ExecuteContext(context.Background())
}
