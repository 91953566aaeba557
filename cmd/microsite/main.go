// Command microsite is the terminal client of a microsites server.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/debemdeboas/microsites/internal/config"
)

func main() {
	_ = godotenv.Load(config.DefaultEnvFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
