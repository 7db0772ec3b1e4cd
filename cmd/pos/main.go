package main

import (
	"context"
	"log"

	"github.com/stapos/stapos/internal/cli"
	"github.com/stapos/stapos/internal/pos/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
