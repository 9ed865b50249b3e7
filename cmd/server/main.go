package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/garagebook/internal/server"
	"github.com/dmitrijs2005/garagebook/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}

}

// run builds the app and serves until shutdown. Startup failures are
// returned so main can exit non-zero.
func run(ctx context.Context, cfg *config.Config) error {
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		return err
	}

	app.Run(ctx)
	return nil
}
