package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("carta"),
		kong.Description("Maintain the menu catalog and publish it as a static site."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cli.Config, cli.LogLevel, afero.NewOsFs(), os.Stdout)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	err = kctx.Run(rt)
	rt.Close()
	kctx.FatalIfErrorf(err)
}
