package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("repodesk"),
		kong.Description("Manage GitHub repositories and keep local folders in sync with them."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Bind(&cli),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
