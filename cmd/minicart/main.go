package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/minicart/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional, defaults to ~/.config/minicart/config.toml)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	notify := flag.Bool("notify", false, "publish a cart-changed signal on the Redis channel and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, PrefsPath: *prefsPath}

	var err error
	if *notify {
		err = app.Notify(ctx, opts)
	} else {
		err = app.Run(ctx, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "minicart: %v\n", err)
		return 1
	}
	return 0
}
