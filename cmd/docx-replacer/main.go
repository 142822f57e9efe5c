package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"

	"github.com/allanpk716/docx_run_replacer/internal/cmd"
)

func main() {
	var cli cmd.CLI
	kctx := kong.Parse(&cli, cmd.Options()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	err := cli.Execute(ctx, kctx)
	kctx.FatalIfErrorf(err)
}
