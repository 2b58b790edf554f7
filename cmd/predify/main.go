package main

import (
	"context"

	"github.com/alecthomas/kong"
)

type cli struct {
	Config  string   `short:"c" type:"path" env:"PREDIFY_CONFIG" help:"Path to the YAML configuration file."`
	EnvFile []string `name:"env-file" type:"path" help:"Extra .env files to load (defaults to ./.env when present)."`

	Serve    serveCmd    `cmd:"" default:"1" help:"Run the seller insights web server."`
	Login    loginCmd    `cmd:"" help:"Exchange a seller token for an access/refresh pair."`
	Insights insightsCmd `cmd:"" help:"Print the nine insights for a product."`
	Settings settingsCmd `cmd:"" help:"Show or update the analysis settings."`
}

func main() {
	var root cli
	ctx := kong.Parse(&root,
		kong.Name("predify"),
		kong.Description("Seller insights dashboard for the EDA analytics backend."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background(), &root)
	ctx.FatalIfErrorf(err)
}
