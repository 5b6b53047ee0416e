package main

import (
	"context"
	"os"

	"github.com/go-ap/errors"
	"github.com/urfave/cli"

	"github.com/beekhof/discord-event-sync/internal/auth"
)

var AuthorizeCmd = cli.Command{
	Name:  "authorize",
	Usage: "Authorizes access to a private Google Calendar and stores the OAuth token",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-browser",
			Usage: "Paste the authorization code instead of using a local callback server",
		},
	},
	Action: runAuthorize,
}

func runAuthorize(c *cli.Context) error {
	cfg, err := loadPartialConfig(c)
	if err != nil {
		return err
	}
	if cfg.GoogleCredentialsPath == "" {
		return errors.Newf("--google-credentials-path is required to authorize")
	}
	if cfg.GoogleTokenPath == "" {
		return errors.Newf("--google-token-path is required to authorize")
	}

	oauthConfig, err := auth.OAuthConfig(cfg.GoogleCredentialsPath)
	if err != nil {
		return errors.Annotatef(err, "failed to load Google credentials")
	}
	store := auth.NewFileTokenStore(cfg.GoogleTokenPath)

	ctx := context.Background()
	if c.Bool("no-browser") {
		err = auth.AuthorizeWithReader(ctx, oauthConfig, store, os.Stdin, os.Stderr)
	} else {
		err = auth.Authorize(ctx, oauthConfig, store, os.Stderr)
	}
	if err != nil {
		return errors.Annotatef(err, "authorization failed")
	}
	return nil
}
