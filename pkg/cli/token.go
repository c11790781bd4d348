package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/threadlens-lab/threadlens/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// cmdToken mints a signed bearer token for local development. Production
// tokens come from the external issuer sharing the same secret.
func cmdToken() *cli.Command {
	var (
		authCfg config.Auth
		sub     string
		email   string
		name    string
		ttl     time.Duration
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "sub",
				Usage:       "Subject (user ID) for the token",
				Required:    true,
				Destination: &sub,
			},
			&cli.StringFlag{
				Name:        "email",
				Usage:       "Email claim",
				Destination: &email,
			},
			&cli.StringFlag{
				Name:        "name",
				Usage:       "Display name claim",
				Destination: &name,
			},
			&cli.DurationFlag{
				Name:        "ttl",
				Usage:       "Token lifetime",
				Value:       24 * time.Hour,
				Destination: &ttl,
			},
		},
		authCfg.Flags(),
	)

	return &cli.Command{
		Name:  "token",
		Usage: "Issue a development bearer token",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			authUC, err := authCfg.Configure()
			if err != nil {
				return err
			}

			token, err := authUC.IssueToken(sub, email, name, ttl)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}
}
