package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/service/reddit"
	"github.com/urfave/cli/v3"
)

type Reddit struct {
	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string
}

func (x *Reddit) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "reddit-client-id",
			Usage:       "Reddit API client ID",
			Required:    true,
			Destination: &x.clientID,
			Category:    "Reddit",
			Sources:     cli.EnvVars("THREADLENS_REDDIT_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:        "reddit-client-secret",
			Usage:       "Reddit API client secret",
			Required:    true,
			Destination: &x.clientSecret,
			Category:    "Reddit",
			Sources:     cli.EnvVars("THREADLENS_REDDIT_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:        "reddit-username",
			Usage:       "Reddit account username for the password grant",
			Required:    true,
			Destination: &x.username,
			Category:    "Reddit",
			Sources:     cli.EnvVars("THREADLENS_REDDIT_USERNAME"),
		},
		&cli.StringFlag{
			Name:        "reddit-password",
			Usage:       "Reddit account password for the password grant",
			Required:    true,
			Destination: &x.password,
			Category:    "Reddit",
			Sources:     cli.EnvVars("THREADLENS_REDDIT_PASSWORD"),
		},
		&cli.StringFlag{
			Name:        "reddit-user-agent",
			Usage:       "User-Agent header for Reddit API requests",
			Value:       "threadlens/1.0",
			Destination: &x.userAgent,
			Category:    "Reddit",
			Sources:     cli.EnvVars("THREADLENS_REDDIT_USER_AGENT"),
		},
	}
}

func (x Reddit) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", x.clientID),
		slog.String("username", x.username),
		slog.String("user_agent", x.userAgent),
	)
}

func (x *Reddit) Configure() (*reddit.Client, error) {
	if x.clientID == "" || x.clientSecret == "" {
		return nil, goerr.New("reddit credentials are not configured")
	}

	return reddit.New(x.clientID, x.clientSecret, x.username, x.password, x.userAgent), nil
}
