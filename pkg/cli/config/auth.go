package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/usecase"
	"github.com/urfave/cli/v3"
)

type Auth struct {
	jwtSecret string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HMAC secret for verifying bearer tokens",
			Required:    true,
			Destination: &x.jwtSecret,
			Category:    "Auth",
			Sources:     cli.EnvVars("THREADLENS_JWT_SECRET"),
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("jwt_secret_set", x.jwtSecret != ""),
	)
}

func (x *Auth) Configure() (*usecase.AuthUseCase, error) {
	if x.jwtSecret == "" {
		return nil, goerr.New("jwt secret is not configured")
	}

	return usecase.NewAuthUseCase([]byte(x.jwtSecret)), nil
}
