package config

import (
	"context"
	"log/slog"

	"github.com/threadlens-lab/threadlens/pkg/repository/firestore"
	"github.com/urfave/cli/v3"
)

type Firestore struct {
	projectID  string
	databaseID string
}

func (x *Firestore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore project ID (uses in-memory storage when empty)",
			Destination: &x.projectID,
			Category:    "Firestore",
			Sources:     cli.EnvVars("THREADLENS_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Destination: &x.databaseID,
			Category:    "Firestore",
			Sources:     cli.EnvVars("THREADLENS_FIRESTORE_DATABASE_ID"),
			Value:       "(default)",
		},
	}
}

func (x Firestore) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project_id", x.projectID),
		slog.String("database_id", x.databaseID),
	)
}

// IsConfigured reports whether a Firestore project is set
func (x *Firestore) IsConfigured() bool {
	return x.projectID != ""
}

func (x *Firestore) Configure(ctx context.Context) (*firestore.Firestore, error) {
	return firestore.New(ctx, x.projectID, x.databaseID)
}
