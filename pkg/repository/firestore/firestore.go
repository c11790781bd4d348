package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/interfaces"
)

const (
	collectionChats     = "chats"
	collectionExchanges = "exchanges"
)

// Firestore is the durable Repository backed by Cloud Firestore
type Firestore struct {
	db *firestore.Client
}

var _ interfaces.Repository = &Firestore{}

func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	db, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{db: db}, nil
}

func (r *Firestore) Close() error {
	return r.db.Close()
}
