package firestore

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (r *Firestore) PutChat(ctx context.Context, c *chat.Chat) error {
	_, err := r.db.Collection(collectionChats).Doc(c.ID.String()).Set(ctx, c)
	if err != nil {
		return goerr.Wrap(err, "failed to put chat",
			goerr.V("chat_id", c.ID),
			goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetChat(ctx context.Context, chatID types.ChatID) (*chat.Chat, error) {
	doc, err := r.db.Collection(collectionChats).Doc(chatID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get chat",
			goerr.V("chat_id", chatID),
			goerr.T(errs.TagDatabase))
	}

	var c chat.Chat
	if err := doc.DataTo(&c); err != nil {
		return nil, goerr.Wrap(err, "failed to convert data to chat",
			goerr.V("chat_id", chatID),
			goerr.T(errs.TagInternal))
	}
	return &c, nil
}

func (r *Firestore) ListChatsByUser(ctx context.Context, userID types.UserID) ([]*chat.Chat, error) {
	// Sorted in memory to avoid requiring a composite index
	query := r.db.Collection(collectionChats).
		Where("user_id", "==", userID.String())

	iter := query.Documents(ctx)
	defer iter.Stop()

	var chats []*chat.Chat
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query chats by user",
				goerr.V("user_id", userID),
				goerr.T(errs.TagDatabase))
		}

		var c chat.Chat
		if err := doc.DataTo(&c); err != nil {
			return nil, goerr.Wrap(err, "failed to convert data to chat",
				goerr.V("user_id", userID),
				goerr.T(errs.TagInternal))
		}
		chats = append(chats, &c)
	}

	sortChatsNewestFirst(chats)

	return chats, nil
}

func (r *Firestore) PutExchange(ctx context.Context, ex *chat.Exchange) error {
	_, err := r.db.Collection(collectionExchanges).Doc(ex.ID.String()).Set(ctx, ex)
	if err != nil {
		return goerr.Wrap(err, "failed to put exchange",
			goerr.V("exchange_id", ex.ID),
			goerr.V("chat_id", ex.ChatID),
			goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetExchanges(ctx context.Context, chatID types.ChatID) ([]*chat.Exchange, error) {
	query := r.db.Collection(collectionExchanges).
		Where("chat_id", "==", chatID.String())

	iter := query.Documents(ctx)
	defer iter.Stop()

	var exchanges []*chat.Exchange
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query exchanges",
				goerr.V("chat_id", chatID),
				goerr.T(errs.TagDatabase))
		}

		var ex chat.Exchange
		if err := doc.DataTo(&ex); err != nil {
			return nil, goerr.Wrap(err, "failed to convert data to exchange",
				goerr.V("chat_id", chatID),
				goerr.T(errs.TagInternal))
		}
		exchanges = append(exchanges, &ex)
	}

	sortExchangesOldestFirst(exchanges)

	return exchanges, nil
}

// Firestore timestamps have bounded granularity, so CreatedAt alone cannot
// break ties between writes in the same granule. The ID tie-break keeps the
// order deterministic across reads.
func sortChatsNewestFirst(chats []*chat.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		if !chats[i].CreatedAt.Equal(chats[j].CreatedAt) {
			return chats[i].CreatedAt.After(chats[j].CreatedAt)
		}
		return chats[i].ID < chats[j].ID
	})
}

func sortExchangesOldestFirst(exchanges []*chat.Exchange) {
	sort.SliceStable(exchanges, func(i, j int) bool {
		if !exchanges[i].CreatedAt.Equal(exchanges[j].CreatedAt) {
			return exchanges[i].CreatedAt.Before(exchanges[j].CreatedAt)
		}
		return exchanges[i].ID < exchanges[j].ID
	})
}
