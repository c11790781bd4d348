package websocket_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	ws "github.com/threadlens-lab/threadlens/pkg/controller/websocket"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/auth"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
)

func TestRegistry(t *testing.T) {
	registry := ws.NewRegistry(context.Background())

	c1 := registry.NewConn(nil, &auth.Principal{Sub: "user-1"})
	c2 := registry.NewConn(nil, &auth.Principal{Sub: "user-1"})
	c3 := registry.NewConn(nil, &auth.Principal{Sub: "user-2"})

	gt.V(t, c1.ID()).NotEqual(c2.ID())

	registry.Register(c1)
	registry.Register(c2)
	registry.Register(c3)
	gt.V(t, registry.Count()).Equal(3)

	// Two connections for user-1 count as one active user
	gt.A(t, registry.ActiveUsers()).Length(2)

	registry.Unregister(c1)
	gt.V(t, registry.Count()).Equal(2)

	// Unregister is idempotent
	registry.Unregister(c1)
	gt.V(t, registry.Count()).Equal(2)

	// The connection context is cancelled on unregister
	select {
	case <-c1.Context().Done():
	default:
		t.Fatal("context should be cancelled after unregister")
	}

	registry.Close()
	gt.V(t, registry.Count()).Equal(0)
}

func TestEmitDuringClose(t *testing.T) {
	registry := ws.NewRegistry(context.Background())

	c := registry.NewConn(nil, &auth.Principal{Sub: "user-1"})
	registry.Register(c)

	// An in-flight job keeps emitting while the registry tears the
	// connection down. Emit must never panic, it unblocks via the
	// cancelled context instead.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			c.Emit(chat.NewStatusEvent("event %d", i))
		}
	}()

	registry.Close()
	<-done

	gt.V(t, registry.Count()).Equal(0)

	// Emit after teardown is a no-op, not a crash
	c.Emit(chat.NewStatusEvent("late event"))
}
