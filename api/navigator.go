package api

import (
	"context"

	"github.com/alexedwards/scs/v2"
	"github.com/avelazco/cursoteca/store"
)

// Navigator records the routes the store pushes into the client session, so
// auth responses can tell the SPA where its router should go next.
func Navigator(sm *scs.SessionManager) store.Navigator {
	return sessionNavigator{sm: sm}
}

type sessionNavigator struct {
	sm *scs.SessionManager
}

func (n sessionNavigator) Push(ctx context.Context, route string) {
	n.sm.Put(ctx, "route", route)
}
