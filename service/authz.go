package service

import (
	"context"
	"fmt"

	"github.com/warp/payroll-engine/core"
)

// Action is a slip operation that needs permission.
type Action string

const (
	ActionFinalize   Action = "finalize"
	ActionUnpublish  Action = "unpublish"
	ActionRegenerate Action = "regenerate" // re-derive a finalized slip
)

// Authorizer decides whether actor may perform action on the slip with the
// given key. Identity and roles live outside the engine.
type Authorizer interface {
	Authorize(ctx context.Context, actor string, action Action, slipKey string) error
}

// AllowAll permits everything.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, string, Action, string) error { return nil }

// ForbiddenError is returned by authorizers that refuse.
type ForbiddenError struct {
	Actor  string
	Action Action
	Key    string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%q may not %s %s", e.Actor, e.Action, e.Key)
}

func (e *ForbiddenError) Unwrap() error { return core.ErrForbidden }

// ActorList allows the listed actors per action and refuses everyone else.
type ActorList map[Action][]string

func (l ActorList) Authorize(_ context.Context, actor string, action Action, slipKey string) error {
	for _, allowed := range l[action] {
		if allowed == actor {
			return nil
		}
	}
	return &ForbiddenError{Actor: actor, Action: action, Key: slipKey}
}
