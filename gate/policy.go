package gate

import "context"

// Policy holds the resource-level rules for one resource type, usually
// ownership checks that need the concrete resource at hand.
type Policy[U any] interface {
	// Can returns true if user may perform action on resource.
	// For list/create checks resource may be nil.
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}
