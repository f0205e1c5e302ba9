package domain

import "context"

// DeliverFunc routes a dispatcher reply back to the originating
// conversation. It may be invoked zero or more times, asynchronously,
// for a single dispatched message.
type DeliverFunc func(Reply)

// Dispatcher is the host message-dispatch pipeline. The channel treats
// it as an opaque collaborator: it is injected at construction time and
// owns its own configuration.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg MessageContext, deliver DeliverFunc) error
}

// DispatcherFunc adapts a plain function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, msg MessageContext, deliver DeliverFunc) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg MessageContext, deliver DeliverFunc) error {
	return f(ctx, msg, deliver)
}
