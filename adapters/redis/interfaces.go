package redis

import (
	"context"
)

// IProducer is the stream producer contract.
type IProducer[T any] interface {
	Start()
	Publish(data T) error
	Close()
}

// IAutoRenewMutex is the distributed lock contract.
type IAutoRenewMutex interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}
