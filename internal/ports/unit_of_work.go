package ports

import "context"

// Tx is the transaction handle a UnitOfWork threads through ctx.
// Only the persistence adapter knows its concrete type.
type Tx any

// UnitOfWork runs claim mutations atomically: fn's error rolls back,
// a nil return commits. Nested calls join the outer transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	if ctx == nil {
		return nil
	}
	return ctx.Value(txKey{})
}

// InTx reports whether ctx already carries a transaction.
func InTx(ctx context.Context) bool {
	return TxFromContext(ctx) != nil
}
