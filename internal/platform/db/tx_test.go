package db

import (
	"context"
	"errors"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey, "not a tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx for wrong type")
	}
}

func TestInTx_NoPool(t *testing.T) {
	called := false
	err := InTx(context.Background(), nil, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNoPool) {
		t.Errorf("expected ErrNoPool, got %v", err)
	}
	if called {
		t.Error("expected fn not to run without a pool")
	}
}
