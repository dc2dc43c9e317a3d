package db

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not a tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx for wrong value type")
	}
}

func TestConnFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBConnKey, 42)
	if conn := ConnFromContext(ctx); conn != nil {
		t.Error("expected nil conn for wrong value type")
	}
}

func TestWithTx_NoConnection(t *testing.T) {
	_, tx, err := WithTx(context.Background())
	if err == nil {
		t.Fatal("expected error without a pinned connection")
	}
	if tx != nil {
		t.Error("expected nil tx on error")
	}
	if !strings.Contains(err.Error(), "no database connection in context") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAdvisoryXactLock_RequiresTx(t *testing.T) {
	err := AdvisoryXactLock(context.Background(), "appointment_professional", 7)
	if !errors.Is(err, ErrNoTx) {
		t.Errorf("expected ErrNoTx, got %v", err)
	}
}
