//go:build integration

package integration

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/clinica/clinica/internal/domain/billing"
	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBilling_InstallmentsAndSettlement(t *testing.T) {
	resetDB(t)
	ctx := auth.WithActor(context.Background(), auth.Actor{UserID: 1, Username: "recepcao", Role: auth.RoleReception})
	ids := newIdentityService()
	svc := newBillingService()
	patient := createPatient(t, ids, "Eduarda Prado")

	created, err := svc.CreateCharge(ctx, "receber", billing.ChargeInput{
		PatientID:        &patient.ID,
		Description:      "Tratamento",
		Total:            billing.Amount{Decimal: dec("100.00")},
		DueDate:          "2030-01-10",
		InstallmentCount: 3,
		Category:         "Consulta",
	})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(created))
	}

	var sum decimal.Decimal
	for i, id := range created {
		c, err := svc.GetCharge(ctx, "receber", id)
		if err != nil {
			t.Fatalf("get installment %d: %v", i+1, err)
		}
		sum = sum.Add(c.Total)
		if c.InstallmentNumber != i+1 || c.Status != billing.StatusPending {
			t.Errorf("unexpected installment: %+v", c)
		}
	}
	if !sum.Equal(dec("100.00")) {
		t.Errorf("installments sum to %s, want 100.00", sum)
	}
	last, _ := svc.GetCharge(ctx, "receber", created[2])
	if !last.Total.Equal(dec("33.34")) {
		t.Errorf("expected remainder on the last installment, got %s", last.Total)
	}

	res, err := svc.SettleCharge(ctx, "receber", created[0], dec("20"))
	if err != nil {
		t.Fatalf("partial settle: %v", err)
	}
	if res.Status != billing.StatusPartial {
		t.Errorf("expected Parcial, got %s", res.Status)
	}
	res, err = svc.SettleCharge(ctx, "receber", created[0], dec("13.28"))
	if err != nil {
		t.Fatalf("final settle: %v", err)
	}
	if res.Status != billing.StatusPaid {
		t.Errorf("expected Pago within tolerance, got %s (paid %s)", res.Status, res.Paid)
	}

	entries, err := svc.ListCashEntries(ctx, 10)
	if err != nil {
		t.Fatalf("list cash: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 cash entries, got %d", len(entries))
	}
	if entries[0].Direction != billing.CashIn || entries[0].Actor != "recepcao" || entries[0].ChargeID != created[0] {
		t.Errorf("unexpected newest entry: %+v", entries[0])
	}

	pdf, err := svc.Receipt(ctx, "receber", created[0])
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("expected a PDF document")
	}
	if _, err := svc.Receipt(ctx, "receber", created[1]); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for unpaid receipt, got %v", err)
	}
}

func TestBilling_ConcurrentSettlementsAllPosted(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	svc := newBillingService()

	created, err := svc.CreateCharge(ctx, "pagar", billing.ChargeInput{
		Supplier:    "Distribuidora Médica",
		Description: "Materiais",
		Total:       billing.Amount{Decimal: dec("100.00")},
		DueDate:     "2030-02-01",
		Category:    "Insumos",
	})
	if err != nil {
		t.Fatalf("create payable: %v", err)
	}
	id := created[0]

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SettleCharge(ctx, "pagar", id, dec("10")); err != nil {
				t.Errorf("settle: %v", err)
			}
		}()
	}
	wg.Wait()

	c, err := svc.GetCharge(ctx, "pagar", id)
	if err != nil {
		t.Fatalf("get payable: %v", err)
	}
	if !c.Paid.Equal(dec("100")) || c.Status != billing.StatusPaid {
		t.Errorf("expected 100 paid and Pago, got %s %s", c.Paid, c.Status)
	}

	entries, err := svc.ListCashEntries(ctx, 50)
	if err != nil {
		t.Fatalf("list cash: %v", err)
	}
	if len(entries) != n {
		t.Fatalf("expected %d ledger lines, got %d", n, len(entries))
	}
	for _, e := range entries {
		if e.Direction != billing.CashOut {
			t.Errorf("expected Saída, got %s", e.Direction)
		}
	}
}

func TestBilling_DirectionsAreSeparate(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	svc := newBillingService()

	created, err := svc.CreateCharge(ctx, "pagar", billing.ChargeInput{
		Supplier: "Aluguel", Total: billing.Amount{Decimal: dec("1500")}, DueDate: "2030-03-05", Category: "Fixas",
	})
	if err != nil {
		t.Fatalf("create payable: %v", err)
	}
	if _, err := svc.GetCharge(ctx, "receber", created[0]); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found across directions, got %v", err)
	}
	if _, err := svc.SettleCharge(ctx, "receber", created[0], dec("10")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found settling across directions, got %v", err)
	}

	receivables, err := svc.ListCharges(ctx, "receber")
	if err != nil {
		t.Fatalf("list receivables: %v", err)
	}
	if len(receivables) != 0 {
		t.Errorf("expected no receivables, got %d", len(receivables))
	}
}
