//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/clinica/clinica/internal/domain/identity"
	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/pkg/pagination"
)

func TestPatientLifecycle(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	svc := newIdentityService()

	p := &identity.Patient{
		Name:    "  Fernanda   Alves ",
		CPF:     "529.982.247-25",
		Phone:   "(11) 98888-7777",
		Address: identity.Address{City: "Campinas", State: "SP"},
	}
	if err := svc.SavePatient(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 || !p.Active {
		t.Fatalf("expected active patient with id, got %+v", p)
	}

	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CPF != "52998224725" || got.Address.City != "Campinas" {
		t.Errorf("unexpected stored patient: %+v", got)
	}

	createPatient(t, svc, "Fernando Costa")
	createPatient(t, svc, "Gabriel Nunes")

	list, total, err := svc.ListPatients(ctx, "fern", pagination.Params{Limit: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 || len(list) != 1 {
		t.Fatalf("expected 1 of 2 matches, got %d of %d", len(list), total)
	}

	byCPF, total, err := svc.ListPatients(ctx, "52998224725", pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("search by cpf: %v", err)
	}
	if total != 1 || byCPF[0].ID != p.ID {
		t.Errorf("expected CPF search to find %d, got %+v", p.ID, byCPF)
	}

	if err := svc.SetPatientActive(ctx, p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, _ = svc.GetPatient(ctx, p.ID)
	if got.Active {
		t.Error("expected patient to be inactive")
	}

	if _, err := svc.GetPatient(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestProfessionalDirectory(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	svc := newIdentityService()

	if _, err := svc.FirstActiveID(ctx); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found with no professionals, got %v", err)
	}

	inactive := &identity.Professional{Name: "Dr. Afastado", Active: false}
	if err := svc.SaveProfessional(ctx, inactive); err != nil {
		t.Fatalf("create: %v", err)
	}
	active := createProfessional(t, svc, "Dra. Ativa")

	id, err := svc.FirstActiveID(ctx)
	if err != nil {
		t.Fatalf("first active: %v", err)
	}
	if id != active.ID {
		t.Errorf("expected %d, got %d", active.ID, id)
	}
}
