package identity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinica/clinica/internal/domain/scheduling"
	"github.com/clinica/clinica/pkg/wallclock"
)

type Address struct {
	Street       string `json:"logradouro"`
	Number       string `json:"numero"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"cidade"`
	State        string `json:"uf"`
	PostalCode   string `json:"cep"`
}

// Guardian is the legal guardian of an underage patient.
type Guardian struct {
	Name         string `json:"nome"`
	CPF          string `json:"cpf"`
	Phone        string `json:"telefone"`
	Relationship string `json:"parentesco"`
}

type Patient struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	CPF             string          `json:"cpf"`
	RG              string          `json:"rg"`
	BirthDate       *wallclock.Date `json:"birth_date,omitempty"`
	Sex             string          `json:"sex"`
	Phone           string          `json:"phone"`
	PhoneSecondary  string          `json:"phone_secondary"`
	Email           string          `json:"email"`
	Address         Address         `json:"address"`
	InsurancePlanID *int64          `json:"insurance_plan_id,omitempty"`
	Guardian        Guardian        `json:"guardian"`
	MedicalNotes    string          `json:"medical_notes"`
	Medications     string          `json:"medications"`
	PhotoID         string          `json:"photo_id"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
}

type BankDetails struct {
	Bank    string `json:"banco"`
	Branch  string `json:"agencia"`
	Account string `json:"conta"`
	PixKey  string `json:"pix"`
}

type Professional struct {
	ID             int64                           `json:"id"`
	Name           string                          `json:"name"`
	CRM            string                          `json:"crm"`
	CPF            string                          `json:"cpf"`
	BirthDate      *wallclock.Date                 `json:"birth_date,omitempty"`
	SpecialtyID    *int64                          `json:"specialty_id,omitempty"`
	SpecialtyName  string                          `json:"specialty_name"`
	Email          string                          `json:"email"`
	Phone          string                          `json:"phone"`
	Address        Address                         `json:"address"`
	BankDetails    BankDetails                     `json:"bank_details"`
	Color          string                          `json:"color"`
	CommissionRate decimal.Decimal                 `json:"commission_rate"`
	Bio            string                          `json:"bio"`
	Availability   []scheduling.AvailabilityWindow `json:"availability"`
	Active         bool                            `json:"active"`
}

const defaultProfessionalColor = "#10B981"
