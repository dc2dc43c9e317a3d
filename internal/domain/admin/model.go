package admin

import "fmt"

const (
	defaultClinicName  = "Minha Clínica"
	defaultPaymentTerm = 30
)

// InsurancePlan is a health-insurance agreement (convênio) patients may be
// attached to.
type InsurancePlan struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ANSRegistration string `json:"ans_registration"`
	CNPJ            string `json:"cnpj"`
	PaymentTermDays int    `json:"payment_term_days"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Site            string `json:"site"`
	PriceTable      string `json:"price_table"`
}

// LookupKind enumerates the auxiliary lists the UI edits.
type LookupKind string

const (
	KindSpecialty LookupKind = "especialidades"
	KindRoom      LookupKind = "salas"
	KindProcedure LookupKind = "procedimentos"
)

var validLookupKinds = map[LookupKind]bool{
	KindSpecialty: true,
	KindRoom:      true,
	KindProcedure: true,
}

func ParseLookupKind(s string) (LookupKind, error) {
	k := LookupKind(s)
	if !validLookupKinds[k] {
		return "", fmt.Errorf("unknown lookup list %q", s)
	}
	return k, nil
}

type LookupItem struct {
	ID   int64      `json:"id"`
	Kind LookupKind `json:"kind"`
	Name string     `json:"name"`
}

// ClinicSettings is the single settings row. LANURL is computed at read time.
type ClinicSettings struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	CNPJ    string `json:"cnpj"`
	LANURL  string `json:"lan_url,omitempty"`
}

func defaultSettings() *ClinicSettings {
	return &ClinicSettings{Name: defaultClinicName}
}
