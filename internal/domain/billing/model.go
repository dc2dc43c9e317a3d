package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction selects the receivables or payables book. Each direction maps to
// its own statically written SQL.
type Direction string

const (
	Receivable Direction = "receber"
	Payable    Direction = "pagar"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Receivable:
		return Receivable, true
	case Payable:
		return Payable, true
	}
	return "", false
}

// CashDirection is the ledger side a settlement posts to.
func (d Direction) CashDirection() CashDirection {
	if d == Payable {
		return CashOut
	}
	return CashIn
}

type ChargeStatus string

const (
	StatusPending ChargeStatus = "Pendente"
	StatusPartial ChargeStatus = "Parcial"
	StatusPaid    ChargeStatus = "Pago"
)

type CashDirection string

const (
	CashIn  CashDirection = "Entrada"
	CashOut CashDirection = "Saída"
)

// paidTolerance absorbs centavo rounding when deciding a charge is settled.
var paidTolerance = decimal.RequireFromString("0.10")

// Charge is one installment of a receivable (owed by a patient) or a payable
// (owed to a supplier).
type Charge struct {
	ID                int64           `json:"id"`
	Direction         Direction       `json:"direction"`
	PatientID         *int64          `json:"patient_id,omitempty"`
	Supplier          string          `json:"supplier,omitempty"`
	Pessoa            string          `json:"pessoa"`
	Description       string          `json:"description"`
	Total             decimal.Decimal `json:"total"`
	Paid              decimal.Decimal `json:"paid"`
	InstallmentCount  int             `json:"installment_count"`
	InstallmentNumber int             `json:"installment_number"`
	Status            ChargeStatus    `json:"status"`
	DueDate           time.Time       `json:"due_date"`
	PaymentDate       *time.Time      `json:"payment_date,omitempty"`
	PaymentMethod     string          `json:"payment_method"`
	Category          string          `json:"category"`
	CostCenter        string          `json:"cost_center"`
	Notes             string          `json:"notes"`
	ReceiptID         string          `json:"receipt_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Balance is what is still owed on the charge.
func (c *Charge) Balance() decimal.Decimal {
	return c.Total.Sub(c.Paid)
}

// Amount is a money value that decodes from a JSON number or from a string
// with either decimal separator ("150.50" or "150,50").
type Amount struct {
	decimal.Decimal
}

func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("valor inválido: %q", s)
	}
	return d, nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}
	d, err := ParseAmount(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

type ChargeInput struct {
	PatientID        *int64 `json:"patient_id"`
	Supplier         string `json:"supplier"`
	Description      string `json:"description"`
	Total            Amount `json:"total"`
	DueDate          string `json:"due_date"`
	InstallmentCount int    `json:"installment_count"`
	Category         string `json:"category"`
	CostCenter       string `json:"cost_center"`
	PaymentMethod    string `json:"payment_method"`
	Notes            string `json:"notes"`
}

type SettleResult struct {
	Status ChargeStatus    `json:"status"`
	Paid   decimal.Decimal `json:"paid"`
}

// CashEntry is an append-only ledger line posted by a settlement.
type CashEntry struct {
	ID              int64           `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Direction       CashDirection   `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Actor           string          `json:"actor"`
	ChargeID        int64           `json:"charge_id"`
	ChargeDirection Direction       `json:"charge_direction"`
}

// Installment is one planned row of a new charge.
type Installment struct {
	Number      int
	Amount      decimal.Decimal
	DueDate     time.Time
	Description string
}

// MaxInstallments bounds how many rows one charge may book.
const MaxInstallments = 120

var cent = decimal.New(1, -2)

// MinTotalFor is the smallest total that still gives every one of count
// installments at least one cent.
func MinTotalFor(count int) decimal.Decimal {
	return cent.Mul(decimal.NewFromInt(int64(count)))
}

// PlanInstallments splits total into count installments of whole cents, due
// every 30 days from due. Each gets total/count truncated to cents; the
// leftover cents go one at a time to the trailing installments, so amounts
// never differ by more than a cent and always add up to total.
func PlanInstallments(total decimal.Decimal, count int, due time.Time, description string) []Installment {
	if count <= 0 {
		count = 1
	}
	n := decimal.NewFromInt(int64(count))
	each := total.Div(n).RoundDown(2)

	amounts := make([]decimal.Decimal, count)
	for i := range amounts {
		amounts[i] = each
	}
	rest := total.Sub(each.Mul(n))
	for i := count - 1; i >= 0 && rest.GreaterThanOrEqual(cent); i-- {
		amounts[i] = amounts[i].Add(cent)
		rest = rest.Sub(cent)
	}
	// Sub-cent input precision stays on the last row.
	amounts[count-1] = amounts[count-1].Add(rest)

	out := make([]Installment, count)
	for i := range out {
		desc := description
		if count > 1 {
			desc = fmt.Sprintf("%s (%d/%d)", description, i+1, count)
		}
		out[i] = Installment{
			Number:      i + 1,
			Amount:      amounts[i],
			DueDate:     due.AddDate(0, 0, 30*i),
			Description: desc,
		}
	}
	return out
}

// settledStatus is the status of a charge of total once paid has been
// received.
func settledStatus(total, paid decimal.Decimal) ChargeStatus {
	if paid.GreaterThanOrEqual(total.Sub(paidTolerance)) {
		return StatusPaid
	}
	return StatusPartial
}
