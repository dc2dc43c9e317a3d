package billing

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
	"github.com/clinica/clinica/internal/platform/db"
	"github.com/clinica/clinica/pkg/wallclock"
)

const DefaultCashLimit = 100

// ClinicHeader is what a receipt prints above the charge.
type ClinicHeader struct {
	Name    string
	Address string
	Phone   string
	CNPJ    string
}

// HeaderSource loads the clinic header for receipts.
type HeaderSource func(ctx context.Context) (ClinicHeader, error)

// UploadLookup returns apperr.ErrNotFound when no upload has id.
type UploadLookup func(ctx context.Context, id string) error

type Service struct {
	charges ChargeRepository
	ledger  CashLedger
	tx      db.Transactor
	header  HeaderSource
	uploads UploadLookup
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(charges ChargeRepository, ledger CashLedger, tx db.Transactor, header HeaderSource, uploads UploadLookup, logger zerolog.Logger) *Service {
	return &Service{
		charges: charges,
		ledger:  ledger,
		tx:      tx,
		header:  header,
		uploads: uploads,
		logger:  logger,
		now:     wallclock.Now,
	}
}

func direction(s string) (Direction, error) {
	d, ok := ParseDirection(s)
	if !ok {
		return "", apperr.Validation("tipo de lançamento inválido: %q (use receber ou pagar)", s)
	}
	return d, nil
}

// CreateCharge books in.InstallmentCount installments of in.Total in one
// transaction and returns their ids in installment order.
func (s *Service) CreateCharge(ctx context.Context, dir string, in ChargeInput) ([]int64, error) {
	d, err := direction(dir)
	if err != nil {
		return nil, err
	}
	if !in.Total.IsPositive() {
		return nil, apperr.Validation("valor total deve ser maior que zero")
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, apperr.Validation("categoria é obrigatória")
	}
	due, err := wallclock.ParseDate(in.DueDate)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if in.InstallmentCount <= 0 {
		in.InstallmentCount = 1
	}
	if in.InstallmentCount > MaxInstallments {
		return nil, apperr.Validation("número de parcelas deve ser no máximo %d", MaxInstallments)
	}
	if in.Total.LessThan(MinTotalFor(in.InstallmentCount)) {
		return nil, apperr.Validation("valor total não cobre um centavo por parcela")
	}
	if d == Receivable && (in.PatientID == nil || *in.PatientID <= 0) {
		in.PatientID = nil
	}

	plan := PlanInstallments(in.Total.Decimal, in.InstallmentCount, due, strings.TrimSpace(in.Description))
	ids := make([]int64, 0, len(plan))
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, inst := range plan {
			c := &Charge{
				Direction:         d,
				PatientID:         in.PatientID,
				Supplier:          strings.TrimSpace(in.Supplier),
				Description:       inst.Description,
				Total:             inst.Amount,
				Paid:              decimal.Zero,
				InstallmentCount:  len(plan),
				InstallmentNumber: inst.Number,
				Status:            StatusPending,
				DueDate:           inst.DueDate,
				PaymentMethod:     in.PaymentMethod,
				Category:          in.Category,
				CostCenter:        in.CostCenter,
				Notes:             in.Notes,
			}
			if err := s.charges.Create(ctx, c); err != nil {
				return err
			}
			ids = append(ids, c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("direction", string(d)).Int("installments", len(ids)).
		Str("total", in.Total.StringFixed(2)).Msg("charge created")
	return ids, nil
}

// SettleCharge records a payment against a charge and posts it to the cash
// ledger. Both writes commit together or not at all.
func (s *Service) SettleCharge(ctx context.Context, dir string, id int64, amount decimal.Decimal) (*SettleResult, error) {
	d, err := direction(dir)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperr.Validation("valor pago deve ser maior que zero")
	}

	var res *SettleResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.charges.GetForUpdate(ctx, d, id)
		if err != nil {
			return err
		}
		if c.Status == StatusPaid {
			return apperr.Validation("cobrança já quitada")
		}
		if amount.GreaterThan(c.Balance().Add(paidTolerance)) {
			return apperr.Validation("valor pago %s excede o saldo de %s", amount.StringFixed(2), c.Balance().StringFixed(2))
		}
		paid := c.Paid.Add(amount)
		status := settledStatus(c.Total, paid)
		today := wallclock.StartOfDay(s.now())
		if err := s.charges.ApplyPayment(ctx, d, id, paid, status, today); err != nil {
			return err
		}
		entry := &CashEntry{
			Direction:       d.CashDirection(),
			Amount:          amount,
			Description:     "Baixa: " + c.Description,
			Actor:           auth.UsernameFromContext(ctx),
			ChargeID:        id,
			ChargeDirection: d,
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			return err
		}
		res = &SettleResult{Status: status, Paid: paid}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("direction", string(d)).Int64("charge_id", id).
		Str("amount", amount.StringFixed(2)).Str("status", string(res.Status)).Msg("charge settled")
	return res, nil
}

func (s *Service) GetCharge(ctx context.Context, dir string, id int64) (*Charge, error) {
	d, err := direction(dir)
	if err != nil {
		return nil, err
	}
	return s.charges.GetByID(ctx, d, id)
}

func (s *Service) ListCharges(ctx context.Context, dir string) ([]*Charge, error) {
	d, err := direction(dir)
	if err != nil {
		return nil, err
	}
	out, err := s.charges.List(ctx, d)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Charge{}
	}
	return out, nil
}

// ListCashEntries returns the newest ledger lines first.
func (s *Service) ListCashEntries(ctx context.Context, limit int) ([]*CashEntry, error) {
	if limit <= 0 {
		limit = DefaultCashLimit
	}
	out, err := s.ledger.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*CashEntry{}
	}
	return out, nil
}

// AttachReceipt links an uploaded proof of payment to the charge.
func (s *Service) AttachReceipt(ctx context.Context, dir string, id int64, uploadID string) error {
	d, err := direction(dir)
	if err != nil {
		return err
	}
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return apperr.Validation("upload_id é obrigatório")
	}
	if s.uploads != nil {
		if err := s.uploads(ctx, uploadID); err != nil {
			return err
		}
	}
	return s.charges.AttachReceipt(ctx, d, id, uploadID)
}

// Receipt renders the payment receipt of a charge that has received at least
// one payment.
func (s *Service) Receipt(ctx context.Context, dir string, id int64) ([]byte, error) {
	c, err := s.GetCharge(ctx, dir, id)
	if err != nil {
		return nil, err
	}
	if !c.Paid.IsPositive() {
		return nil, apperr.Validation("lançamento %d ainda não possui pagamento", id)
	}
	var header ClinicHeader
	if s.header != nil {
		if header, err = s.header(ctx); err != nil {
			return nil, err
		}
	}
	pdf, err := RenderReceipt(header, c, s.now())
	if err != nil {
		return nil, apperr.Storage("render receipt", err)
	}
	return pdf, nil
}
