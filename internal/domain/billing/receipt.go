package billing

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/clinica/clinica/pkg/wallclock"
)

// FormatBRL renders an amount as "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, b.String(), frac)
}

// receiptCode is the text encoded in the receipt QR; reception scans it to
// find the charge.
func receiptCode(c *Charge) string {
	return fmt.Sprintf("clinica:recibo:%s:%d:%s", c.Direction, c.ID, c.Paid.StringFixed(2))
}

// RenderReceipt builds the A4 payment receipt PDF for c.
func RenderReceipt(h ClinicHeader, c *Charge, issuedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	name := h.Name
	if name == "" {
		name = "Clínica"
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{h.Address, h.Phone, cnpjLine(h.CNPJ)} {
		if line != "" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	title := "RECIBO DE PAGAMENTO"
	if c.Direction == Payable {
		title = "COMPROVANTE DE PAGAMENTO"
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{"Lançamento", fmt.Sprintf("#%d (%d/%d)", c.ID, c.InstallmentNumber, c.InstallmentCount)},
		{"Pessoa", c.Pessoa},
		{"Descrição", c.Description},
		{"Categoria", c.Category},
		{"Vencimento", c.DueDate.Format("02/01/2006")},
		{"Valor total", FormatBRL(c.Total)},
		{"Valor pago", FormatBRL(c.Paid)},
		{"Saldo", FormatBRL(c.Balance())},
		{"Situação", string(c.Status)},
	}
	if c.PaymentDate != nil {
		rows = append(rows, [2]string{"Data do pagamento", c.PaymentDate.Format("02/01/2006")})
	}
	if c.PaymentMethod != "" {
		rows = append(rows, [2]string{"Forma de pagamento", c.PaymentMethod})
	}
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(50, 7, tr(r[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, tr(r[1]), "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	qrPNG, err := qrcode.Encode(receiptCode(c), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode receipt qr: %w", err)
	}
	if pdf.RegisterImageReader("receipt-qr", "PNG", bytes.NewReader(qrPNG)) != nil {
		pdf.Image("receipt-qr", 15, pdf.GetY(), 30, 30, false, "", 0, "")
		pdf.SetY(pdf.GetY() + 32)
	}
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, tr("Emitido em "+wallclock.Format(issuedAt)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cnpjLine(cnpj string) string {
	if cnpj == "" {
		return ""
	}
	return "CNPJ: " + cnpj
}
