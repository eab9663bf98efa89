package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

// column widths of the item table, summing to the printable width of A4 portrait
var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"No", 10, "C"},
	{"Uraian", 78, "L"},
	{"Qty", 16, "R"},
	{"Satuan", 16, "C"},
	{"Harga Satuan", 30, "R"},
	{"Jumlah", 30, "R"},
}

// FPDFRenderer draws documents with the core Helvetica font.
type FPDFRenderer struct {
	// CreatedAt pins the PDF metadata timestamps; zero means now.
	CreatedAt time.Time
}

func NewRenderer() *FPDFRenderer {
	return &FPDFRenderer{}
}

func (r *FPDFRenderer) RenderPDF(input RenderInput) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(input.Document.Title+" "+input.Document.Number, true)
	pdf.SetCreator("invoicing-system", true)
	pdf.SetCatalogSort(true)
	if !r.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.CreatedAt)
		pdf.SetModificationDate(r.CreatedAt)
	}

	d := &drawer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), currency: input.Company.Currency}
	pdf.AddPage()

	d.header(input.Company, input.Document)
	d.client(input.Client)
	d.items(input.Items)
	d.totals(input.Document)
	d.footer(input.Company, input.Document)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render %s: %w", input.Document.Number, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write %s: %w", input.Document.Number, err)
	}
	return buf.Bytes(), nil
}

type drawer struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	currency string
}

func (d *drawer) width() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - 2*pageMargin
}

func (d *drawer) text(w float64, s, align string) {
	d.pdf.CellFormat(w, lineHeight, d.tr(s), "", 0, align, false, 0, "")
}

func (d *drawer) line(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	d.pdf.MultiCell(0, lineHeight-1, d.tr(s), "", "L", false)
}

func (d *drawer) header(c CompanyView, doc DocumentView) {
	half := d.width() / 2

	d.pdf.SetFont("Helvetica", "B", 14)
	d.text(half, c.Name, "L")
	d.pdf.SetFont("Helvetica", "B", 16)
	d.text(half, doc.Title, "R")
	d.pdf.Ln(lineHeight + 1)

	d.pdf.SetFont("Helvetica", "", 9)
	top := d.pdf.GetY()
	for _, s := range []string{c.Address, c.Phone, c.Email} {
		d.line(s)
	}
	bottom := d.pdf.GetY()

	d.pdf.SetY(top)
	meta := [][2]string{
		{"Nomor", doc.Number},
		{"Tanggal", FormatDate(doc.IssuedAt)},
		{doc.DueLabel, FormatDate(doc.DueAt)},
		{"Status", strings.ToUpper(doc.Status)},
	}
	for _, m := range meta {
		d.pdf.SetX(pageMargin + half)
		d.text(half/2, m[0], "R")
		d.text(half/2, m[1], "R")
		d.pdf.Ln(lineHeight - 1)
	}
	if d.pdf.GetY() < bottom {
		d.pdf.SetY(bottom)
	}

	d.pdf.Ln(2)
	x, y := pageMargin, d.pdf.GetY()
	d.pdf.Line(x, y, x+d.width(), y)
	d.pdf.Ln(4)
}

func (d *drawer) client(c ClientView) {
	d.pdf.SetFont("Helvetica", "", 9)
	d.text(0, "Kepada Yth.", "L")
	d.pdf.Ln(lineHeight - 1)

	d.pdf.SetFont("Helvetica", "B", 10)
	name := c.Name
	if c.CompanyName != "" {
		name = c.CompanyName
	}
	d.text(0, name, "L")
	d.pdf.Ln(lineHeight - 1)

	d.pdf.SetFont("Helvetica", "", 9)
	if c.CompanyName != "" && c.Name != "" {
		d.line("u.p. " + c.Name)
	}
	d.line(c.Address)
	d.line(strings.TrimSpace(strings.Join(nonEmpty(c.Phone, c.Email), " / ")))
	d.pdf.Ln(4)
}

// items draws the table. Consecutive items sharing a group get a group heading row.
func (d *drawer) items(items []LineItemView) {
	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.SetFillColor(230, 230, 230)
	for _, col := range itemColumns {
		d.pdf.CellFormat(col.width, lineHeight+1, d.tr(col.title), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	group := ""
	for i, it := range items {
		if it.Group != "" && it.Group != group {
			d.pdf.SetFont("Helvetica", "B", 9)
			d.pdf.CellFormat(d.width(), lineHeight, d.tr(it.Group), "1", 1, "L", false, 0, "")
		}
		group = it.Group

		desc := it.Description
		if it.Model != "" {
			desc += " (" + it.Model + ")"
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			desc,
			FormatQuantity(it.Quantity),
			it.Unit,
			FormatMoney(d.currency, it.UnitPrice),
			FormatMoney(d.currency, it.Amount),
		}
		d.pdf.SetFont("Helvetica", "", 9)
		for j, col := range itemColumns {
			d.pdf.CellFormat(col.width, lineHeight, d.tr(fit(d.pdf, cells[j], col.width)), "1", 0, col.align, false, 0, "")
		}
		d.pdf.Ln(-1)
	}
	d.pdf.Ln(2)
}

func (d *drawer) totals(doc DocumentView) {
	labelWidth, valueWidth := 40.0, 35.0
	offset := pageMargin + d.width() - labelWidth - valueWidth

	rows := [][2]string{{"Subtotal", FormatMoney(d.currency, doc.Subtotal)}}
	if doc.DiscountAmount.IsPositive() {
		rows = append(rows, [2]string{"Diskon " + FormatPercent(doc.DiscountPercent), "- " + FormatMoney(d.currency, doc.DiscountAmount)})
	}
	rows = append(rows, [2]string{"PPN " + FormatPercent(doc.TaxRate), FormatMoney(d.currency, doc.TaxAmount)})
	rows = append(rows, [2]string{"Total", FormatMoney(d.currency, doc.Total)})
	if doc.AmountPaid != nil && doc.AmountPaid.IsPositive() {
		rows = append(rows,
			[2]string{"Dibayar", FormatMoney(d.currency, *doc.AmountPaid)},
			[2]string{"Sisa", FormatMoney(d.currency, doc.Total.Sub(*doc.AmountPaid))},
		)
	}

	for _, row := range rows {
		style := ""
		if row[0] == "Total" {
			style = "B"
		}
		d.pdf.SetFont("Helvetica", style, 9)
		d.pdf.SetX(offset)
		d.text(labelWidth, row[0], "L")
		d.text(valueWidth, row[1], "R")
		d.pdf.Ln(lineHeight - 1)
	}

	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "I", 9)
	d.line("Terbilang: " + AmountInWords(doc.Total))
	d.pdf.Ln(3)
}

func (d *drawer) footer(c CompanyView, doc DocumentView) {
	d.pdf.SetFont("Helvetica", "", 9)
	if doc.Notes != "" {
		d.section("Catatan", doc.Notes)
	}
	if doc.Terms != "" {
		d.section("Syarat dan Ketentuan", doc.Terms)
	}
	if doc.BankAccount != "" {
		payment := strings.Join(nonEmpty(c.BankName, doc.BankAccount, c.BankAccountName), " - ")
		d.section("Pembayaran", payment)
	}

	d.pdf.Ln(6)
	third := d.width() / 3
	d.pdf.SetX(pageMargin + 2*third)
	d.text(third, "Hormat kami,", "C")
	d.pdf.Ln(24)
	d.pdf.SetX(pageMargin + 2*third)
	d.pdf.SetFont("Helvetica", "BU", 9)
	d.text(third, doc.SignatureName, "C")
	d.pdf.Ln(lineHeight - 1)
	d.pdf.SetX(pageMargin + 2*third)
	d.pdf.SetFont("Helvetica", "", 9)
	d.text(third, c.Name, "C")
}

func (d *drawer) section(title, body string) {
	d.pdf.SetFont("Helvetica", "B", 9)
	d.text(0, title, "L")
	d.pdf.Ln(lineHeight - 1)
	d.pdf.SetFont("Helvetica", "", 9)
	d.line(body)
	d.pdf.Ln(2)
}

// fit shortens s with an ellipsis until it fits in width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	const padding = 2
	if pdf.GetStringWidth(s) <= width-padding {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width-padding {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
