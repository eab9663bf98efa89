package pdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

var months = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatMoney renders an amount with Indonesian digit grouping, e.g. "Rp 1.250.000".
func FormatMoney(currency string, amount decimal.Decimal) string {
	symbol := currency
	if currency == "" || currency == "IDR" {
		symbol = "Rp"
	}
	return symbol + " " + printer.Sprintf("%d", amount.Round(0).IntPart())
}

// FormatQuantity keeps fractional quantities and uses a decimal comma.
func FormatQuantity(q decimal.Decimal) string {
	if q.Equal(q.Truncate(0)) {
		return printer.Sprintf("%d", q.IntPart())
	}
	return strings.Replace(q.String(), ".", ",", 1)
}

func FormatPercent(p decimal.Decimal) string {
	return strings.Replace(p.String(), ".", ",", 1) + "%"
}

// FormatDate renders dates as "5 Maret 2024".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
}

var smallNumbers = [...]string{
	"", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan", "sepuluh", "sebelas",
}

var scales = []struct {
	value uint64
	word  string
}{
	{1_000_000_000_000, "triliun"},
	{1_000_000_000, "miliar"},
	{1_000_000, "juta"},
	{1_000, "ribu"},
}

// Terbilang spells n in Indonesian words, e.g. 1500 → "seribu lima ratus".
func Terbilang(n int64) string {
	switch {
	case n == 0:
		return "nol"
	case n < 0:
		// -(n+1) stays in range for math.MinInt64.
		return "minus " + spellAll(uint64(-(n+1))+1)
	}
	return spellAll(uint64(n))
}

func spellAll(n uint64) string {
	return strings.Join(strings.Fields(spell(n)), " ")
}

func spell(n uint64) string {
	switch {
	case n < 12:
		return smallNumbers[n]
	case n < 20:
		return spell(n-10) + " belas"
	case n < 100:
		return spell(n/10) + " puluh " + spell(n%10)
	case n < 200:
		return "seratus " + spell(n-100)
	case n < 1000:
		return spell(n/100) + " ratus " + spell(n%100)
	case n < 2000:
		return "seribu " + spell(n-1000)
	}
	for _, s := range scales {
		if n >= s.value {
			return spell(n/s.value) + " " + s.word + " " + spell(n%s.value)
		}
	}
	return ""
}

// AmountInWords renders the rounded amount as a sentence-cased phrase ending in "rupiah".
func AmountInWords(amount decimal.Decimal) string {
	words := Terbilang(amount.Round(0).IntPart()) + " rupiah"
	return strings.ToUpper(words[:1]) + words[1:]
}
