package ml

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceFormatter renders a result as a locale-grouped currency range.
type PriceFormatter struct {
	symbol  string
	printer *message.Printer
}

func NewPriceFormatter(symbol, locale string) (*PriceFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, err
	}
	return &PriceFormatter{symbol: symbol, printer: message.NewPrinter(tag)}, nil
}

func (f *PriceFormatter) Amount(v int) string {
	return f.printer.Sprintf("%s%d", f.symbol, v)
}

func (f *PriceFormatter) Format(r PredictionResult) string {
	return f.Amount(r.Low) + " – " + f.Amount(r.High)
}
