package service

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// currencySymbols 前置符号的币种，其余币种输出为 "金额 币种"
var currencySymbols = map[string]string{
	"USD": "$",
	"AUD": "$",
	"CAD": "$",
	"HKD": "$",
	"MXN": "$",
	"NZD": "$",
	"SGD": "$",
	"BRL": "R$",
	"GBP": "£",
	"EUR": "€",
	"JPY": "¥",
	"CNY": "¥",
	"AOA": "Kz",
}

// CurrencyFormatter 金额格式化（千分位 + 币种符号）
type CurrencyFormatter struct {
	printer         *message.Printer
	defaultCurrency string
}

// NewCurrencyFormatter 创建金额格式化器
func NewCurrencyFormatter(defaultCurrency string) *CurrencyFormatter {
	code := normalizeCurrencyCode(defaultCurrency)
	if code == "" {
		code = "USD"
	}
	return &CurrencyFormatter{
		printer:         message.NewPrinter(language.English),
		defaultCurrency: code,
	}
}

// DefaultCurrency 返回默认币种
func (f *CurrencyFormatter) DefaultCurrency() string {
	return f.defaultCurrency
}

// Decimals 返回币种标准小数位，未知币种按 2 位处理
func (f *CurrencyFormatter) Decimals(code string) int32 {
	unit, err := currency.ParseISO(normalizeCurrencyCode(code))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// FormatAmount 按千分位格式化金额
func (f *CurrencyFormatter) FormatAmount(amount decimal.Decimal, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	rounded := amount.Round(decimals)
	negative := rounded.IsNegative()
	if negative {
		rounded = rounded.Neg()
	}
	intPart := rounded.Truncate(0)
	formatted := f.printer.Sprintf("%d", intPart.IntPart())
	if decimals > 0 {
		fixed := rounded.StringFixed(decimals)
		if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
			formatted += fixed[idx:]
		}
	}
	if negative {
		return "-" + formatted
	}
	return formatted
}

// CurrencySymbol 返回币种符号，无符号时返回币种代码
func (f *CurrencyFormatter) CurrencySymbol(code string) string {
	normalized := normalizeCurrencyCode(code)
	if symbol, ok := currencySymbols[normalized]; ok {
		return symbol
	}
	return normalized
}

// Filter 为已格式化的金额加上币种符号
func (f *CurrencyFormatter) Filter(formatted, code string) string {
	normalized := normalizeCurrencyCode(code)
	if normalized == "" {
		normalized = f.defaultCurrency
	}
	negative := strings.HasPrefix(formatted, "-")
	body := strings.TrimPrefix(formatted, "-")
	symbol, ok := currencySymbols[normalized]
	if !ok {
		if negative {
			return "-" + body + " " + normalized
		}
		return body + " " + normalized
	}
	if negative {
		return "-" + symbol + body
	}
	return symbol + body
}

// Money 按币种格式化并加符号，币种为空时使用默认币种
func (f *CurrencyFormatter) Money(amount decimal.Decimal, code string) string {
	normalized := normalizeCurrencyCode(code)
	if normalized == "" {
		normalized = f.defaultCurrency
	}
	return f.Filter(f.FormatAmount(amount, f.Decimals(normalized)), normalized)
}

// ValidCurrency 判断是否为 ISO 4217 币种代码
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(normalizeCurrencyCode(code))
	return err == nil
}

func normalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
