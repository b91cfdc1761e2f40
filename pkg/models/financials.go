package models

// RawFundamentals is a flat mapping of raw financial fields as supplied by
// an acquisition layer. Missing keys mean "not available".
type RawFundamentals map[string]float64

// Get returns the field as a Value, undefined when absent or NaN.
func (r RawFundamentals) Get(key string) Value {
	v, ok := r[key]
	if !ok {
		return Undefined()
	}
	return Of(v)
}

// Has reports whether every key is present.
func (r RawFundamentals) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r[k]; !ok {
			return false
		}
	}
	return true
}

// Provider-reported fields (Yahoo Finance quoteSummary naming).
const (
	FieldTrailingPE      = "trailingPE"
	FieldPriceToBook     = "priceToBook"
	FieldPriceToSales    = "priceToSalesTrailing12Months"
	FieldRevenueGrowth   = "revenueGrowth"
	FieldEarningsGrowth  = "earningsGrowth"
	FieldProfitMargins   = "profitMargins"
	FieldOperatingMargin = "operatingMargins"
	FieldDebtToEquity    = "debtToEquity"
	FieldCurrentRatio    = "currentRatio"
)

// Raw statement fields consumed by the ratio calculator.
const (
	FieldPrice              = "price"
	FieldEPS                = "eps"
	FieldBookValue          = "book_value"
	FieldSalesPerShare      = "sales_per_share"
	FieldGrowthRate         = "growth_rate"
	FieldDividendPerShare   = "dividend_per_share"
	FieldNetIncome          = "net_income"
	FieldShareholderEquity  = "shareholder_equity"
	FieldTotalDebt          = "total_debt"
	FieldCurrentAssets      = "current_assets"
	FieldCurrentLiabilities = "current_liabilities"
	FieldInventory          = "inventory"
	FieldRevenue            = "revenue"
	FieldCurrentRevenue     = "current_revenue"
	FieldPreviousRevenue    = "previous_revenue"
)
