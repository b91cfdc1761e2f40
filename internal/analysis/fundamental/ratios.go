// Package fundamental computes valuation, profitability and liquidity ratios
// from raw financial fields and scores them.
package fundamental

import "math"

// inf is the sentinel for a ratio whose denominator is zero.
var inf = math.Inf(1)

// PERatio returns price / eps.
func PERatio(price, eps float64) float64 {
	if eps == 0 {
		return inf
	}
	return price / eps
}

// PBRatio returns price / book value per share.
func PBRatio(price, bookValue float64) float64 {
	if bookValue == 0 {
		return inf
	}
	return price / bookValue
}

// PSRatio returns price / sales per share.
func PSRatio(price, salesPerShare float64) float64 {
	if salesPerShare == 0 {
		return inf
	}
	return price / salesPerShare
}

// PEGRatio returns pe / growth rate.
func PEGRatio(pe, growthRate float64) float64 {
	if growthRate == 0 {
		return inf
	}
	return pe / growthRate
}

// DividendYield returns dividend per share as a percentage of price, 0 when price is 0.
func DividendYield(dividendPerShare, price float64) float64 {
	if price == 0 {
		return 0
	}
	return dividendPerShare / price * 100
}

// ReturnOnEquity returns net income as a percentage of equity, 0 when equity is 0.
func ReturnOnEquity(netIncome, equity float64) float64 {
	if equity == 0 {
		return 0
	}
	return netIncome / equity * 100
}

// DebtToEquity returns total debt / shareholder equity.
func DebtToEquity(debt, equity float64) float64 {
	if equity == 0 {
		return inf
	}
	return debt / equity
}

// CurrentRatio returns current assets / current liabilities.
func CurrentRatio(assets, liabilities float64) float64 {
	if liabilities == 0 {
		return inf
	}
	return assets / liabilities
}

// QuickRatio returns (current assets - inventory) / current liabilities.
func QuickRatio(assets, inventory, liabilities float64) float64 {
	if liabilities == 0 {
		return inf
	}
	return (assets - inventory) / liabilities
}

// ProfitMargin returns net income as a percentage of revenue, 0 when revenue is 0.
func ProfitMargin(netIncome, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return netIncome / revenue * 100
}

// GrowthRate returns the percentage change from previous to current.
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		return inf
	}
	return (current/previous - 1) * 100
}
