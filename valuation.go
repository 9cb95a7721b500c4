package main

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// computeTotalValue sums the catalog prices of the zombie's items into a
// base-currency total and converts it into each currency of interest by
// dividing by that currency's bid rate. Every monetary output is rounded to
// 4 decimal places, half away from zero.
//
// The items are assumed to have been validated against some catalog
// snapshot, so a lookup miss here is a broken precondition, not client
// error: it surfaces as an internal error, never a 4xx.
func computeTotalValue(zombie Zombie, catalog Catalog, exchange ExchangeTable) (ZombieWithValue, error) {
	total := decimal.Zero
	for _, ref := range zombie.Items {
		price, ok := catalog.Price(ref.ID)
		if !ok {
			return ZombieWithValue{}, fmt.Errorf("item %d (%s) is missing from the catalog", ref.ID, ref.Name)
		}
		total = total.Add(decimal.NewFromFloat(price))
	}

	eur, err := convertTotal(total, exchange, "EUR")
	if err != nil {
		return ZombieWithValue{}, err
	}
	usd, err := convertTotal(total, exchange, "USD")
	if err != nil {
		return ZombieWithValue{}, err
	}

	return ZombieWithValue{
		Zombie: zombie,
		TotalValue: TotalValue{
			Total: round4(total),
			EUR:   eur,
			USD:   usd,
		},
	}, nil
}

// convertTotal divides the base-currency total by the bid rate of the given
// currency code.
func convertTotal(total decimal.Decimal, exchange ExchangeTable, code string) (float64, error) {
	rate, ok := exchange.Rate(code)
	if !ok {
		return 0, fmt.Errorf("currency %s is missing from the exchange table", code)
	}
	if rate.Bid <= 0 {
		return 0, fmt.Errorf("currency %s carries a non-positive bid %v", code, rate.Bid)
	}
	return round4(total.Div(decimal.NewFromFloat(rate.Bid))), nil
}

func round4(d decimal.Decimal) float64 {
	return d.Round(4).InexactFloat64()
}
