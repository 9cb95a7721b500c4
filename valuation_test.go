package main

import (
	"strings"
	"testing"
)

var valuationExchange = ExchangeTable{
	Timestamp: seedTimestamp,
	Rates: []ExchangeRate{
		{Code: "EUR", Bid: 4.2367, Ask: 4.3223},
		{Code: "USD", Bid: 3.766, Ask: 3.842},
	},
}

func TestComputeTotalValue(t *testing.T) {
	catalog := Catalog{Items: []CatalogItem{
		{ID: 1, Name: "Diamond Sword", Price: 100},
		{ID: 2, Name: "Trident", Price: 200},
	}}
	zombie := Zombie{ID: 0, Name: "john", Items: []ItemRef{
		{ID: 1, Name: "Diamond Sword"},
		{ID: 2, Name: "Trident"},
	}}

	valued, err := computeTotalValue(zombie, catalog, valuationExchange)
	if err != nil {
		t.Fatalf("computeTotalValue: %v", err)
	}
	if valued.TotalValue.Total != 300 {
		t.Errorf("total = %v, want 300", valued.TotalValue.Total)
	}
	// 300 / 4.2367 = 70.80983...
	if valued.TotalValue.EUR != 70.8098 {
		t.Errorf("eur = %v, want 70.8098", valued.TotalValue.EUR)
	}
	if valued.TotalValue.USD != 79.6601 {
		t.Errorf("usd = %v, want 79.6601", valued.TotalValue.USD)
	}
	if valued.Name != "john" || len(valued.Items) != 2 {
		t.Error("the original zombie fields were not carried into the result")
	}
}

func TestComputeTotalValueNoItems(t *testing.T) {
	valued, err := computeTotalValue(Zombie{Name: "john", Items: []ItemRef{}}, Catalog{}, valuationExchange)
	if err != nil {
		t.Fatalf("computeTotalValue: %v", err)
	}
	if valued.TotalValue.Total != 0 || valued.TotalValue.EUR != 0 || valued.TotalValue.USD != 0 {
		t.Errorf("totals = %+v, want all zero", valued.TotalValue)
	}
}

func TestComputeTotalValueRoundsHalfAwayFromZero(t *testing.T) {
	catalog := Catalog{Items: []CatalogItem{{ID: 1, Name: "Tonic", Price: 1}}}
	exchange := ExchangeTable{Rates: []ExchangeRate{
		// 1 / 20000 = 0.00005, which rounds up to 0.0001
		{Code: "EUR", Bid: 20000},
		{Code: "USD", Bid: 1},
	}}
	zombie := Zombie{Items: []ItemRef{{ID: 1, Name: "Tonic"}}}

	valued, err := computeTotalValue(zombie, catalog, exchange)
	if err != nil {
		t.Fatalf("computeTotalValue: %v", err)
	}
	if valued.TotalValue.EUR != 0.0001 {
		t.Errorf("eur = %v, want 0.0001", valued.TotalValue.EUR)
	}
}

func TestComputeTotalValueMissingCatalogEntry(t *testing.T) {
	zombie := Zombie{Items: []ItemRef{{ID: 99, Name: "Ghost Item"}}}
	_, err := computeTotalValue(zombie, Catalog{}, valuationExchange)
	if err == nil {
		t.Fatal("expected an error for an item missing from the catalog")
	}
	if !strings.Contains(err.Error(), "missing from the catalog") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestComputeTotalValueNonPositiveBid(t *testing.T) {
	catalog := Catalog{Items: []CatalogItem{{ID: 1, Name: "Tonic", Price: 10}}}
	exchange := ExchangeTable{Rates: []ExchangeRate{
		{Code: "EUR", Bid: 0},
		{Code: "USD", Bid: 3.766},
	}}
	zombie := Zombie{Items: []ItemRef{{ID: 1, Name: "Tonic"}}}

	_, err := computeTotalValue(zombie, catalog, exchange)
	if err == nil {
		t.Fatal("expected an error for a zero bid rate")
	}
	if !strings.Contains(err.Error(), "non-positive bid") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestComputeTotalValueMissingCurrency(t *testing.T) {
	exchange := ExchangeTable{Rates: []ExchangeRate{{Code: "USD", Bid: 3.766}}}
	_, err := computeTotalValue(Zombie{Items: []ItemRef{}}, Catalog{}, exchange)
	if err == nil {
		t.Fatal("expected an error for a missing exchange rate")
	}
	if !strings.Contains(err.Error(), "EUR") {
		t.Errorf("unexpected error: %v", err)
	}
}
