package main

// Zombie is a stored record: an auto-assigned serial id, a creation time in
// unix seconds, a name, and up to five catalog item references.
type Zombie struct {
	ID           int64     `json:"id"`
	CreationDate int64     `json:"creationDate"`
	Name         string    `json:"name"`
	Items        []ItemRef `json:"items"`
}

// ItemRef references a catalog item attached to a zombie. Both id and name
// must match the same catalog entry.
type ItemRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CatalogItem is a purchasable item with its price in the base currency.
type CatalogItem struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Catalog is the cached item price list. Timestamp is epoch milliseconds of
// the last refresh.
type Catalog struct {
	Timestamp int64         `json:"timestamp"`
	Items     []CatalogItem `json:"items"`
}

// Price returns the price of the catalog item with the given id.
func (c Catalog) Price(id int64) (float64, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item.Price, true
		}
	}
	return 0, false
}

// ExchangeRate is a single currency quote from the rate source.
type ExchangeRate struct {
	Currency string  `json:"currency,omitempty"`
	Code     string  `json:"code"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
}

// ExchangeTable is the cached currency table, filtered to the currencies of
// interest. Timestamp is epoch milliseconds of the last refresh.
type ExchangeTable struct {
	Timestamp int64          `json:"timestamp"`
	Rates     []ExchangeRate `json:"rates"`
}

// Rate returns the quote for the given ISO currency code.
func (t ExchangeTable) Rate(code string) (ExchangeRate, bool) {
	for _, r := range t.Rates {
		if r.Code == code {
			return r, true
		}
	}
	return ExchangeRate{}, false
}

// Document is the whole persisted state: the zombie collection, the id
// serial, and both cached reference datasets, stored as one structured JSON
// document.
type Document struct {
	Zombies      []Zombie      `json:"zombies"`
	ZombieSerial int64         `json:"zombie_id_serial"`
	ZombieItems  Catalog       `json:"zombieItems"`
	ExchangeData ExchangeTable `json:"exchangeData"`
}

// ZombieDraft is the projected shape of a create request: only name and items
// are taken from the caller, everything else is assigned by the store.
type ZombieDraft struct {
	Name  string
	Items []ItemRef
}

// ZombiePatch is the whitelist projection of an update request. Nil fields
// were absent from the payload and are left untouched by the merge.
type ZombiePatch struct {
	Name  *string
	Items *[]ItemRef
}

// TotalValue is the derived valuation of a zombie's items: the base-currency
// total plus conversions into the currencies of interest.
type TotalValue struct {
	Total float64 `json:"total"`
	EUR   float64 `json:"eur"`
	USD   float64 `json:"usd"`
}

// ZombieWithValue is a zombie merged with its computed total value, as
// returned by the single-zombie read.
type ZombieWithValue struct {
	Zombie
	TotalValue TotalValue `json:"totalValue"`
}
