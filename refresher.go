package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// Staleness windows for the two cached reference datasets. Price catalogs
// change rarely; currency rates get an hourly upper bound, which is enough
// given market-hours and holiday irregularities.
const (
	catalogMaxAge  = 24 * time.Hour
	exchangeMaxAge = time.Hour
)

// currenciesOfInterest restricts the cached exchange table.
var currenciesOfInterest = map[string]bool{"EUR": true, "USD": true}

// Refresher keeps the two cached reference datasets fresh, falling back to
// stale data whenever an external source is unreachable.
type Refresher struct {
	store    *Store
	client   *http.Client
	logger   *log.Logger
	itemsURL string
	ratesURL string
	group    singleflight.Group
}

// NewRefresher creates a Refresher fetching from the given source URLs.
func NewRefresher(store *Store, client *http.Client, logger *log.Logger, itemsURL, ratesURL string) *Refresher {
	return &Refresher{
		store:    store,
		client:   client,
		logger:   logger,
		itemsURL: itemsURL,
		ratesURL: ratesURL,
	}
}

type referencePair struct {
	catalog  Catalog
	exchange ExchangeTable
}

// EnsureFresh returns the cached catalog and exchange table, refreshing
// whichever is past its staleness window first. Fetch failures are logged
// and degrade to the stale value; they never propagate to the caller.
// Concurrent calls share a single refresh pass; the pass is detached from
// the triggering request's cancellation so one canceled caller cannot kill
// a fetch other callers are waiting on. The fetch client's timeout still
// bounds it.
func (r *Refresher) EnsureFresh(ctx context.Context) (Catalog, ExchangeTable, error) {
	refreshCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		return r.refresh(refreshCtx)
	})
	if err != nil {
		return Catalog{}, ExchangeTable{}, err
	}
	pair := v.(referencePair)
	return pair.catalog, pair.exchange, nil
}

func (r *Refresher) refresh(ctx context.Context) (referencePair, error) {
	catalog, exchange, err := r.store.ReferenceData(ctx)
	if err != nil {
		return referencePair{}, err
	}
	now := time.Now()

	if ageOf(catalog.Timestamp, now) > catalogMaxAge {
		fresh, err := r.fetchCatalog(ctx, now)
		if err != nil {
			r.logger.Printf("warning: item catalog refresh failed, keeping stale data: %v", err)
		} else if err := r.store.SetCatalog(ctx, fresh); err != nil {
			return referencePair{}, err
		} else {
			catalog = fresh
		}
	}

	if ageOf(exchange.Timestamp, now) > exchangeMaxAge {
		fresh, err := r.fetchExchange(ctx, now)
		if err != nil {
			r.logger.Printf("warning: exchange table refresh failed, keeping stale data: %v", err)
		} else if err := r.store.SetExchange(ctx, fresh); err != nil {
			return referencePair{}, err
		} else {
			exchange = fresh
		}
	}

	return referencePair{catalog: catalog, exchange: exchange}, nil
}

// ageOf converts an epoch-millisecond timestamp into an age relative to now.
func ageOf(epochMillis int64, now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(epochMillis))
}

// fetchCatalog pulls a new item catalog from the price source. The source's
// own timestamp is trusted when present; the fetch time is used otherwise.
func (r *Refresher) fetchCatalog(ctx context.Context, now time.Time) (Catalog, error) {
	var catalog Catalog
	if err := r.getJSON(ctx, r.itemsURL, &catalog); err != nil {
		return Catalog{}, err
	}
	if len(catalog.Items) == 0 {
		return Catalog{}, fmt.Errorf("item source %s returned an empty catalog", r.itemsURL)
	}
	if catalog.Timestamp == 0 {
		catalog.Timestamp = now.UnixMilli()
	}
	return catalog, nil
}

// nbpTable mirrors one entry of the rate source's response: an array of
// exchange tables, each carrying a rates list.
type nbpTable struct {
	Table         string         `json:"table"`
	No            string         `json:"no"`
	TradingDate   string         `json:"tradingDate"`
	EffectiveDate string         `json:"effectiveDate"`
	Rates         []ExchangeRate `json:"rates"`
}

// fetchExchange pulls the latest exchange table from the rate source and
// filters it to the currencies of interest. Unlike the catalog refresh, the
// cached timestamp is the fetch time, not the source's trading date.
func (r *Refresher) fetchExchange(ctx context.Context, now time.Time) (ExchangeTable, error) {
	var tables []nbpTable
	if err := r.getJSON(ctx, r.ratesURL, &tables); err != nil {
		return ExchangeTable{}, err
	}
	if len(tables) == 0 {
		return ExchangeTable{}, fmt.Errorf("rate source %s returned no tables", r.ratesURL)
	}
	rates := make([]ExchangeRate, 0, len(currenciesOfInterest))
	for _, rate := range tables[0].Rates {
		if !currenciesOfInterest[rate.Code] {
			continue
		}
		// a quote nothing can be divided by is malformed data
		if rate.Bid <= 0 {
			return ExchangeTable{}, fmt.Errorf("rate source %s quoted a non-positive bid %v for %s",
				r.ratesURL, rate.Bid, rate.Code)
		}
		rates = append(rates, rate)
	}
	if len(rates) == 0 {
		return ExchangeTable{}, fmt.Errorf("rate source %s carried none of the currencies of interest", r.ratesURL)
	}
	return ExchangeTable{Timestamp: now.UnixMilli(), Rates: rates}, nil
}

// getJSON performs an HTTP GET and unmarshals the JSON response into out.
func (r *Refresher) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot GET %s: %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
