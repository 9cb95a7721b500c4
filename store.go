package main

import (
	"context"
	"time"
)

// Backend loads and saves the whole persisted document. Load returns
// (nil, nil) when no document exists yet.
type Backend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// Store owns the zombie collection, id allocation, and the cached reference
// datasets persisted alongside it. Every mutation is a full
// load-modify-save cycle; concurrent mutations against the same store are
// not isolated from each other.
type Store struct {
	backend   Backend
	connected bool
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Connect acquires the backing document, seeding defaults on first use. It
// must be called before any other method.
func (s *Store) Connect(ctx context.Context) error {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	if doc == nil {
		if err := s.backend.Save(ctx, defaultDocument()); err != nil {
			return err
		}
	}
	s.connected = true
	return nil
}

func (s *Store) load(ctx context.Context) (*Document, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	doc, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = defaultDocument()
	}
	return doc, nil
}

// All returns every stored zombie in insertion order.
func (s *Store) All(ctx context.Context) ([]Zombie, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Zombies, nil
}

// Create allocates the next serial id, stamps the creation time, and appends
// a zombie built from the draft's name and items only.
func (s *Store) Create(ctx context.Context, draft ZombieDraft) (Zombie, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Zombie{}, err
	}
	items := draft.Items
	if items == nil {
		items = []ItemRef{}
	}
	zombie := Zombie{
		ID:           doc.ZombieSerial,
		CreationDate: time.Now().Unix(),
		Name:         draft.Name,
		Items:        items,
	}
	doc.ZombieSerial++
	doc.Zombies = append(doc.Zombies, zombie)
	if err := s.backend.Save(ctx, doc); err != nil {
		return Zombie{}, err
	}
	return zombie, nil
}

// Get returns the zombie with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Zombie, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Zombie{}, err
	}
	for _, z := range doc.Zombies {
		if z.ID == id {
			return z, nil
		}
	}
	return Zombie{}, ErrNotFound
}

// Update merges the patch's present fields onto the matched zombie and
// persists the result. Only name and items can change.
func (s *Store) Update(ctx context.Context, id int64, patch ZombiePatch) (Zombie, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Zombie{}, err
	}
	for i := range doc.Zombies {
		if doc.Zombies[i].ID != id {
			continue
		}
		if patch.Name != nil {
			doc.Zombies[i].Name = *patch.Name
		}
		if patch.Items != nil {
			doc.Zombies[i].Items = *patch.Items
		}
		if err := s.backend.Save(ctx, doc); err != nil {
			return Zombie{}, err
		}
		return doc.Zombies[i], nil
	}
	return Zombie{}, ErrNotFound
}

// Delete removes every zombie with the given id (at most one in practice)
// and returns the removed records. An empty result means nothing matched.
func (s *Store) Delete(ctx context.Context, id int64) ([]Zombie, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	removed := []Zombie{}
	kept := doc.Zombies[:0]
	for _, z := range doc.Zombies {
		if z.ID == id {
			removed = append(removed, z)
		} else {
			kept = append(kept, z)
		}
	}
	if len(removed) == 0 {
		return removed, nil
	}
	doc.Zombies = kept
	if err := s.backend.Save(ctx, doc); err != nil {
		return nil, err
	}
	return removed, nil
}

// ReferenceData returns the cached catalog and exchange table.
func (s *Store) ReferenceData(ctx context.Context) (Catalog, ExchangeTable, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Catalog{}, ExchangeTable{}, err
	}
	return doc.ZombieItems, doc.ExchangeData, nil
}

// SetCatalog replaces the cached item catalog.
func (s *Store) SetCatalog(ctx context.Context, catalog Catalog) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.ZombieItems = catalog
	return s.backend.Save(ctx, doc)
}

// SetExchange replaces the cached exchange table.
func (s *Store) SetExchange(ctx context.Context, table ExchangeTable) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.ExchangeData = table
	return s.backend.Save(ctx, doc)
}

// seedTimestamp is far enough in the past that both caches are stale on
// first use, forcing an immediate refresh attempt.
const seedTimestamp = int64(1555804800000)

// defaultDocument is the state written on first initialization: an empty
// collection, serial 0, and seed snapshots of both reference datasets.
func defaultDocument() *Document {
	return &Document{
		Zombies:      []Zombie{},
		ZombieSerial: 0,
		ZombieItems: Catalog{
			Timestamp: seedTimestamp,
			Items: []CatalogItem{
				{ID: 1, Name: "Diamond Sword", Price: 100},
				{ID: 2, Name: "Trident", Price: 200},
				{ID: 3, Name: "Wooden Hoe", Price: 50},
				{ID: 4, Name: "Fishing Rod", Price: 150},
				{ID: 5, Name: "Elytra", Price: 110},
				{ID: 6, Name: "Blue Bed", Price: 80},
				{ID: 7, Name: "Toten of Undying", Price: 130},
				{ID: 8, Name: "Spawn Egg", Price: 30},
				{ID: 9, Name: "Leather Boots", Price: 50},
				{ID: 10, Name: "Horse Saddle", Price: 180},
				{ID: 11, Name: "Tonic", Price: 10},
				{ID: 12, Name: "Knowledge Book", Price: 190},
				{ID: 13, Name: "Flower Pot", Price: 40},
				{ID: 14, Name: "Enchanted Book", Price: 170},
				{ID: 15, Name: "Brown Glow Stick", Price: 90},
			},
		},
		ExchangeData: ExchangeTable{
			Timestamp: seedTimestamp,
			Rates: []ExchangeRate{
				{Currency: "dolar amerykański", Code: "USD", Bid: 3.766, Ask: 3.842},
				{Currency: "euro", Code: "EUR", Bid: 4.2367, Ask: 4.3223},
			},
		},
	}
}
