// integration_test.go contains an end-to-end integration test suite for the
// zombies API: a file-backed store, stubbed reference-data sources, and the
// real handler and middleware stack.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testServerURL string

// testAPIKey is the static API key used to authenticate integration test requests.
const testAPIKey = "test-integration-key"

// TestMain wires a temp-dir file store, stub external sources, and the HTTP
// stack, then runs the tests.
func TestMain(m *testing.M) {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "zombiecrud-test")
	if err != nil {
		panic("creating temp dir: " + err.Error())
	}
	defer os.RemoveAll(dir)

	store := NewStore(NewFileBackend(filepath.Join(dir, "dbStore.json")))
	if err := store.Connect(ctx); err != nil {
		panic("connecting store: " + err.Error())
	}

	// stub reference-data sources: the seed catalog items at their seed
	// prices, and the exchange quotes from the seed NBP snapshot
	itemsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Catalog{
			Timestamp: time.Now().UnixMilli(),
			Items:     defaultDocument().ZombieItems.Items,
		})
	}))
	defer itemsSrv.Close()
	ratesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"table":"C","rates":[
			{"currency":"euro","code":"EUR","bid":4.2367,"ask":4.3223},
			{"currency":"dolar","code":"USD","bid":3.766,"ask":3.842}]}]`)
	}))
	defer ratesSrv.Close()

	logger := newTestLogger()
	refresher := NewRefresher(store, itemsSrv.Client(), logger, itemsSrv.URL, ratesSrv.URL)
	handler := NewHandler(store, refresher, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/zombies", handler.zombiesHandler)
	mux.HandleFunc("/zombies/", handler.zombieHandler)

	validKeys := map[string]struct{}{testAPIKey: {}}
	srv := httptest.NewServer(loggingMiddleware(logger)(requestIDMiddleware()(authMiddleware(validKeys)(mux))))
	defer srv.Close()
	testServerURL = srv.URL

	os.Exit(m.Run())
}

// apiClient returns an HTTP client that injects the test API key.
func apiClient() *http.Client {
	return &http.Client{Transport: &authTransport{token: testAPIKey, base: http.DefaultTransport}}
}

// doJSON issues a request with an optional JSON body and decodes the JSON
// response into out (when out is non-nil). It returns the response status.
func doJSON(t *testing.T, method, path, body string, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, testServerURL+path, reader)
	if err != nil {
		t.Fatalf("creating %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := apiClient().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestZombieLifecycle(t *testing.T) {
	// empty collection at startup
	var zombies []Zombie
	if status := doJSON(t, http.MethodGet, "/zombies", "", &zombies); status != http.StatusOK {
		t.Fatalf("GET /zombies status %d", status)
	}
	if len(zombies) != 0 {
		t.Fatalf("expected an empty collection, got %v", zombies)
	}

	// invalid create is rejected and not persisted
	var envelope errorEnvelope
	status := doJSON(t, http.MethodPost, "/zombies", `{"name":{"first":"john"}}`, &envelope)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("invalid POST status %d, want 422", status)
	}
	if envelope.Error != CodeInvalidName {
		t.Errorf("error = %s, want %s", envelope.Error, CodeInvalidName)
	}
	doJSON(t, http.MethodGet, "/zombies", "", &zombies)
	if len(zombies) != 0 {
		t.Fatal("invalid zombie was persisted")
	}

	// create a plain zombie: id and creationDate are assigned, caller
	// values for them ignored
	var john Zombie
	status = doJSON(t, http.MethodPost, "/zombies", `{"id":99,"creationDate":123,"name":"john"}`, &john)
	if status != http.StatusCreated {
		t.Fatalf("POST status %d, want 201", status)
	}
	if john.ID == 99 || john.CreationDate == 123 {
		t.Error("caller-supplied id/creationDate were not ignored")
	}
	if john.CreationDate <= 0 {
		t.Errorf("creationDate = %d, want a current unix time", john.CreationDate)
	}
	if john.Items == nil || len(john.Items) != 0 {
		t.Errorf("items = %v, want an empty list", john.Items)
	}

	// create a second zombie holding two items
	var jane Zombie
	status = doJSON(t, http.MethodPost, "/zombies",
		`{"name":"jane","items":[{"id":1,"name":"Diamond Sword"},{"id":2,"name":"Trident"}]}`, &jane)
	if status != http.StatusCreated {
		t.Fatalf("POST with items status %d, want 201", status)
	}
	if jane.ID == john.ID {
		t.Fatalf("duplicate id %d", jane.ID)
	}

	// single-zombie read carries the derived total value
	var valued ZombieWithValue
	path := fmt.Sprintf("/zombies/%d", jane.ID)
	if status := doJSON(t, http.MethodGet, path, "", &valued); status != http.StatusOK {
		t.Fatalf("GET %s status %d", path, status)
	}
	if valued.TotalValue.Total != 300 {
		t.Errorf("total = %v, want 300", valued.TotalValue.Total)
	}
	if valued.TotalValue.EUR != 70.8098 {
		t.Errorf("eur = %v, want 70.8098", valued.TotalValue.EUR)
	}
	if valued.TotalValue.USD != 79.6601 {
		t.Errorf("usd = %v, want 79.6601", valued.TotalValue.USD)
	}

	// immutable fields cannot be patched
	status = doJSON(t, http.MethodPut, fmt.Sprintf("/zombies/%d", john.ID), `{"id":7,"name":"johnny"}`, &envelope)
	if status != http.StatusUnprocessableEntity || envelope.Error != CodeImmutableID {
		t.Errorf("PUT with id: status %d error %s, want 422 %s", status, envelope.Error, CodeImmutableID)
	}

	// a regular rename sticks
	var renamed Zombie
	status = doJSON(t, http.MethodPut, fmt.Sprintf("/zombies/%d", john.ID), `{"name":"johnny"}`, &renamed)
	if status != http.StatusOK || renamed.Name != "johnny" {
		t.Errorf("PUT rename: status %d name %q", status, renamed.Name)
	}

	// unknown ids and non-numeric ids read as not found
	for _, p := range []string{"/zombies/999", "/zombies/abc"} {
		status = doJSON(t, http.MethodGet, p, "", &envelope)
		if status != http.StatusNotFound || envelope.Error != CodeZombieNotFound {
			t.Errorf("GET %s: status %d error %s, want 404 %s", p, status, envelope.Error, CodeZombieNotFound)
		}
	}

	// delete succeeds once, then reports nothing deleted
	var result map[string]string
	status = doJSON(t, http.MethodDelete, fmt.Sprintf("/zombies/%d", john.ID), "", &result)
	if status != http.StatusOK || result["result"] != "success" {
		t.Errorf("DELETE: status %d body %v", status, result)
	}
	status = doJSON(t, http.MethodDelete, fmt.Sprintf("/zombies/%d", john.ID), "", &envelope)
	if status != http.StatusNotFound || envelope.Error != CodeNothingDeleted {
		t.Errorf("second DELETE: status %d error %s, want 404 %s", status, envelope.Error, CodeNothingDeleted)
	}
}

func TestZombieItemsRoutes(t *testing.T) {
	var zombie Zombie
	status := doJSON(t, http.MethodPost, "/zombies",
		`{"name":"carrier","items":[{"id":1,"name":"Diamond Sword"}]}`, &zombie)
	if status != http.StatusCreated {
		t.Fatalf("POST status %d, want 201", status)
	}
	base := fmt.Sprintf("/zombies/%d/items", zombie.ID)

	// list
	var items []ItemRef
	if status := doJSON(t, http.MethodGet, base, "", &items); status != http.StatusOK {
		t.Fatalf("GET %s status %d", base, status)
	}
	if len(items) != 1 || items[0].Name != "Diamond Sword" {
		t.Fatalf("items = %v", items)
	}

	// replace wholesale
	var updated Zombie
	status = doJSON(t, http.MethodPut, base,
		`[{"id":2,"name":"Trident"},{"id":3,"name":"Wooden Hoe"}]`, &updated)
	if status != http.StatusOK || len(updated.Items) != 2 {
		t.Fatalf("PUT %s: status %d items %v", base, status, updated.Items)
	}

	// a null body is not an items array and must not wipe anything
	var envelope2 errorEnvelope
	status = doJSON(t, http.MethodPut, base, `null`, &envelope2)
	if status != http.StatusUnprocessableEntity || envelope2.Error != CodeItemsNotAnArray {
		t.Fatalf("PUT %s null: status %d error %s, want 422 %s", base, status, envelope2.Error, CodeItemsNotAnArray)
	}
	doJSON(t, http.MethodGet, base, "", &items)
	if len(items) != 2 {
		t.Fatalf("items after rejected null PUT = %v, want the 2 kept entries", items)
	}

	// append up to the limit of five
	for _, body := range []string{
		`{"id":4,"name":"Fishing Rod"}`,
		`{"id":5,"name":"Elytra"}`,
		`{"id":6,"name":"Blue Bed"}`,
	} {
		if status := doJSON(t, http.MethodPatch, base, body, &updated); status != http.StatusOK {
			t.Fatalf("PATCH %s with %s: status %d", base, body, status)
		}
	}
	if len(updated.Items) != 5 {
		t.Fatalf("items after appends = %v, want 5 entries", updated.Items)
	}

	// the sixth item is rejected and the stored zombie stays unchanged
	var envelope errorEnvelope
	status = doJSON(t, http.MethodPatch, base, `{"id":7,"name":"Toten of Undying"}`, &envelope)
	if status != http.StatusUnprocessableEntity || envelope.Error != CodeTooManyItems {
		t.Fatalf("sixth PATCH: status %d error %s, want 422 %s", status, envelope.Error, CodeTooManyItems)
	}
	doJSON(t, http.MethodGet, base, "", &items)
	if len(items) != 5 {
		t.Fatalf("items after rejected append = %d, want 5", len(items))
	}

	// an unknown item is rejected with the catalog-matching error
	status = doJSON(t, http.MethodPatch, base, `{"id":1,"name":"Trident"}`, &envelope)
	if status != http.StatusUnprocessableEntity || envelope.Error != CodeItemName {
		t.Fatalf("mismatched PATCH: status %d error %s, want 422 %s", status, envelope.Error, CodeItemName)
	}

	// single item by index
	var item ItemRef
	if status := doJSON(t, http.MethodGet, base+"/0", "", &item); status != http.StatusOK {
		t.Fatalf("GET %s/0 status %d", base, status)
	}
	if item.Name != "Trident" {
		t.Errorf("item at index 0 = %v, want Trident", item)
	}
	status = doJSON(t, http.MethodGet, base+"/9", "", &envelope)
	if status != http.StatusNotFound || envelope.Error != CodeZombieItemNotFound {
		t.Errorf("GET %s/9: status %d error %s, want 404 %s", base, status, envelope.Error, CodeZombieItemNotFound)
	}

	// delete by index shifts the rest down
	status = doJSON(t, http.MethodDelete, base+"/0", "", &updated)
	if status != http.StatusOK || len(updated.Items) != 4 {
		t.Fatalf("DELETE %s/0: status %d items %v", base, status, updated.Items)
	}
	if updated.Items[0].Name != "Wooden Hoe" {
		t.Errorf("first item after delete = %v, want Wooden Hoe", updated.Items[0])
	}

	// items routes 404 for unknown zombies
	status = doJSON(t, http.MethodGet, "/zombies/999/items", "", &envelope)
	if status != http.StatusNotFound || envelope.Error != CodeZombieNotFound {
		t.Errorf("GET unknown items: status %d error %s", status, envelope.Error)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	resp, err := http.Get(testServerURL + "/zombies")
	if err != nil {
		t.Fatalf("GET without key: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", resp.StatusCode)
	}
}

// authTransport injects the test API key into outgoing HTTP requests.
type authTransport struct {
	token string
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// newTestLogger returns a logger that outputs to stdout for test visibility.
func newTestLogger() *log.Logger {
	return log.New(os.Stdout, "[TEST] ", log.LstdFlags)
}
