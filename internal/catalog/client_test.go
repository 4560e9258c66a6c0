package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != DefaultBaseURL {
		t.Fatalf("url = %q, want %q", u.String(), DefaultBaseURL)
	}

	u, err = parseBaseURL("10.0.0.5:3000")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != "http://10.0.0.5:3000/products" {
		t.Fatalf("url = %q, want scheme and /products path added", u.String())
	}

	u, err = parseBaseURL("https://example.com/api/products/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != "https://example.com/api/products" {
		t.Fatalf("url = %q, want trailing slash, query and fragment stripped", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("parseBaseURL(http://) returned nil error, want missing host")
	}
}

func TestClient_SendsCRUDRequests(t *testing.T) {
	t.Parallel()

	type seen struct {
		method, path, contentType, userAgent string
		body                                 map[string]any
	}
	var (
		mu       sync.Mutex
		requests []seen
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := seen{
			method:      r.Method,
			path:        r.URL.EscapedPath(),
			contentType: r.Header.Get("Content-Type"),
			userAgent:   r.Header.Get("User-Agent"),
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &s.body)
		}
		mu.Lock()
		requests = append(requests, s)
		mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/products":
			_, _ = w.Write([]byte(`[{"_id":"1","name":"Pen","price":2},{"_id":"2","name":"Mug","price":5}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/products/create":
			_, _ = w.Write([]byte("created\n"))
		case r.Method == http.MethodPut:
			_, _ = w.Write([]byte("updated"))
		case r.Method == http.MethodDelete:
			_, _ = w.Write([]byte(`{"deleted":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/products/", Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	products, err := c.FetchProducts(ctx)
	if err != nil {
		t.Fatalf("FetchProducts returned error: %v", err)
	}
	if len(products) != 2 || products[0] != (Product{ID: "1", Name: "Pen", Price: 2}) {
		t.Fatalf("FetchProducts = %#v, want Pen and Mug in order", products)
	}

	ack, err := c.CreateProduct(ctx, Draft{Name: "Lamp", Price: 30})
	if err != nil {
		t.Fatalf("CreateProduct returned error: %v", err)
	}
	if ack != "created" {
		t.Fatalf("CreateProduct ack = %q, want trimmed text", ack)
	}

	if _, err := c.UpdateProduct(ctx, Product{ID: "a/b", Name: "Pen", Price: 3}); err != nil {
		t.Fatalf("UpdateProduct returned error: %v", err)
	}
	if err := c.DeleteProduct(ctx, "2"); err != nil {
		t.Fatalf("DeleteProduct returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 4 {
		t.Fatalf("server saw %d requests, want 4", len(requests))
	}

	create := requests[1]
	if create.method != http.MethodPost || create.path != "/products/create" {
		t.Fatalf("create request = %s %s, want POST /products/create", create.method, create.path)
	}
	if create.contentType != "application/json" {
		t.Fatalf("create Content-Type = %q, want application/json", create.contentType)
	}
	if create.body["name"] != "Lamp" || create.body["price"] != float64(30) {
		t.Fatalf("create body = %v, want name=Lamp price=30", create.body)
	}
	if _, ok := create.body["_id"]; ok {
		t.Fatalf("create body carries an id: %v", create.body)
	}

	update := requests[2]
	if update.method != http.MethodPut || update.path != "/products/a%2Fb" {
		t.Fatalf("update request = %s %s, want PUT with escaped id", update.method, update.path)
	}
	if update.body["id"] != "a/b" || update.body["price"] != float64(3) {
		t.Fatalf("update body = %v, want id=a/b price=3", update.body)
	}

	del := requests[3]
	if del.method != http.MethodDelete || del.path != "/products/2" {
		t.Fatalf("delete request = %s %s, want DELETE /products/2", del.method, del.path)
	}

	for _, r := range requests {
		if !strings.HasPrefix(r.userAgent, "stockroom/") {
			t.Fatalf("User-Agent = %q, want stockroom/*", r.userAgent)
		}
	}
}

func TestClient_StatusDecodeAndEmptyBodyErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte("{not-json"))
		case http.MethodPut:
			http.Error(w, "no such product", http.StatusNotFound)
		case http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{BreakerFailures: -1})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	_, err = c.FetchProducts(ctx)
	if !IsDecode(err) || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("FetchProducts error = %v, want DecodeError", err)
	}

	_, err = c.UpdateProduct(ctx, Product{ID: "9", Name: "x"})
	var se *StatusError
	if !errors.As(err, &se) || !se.NotFound() {
		t.Fatalf("UpdateProduct error = %v, want 404 StatusError", err)
	}
	if !strings.Contains(err.Error(), "returned status 404: no such product") {
		t.Fatalf("UpdateProduct error = %q, want status and body", err.Error())
	}

	err = c.DeleteProduct(ctx, "9")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("DeleteProduct error = %v, want ErrEmptyResponse", err)
	}
}

func TestClient_RejectsMissingIDs(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.UpdateProduct(context.Background(), Product{Name: "x"}); err == nil {
		t.Fatalf("UpdateProduct returned nil error, want id required")
	}
	if err := c.DeleteProduct(context.Background(), " "); err == nil {
		t.Fatalf("DeleteProduct returned nil error, want id required")
	}
}

func TestClient_FetchRejectsEntryWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"abc","name":"Mug","price":5}]`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	products, err := c.FetchProducts(context.Background())
	if !IsDecode(err) {
		t.Fatalf("FetchProducts error = %v, want DecodeError", err)
	}
	if products != nil {
		t.Fatalf("products = %v, want nil", products)
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := NewClient(url, Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	err = c.DeleteProduct(context.Background(), "1")
	if !IsTransport(err) {
		t.Fatalf("DeleteProduct error = %v, want TransportError", err)
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{BreakerFailures: 2, BreakerTimeout: time.Minute})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		_, err := c.FetchProducts(context.Background())
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
			t.Fatalf("call %d error = %v, want 500 StatusError", i, err)
		}
	}

	_, err = c.FetchProducts(context.Background())
	if !IsTransport(err) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("third call error = %v, want open breaker TransportError", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2 (open breaker must not send)", got)
	}
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{BreakerFailures: 1})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	for i := 0; i < 3; i++ {
		_ = c.DeleteProduct(context.Background(), "x")
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("server hits = %d, want 3", got)
	}
}
