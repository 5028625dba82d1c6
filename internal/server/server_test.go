package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookshelf/internal/ratelimit"
	"bookshelf/pkg/domain"
	"bookshelf/pkg/repo"
	"bookshelf/pkg/store"

	"github.com/alicebob/miniredis/v2"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	st.SeedBook(domain.Book{ID: "book-1", Title: "Dune", Author: "Frank Herbert"})
	st.SeedBook(domain.Book{ID: "book-2", Title: "Hyperion", Author: "Dan Simmons"})

	srv := New(Config{
		Repo:     repo.New(st, repo.NewMemoryListCache()),
		Auth:     repo.NewAuth(st),
		Sessions: store.NewMemorySessionStore(),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	payload := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func signupAndLogin(t *testing.T, baseURL, username, email string) string {
	t.Helper()
	resp, payload := doJSON(t, http.MethodPost, baseURL+"/auth/signup", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "Sup3r#Secret!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup expected 201, got %d", resp.StatusCode)
	}
	var token string
	if err := json.Unmarshal(payload["token"], &token); err != nil || token == "" {
		t.Fatalf("signup returned no token: %v", err)
	}
	return token
}

func TestSignupLoginAndMe(t *testing.T) {
	ts, _ := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "ada", "ada@example.com")

	resp, payload := doJSON(t, http.MethodGet, ts.URL+"/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me expected 200, got %d", resp.StatusCode)
	}
	var username string
	_ = json.Unmarshal(payload["username"], &username)
	if username != "ada" {
		t.Fatalf("me returned username %q", username)
	}
	if _, ok := payload["passwordHash"]; ok {
		t.Fatalf("me leaked password hash")
	}

	// A fresh login works and wrong credentials are a merged 401.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "Sup3r#Secret!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password expected 401, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/me", "/books", "/lists"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s without token expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts, _ := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "ada", "ada@example.com")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/logout", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout expected 204, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout expected 401, got %d", resp.StatusCode)
	}
}

func TestBooksAndReviews(t *testing.T) {
	ts, _ := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "ada", "ada@example.com")

	resp, payload := doJSON(t, http.MethodGet, ts.URL+"/books", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("books expected 200, got %d", resp.StatusCode)
	}
	var count int
	_ = json.Unmarshal(payload["count"], &count)
	if count != 2 {
		t.Fatalf("books count = %d, want 2", count)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/books/book-1/reviews", token, map[string]any{
		"rating": 4, "text": "great",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("review expected 201, got %d", resp.StatusCode)
	}

	// Re-reviewing replaces rather than duplicates, and the detail view
	// carries the refreshed average.
	resp, payload = doJSON(t, http.MethodPost, ts.URL+"/books/book-1/reviews", token, map[string]any{
		"rating": 2,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second review expected 201, got %d", resp.StatusCode)
	}
	var avg float64
	_ = json.Unmarshal(payload["averageRating"], &avg)
	if avg != 2.0 {
		t.Fatalf("averageRating = %v, want 2.0", avg)
	}
	var reviews []domain.Review
	_ = json.Unmarshal(payload["reviews"], &reviews)
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(reviews))
	}
	if reviews[0].Username != "ada" {
		t.Fatalf("review username = %q", reviews[0].Username)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/books/book-1/reviews", token, map[string]any{
		"rating": 9,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range rating expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/books/missing", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown book expected 404, got %d", resp.StatusCode)
	}
}

func TestListLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "ada", "ada@example.com")

	resp, payload := doJSON(t, http.MethodPost, ts.URL+"/lists", token, map[string]string{"name": "Favorites"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create list expected 201, got %d", resp.StatusCode)
	}
	var listID string
	_ = json.Unmarshal(payload["id"], &listID)
	if listID == "" {
		t.Fatalf("create list returned no id")
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/lists", token, map[string]string{"name": "Favorites"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate list expected 409, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/lists", token, map[string]string{"name": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank name expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/lists/"+listID+"/books/book-1", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add book expected 200, got %d", resp.StatusCode)
	}

	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/lists", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lists expected 200, got %d", resp.StatusCode)
	}
	var lists []domain.BookList
	_ = json.Unmarshal(payload["items"], &lists)
	if len(lists) != 1 || len(lists[0].Books) != 1 || lists[0].Books[0].ID != "book-1" {
		t.Fatalf("lists = %+v, want one list holding book-1", lists)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/lists/"+listID+"/books/book-1", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove book expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/lists/"+listID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete list expected 200, got %d", resp.StatusCode)
	}
	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/lists", token, nil)
	var count int
	_ = json.Unmarshal(payload["count"], &count)
	if count != 0 {
		t.Fatalf("lists after delete = %d, want 0", count)
	}
}

func TestListOwnershipEnforced(t *testing.T) {
	ts, _ := newTestServer(t)
	ownerToken := signupAndLogin(t, ts.URL, "ada", "ada@example.com")
	strangerToken := signupAndLogin(t, ts.URL, "grace", "grace@example.com")

	_, payload := doJSON(t, http.MethodPost, ts.URL+"/lists", ownerToken, map[string]string{"name": "Favorites"})
	var listID string
	_ = json.Unmarshal(payload["id"], &listID)

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/lists/"+listID, strangerToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger delete expected 403, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/lists/"+listID+"/books/book-1", strangerToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stranger membership change expected 404, got %d", resp.StatusCode)
	}

	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/lists", ownerToken, nil)
	var count int
	_ = json.Unmarshal(payload["count"], &count)
	if count != 1 {
		t.Fatalf("owner lists = %d, want list to survive", count)
	}
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.New(redis.Addr(), "", "test:ratelimit", 3, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	st := store.NewMemoryStore()
	srv := New(Config{
		Repo:         repo.New(st, repo.NewMemoryListCache()),
		Auth:         repo.NewAuth(st),
		Sessions:     store.NewMemorySessionStore(),
		LoginLimiter: limiter,
	})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
			"email": fmt.Sprintf("u%d@example.com", i), "password": "nope",
		})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401, got %d", i, resp.StatusCode)
		}
	}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email": "u@example.com", "password": "nope",
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("limited attempt expected 429, got %d", resp.StatusCode)
	}
}

func TestSignupValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "short",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("weak password expected 400, got %d", resp.StatusCode)
	}

	signupAndLogin(t, ts.URL, "ada", "ada@example.com")
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": "other", "email": "ADA@example.com", "password": "Sup3r#Secret!",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate email expected 409, got %d", resp.StatusCode)
	}
}
