package testsupport

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// StoreRequest is one statement received by a FakeStore.
type StoreRequest struct {
	Name   string
	SQL    string
	Params map[string]string
}

// FakeStore is an httptest server speaking enough of the ClickHouse HTTP
// interface to answer statements with canned JSONEachRow rows. Statements are
// told apart by the name carried in log_comment.
type FakeStore struct {
	*httptest.Server

	mu       sync.Mutex
	rows     map[string][]map[string]any
	failures map[string]int
	requests []StoreRequest
}

// NewFakeStore starts a FakeStore that is closed when the test ends.
func NewFakeStore(t *testing.T) *FakeStore {
	t.Helper()
	fs := &FakeStore{
		rows:     make(map[string][]map[string]any),
		failures: make(map[string]int),
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

// Respond sets the rows returned for statement name.
func (fs *FakeStore) Respond(name string, rows ...map[string]any) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.rows[name] = rows
}

// Fail makes statement name answer with an HTTP status and an exception body.
func (fs *FakeStore) Fail(name string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failures[name] = status
}

// Requests returns every statement received so far.
func (fs *FakeStore) Requests() []StoreRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]StoreRequest, len(fs.requests))
	copy(out, fs.requests)
	return out
}

// Request returns the last statement received with name.
func (fs *FakeStore) Request(name string) (StoreRequest, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i := len(fs.requests) - 1; i >= 0; i-- {
		if fs.requests[i].Name == name {
			return fs.requests[i], true
		}
	}
	return StoreRequest{}, false
}

func (fs *FakeStore) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ping" {
		io.WriteString(w, "Ok.\n")
		return
	}

	body, _ := io.ReadAll(r.Body)
	q := r.URL.Query()

	comment := q.Get("log_comment")
	name := comment
	if idx := strings.LastIndex(comment, ":"); idx >= 0 {
		name = comment[idx+1:]
	}

	params := make(map[string]string)
	for k, v := range q {
		if strings.HasPrefix(k, "param_") && len(v) > 0 {
			params[strings.TrimPrefix(k, "param_")] = v[0]
		}
	}

	fs.mu.Lock()
	fs.requests = append(fs.requests, StoreRequest{Name: name, SQL: string(body), Params: params})
	status, failing := fs.failures[name]
	rows := fs.rows[name]
	fs.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		io.WriteString(w, "Code: 60. DB::Exception: Unknown table expression identifier")
		return
	}

	var buf bytes.Buffer
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Write(buf.Bytes())
}
