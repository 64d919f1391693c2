// Package edgetest provides an in-memory Edge Filer for tests: cookie-based
// login on the management API and a WebDAV share backed by a map.
package edgetest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName is the session cookie the fake filer issues.
	CookieName = "JSESSIONID"

	loginPage   = "/ctera/login"
	filesPrefix = "/localFiles"
)

// Request records a call the server received.
type Request struct {
	Method      string
	Path        string // unescaped URL path
	Destination string // share-relative, for COPY/MOVE
}

type node struct {
	dir      bool
	data     []byte
	modified time.Time
}

// Server is a fake Edge Filer. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	User     string
	Password string

	mu       sync.Mutex
	sessions map[string]bool
	tree     map[string]*node
	logins   int
	logouts  int
	requests []Request
	failNext map[string]int
	expireIn map[string]int
}

// NewServer starts a fake filer accepting the given credentials. It is closed
// when the test ends.
func NewServer(t testing.TB, user, password string) *Server {
	t.Helper()

	return start(t, user, password, httptest.NewServer)
}

// NewTLSServer is NewServer over https with a self-signed certificate.
func NewTLSServer(t testing.TB, user, password string) *Server {
	t.Helper()

	return start(t, user, password, httptest.NewTLSServer)
}

func start(t testing.TB, user, password string, listen func(http.Handler) *httptest.Server) *Server {
	s := &Server{
		User:     user,
		Password: password,
		sessions: make(map[string]bool),
		tree:     map[string]*node{"": {dir: true, modified: time.Now().UTC()}},
		failNext: make(map[string]int),
		expireIn: make(map[string]int),
	}

	s.Server = listen(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)

	return s
}

// Host returns the server address without scheme, e.g. "127.0.0.1:41234".
func (s *Server) Host() string {
	return strings.TrimPrefix(strings.TrimPrefix(s.URL, "https://"), "http://")
}

// Expire invalidates every live session. The next request bounces to the
// login page until the client logs in again.
func (s *Server) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]bool)
}

// ExpireAfter invalidates every live session once n more WebDAV requests with
// the given method have been served.
func (s *Server) ExpireAfter(method string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIn[method] = n
}

// FailNext makes the next n requests with the given method answer 500.
func (s *Server) FailNext(method string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failNext[method] += n
}

// Logins returns the number of successful logins.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logins
}

// Logouts returns the number of logout calls.
func (s *Server) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logouts
}

// LiveSessions returns the number of session cookies currently accepted.
func (s *Server) LiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Requests returns a copy of the WebDAV requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)

	return out
}

// AddDir creates a directory and any missing parents.
func (s *Server) AddDir(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mkdirAll(clean(p))
}

// AddFile creates a file with the given content, creating parents as needed.
func (s *Server) AddFile(p, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = clean(p)
	s.mkdirAll(path.Dir(p))
	s.tree[p] = &node{data: []byte(content), modified: time.Now().UTC()}
}

// File returns the content of a file and whether it exists.
func (s *Server) File(p string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.tree[clean(p)]
	if !ok || n.dir {
		return "", false
	}

	return string(n.data), true
}

// Exists reports whether p is present, file or directory.
func (s *Server) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tree[clean(p)]

	return ok
}

// IsDir reports whether p is a directory.
func (s *Server) IsDir(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.tree[clean(p)]

	return ok && n.dir
}

func clean(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}

	return strings.TrimPrefix(p, "/")
}

// mkdirAll must be called with mu held.
func (s *Server) mkdirAll(p string) {
	if p == "" || p == "." {
		return
	}

	s.mkdirAll(parentOf(p))

	if _, ok := s.tree[p]; !ok {
		s.tree[p] = &node{dir: true, modified: time.Now().UTC()}
	}
}

func parentOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}

	return p[:i]
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ctera/api/login":
		s.handleLogin(w, r)

		return
	case "/ctera/api/logout":
		s.handleLogout(w, r)

		return
	}

	if !s.authenticated(r) {
		http.Redirect(w, r, loginPage, http.StatusFound)

		return
	}

	if s.injectFailure(r.Method) {
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	switch {
	case r.URL.Path == "/ctera/api/currentuser":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"username": s.User, "role": "ReadWriteAdmin"})
	case r.URL.Path == filesPrefix || strings.HasPrefix(r.URL.Path, filesPrefix+"/"):
		s.serveDAV(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)

		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if r.PostForm.Get("j_username") != s.User || r.PostForm.Get("j_password") != s.Password {
		http.Error(w, "Authentication failed: wrong user name or password", http.StatusUnauthorized)

		return
	}

	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = true
	s.logins++
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: token, Path: "/", HttpOnly: true})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.logouts++

	if c, err := r.Cookie(CookieName); err == nil {
		delete(s.sessions, c.Value)
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) authenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions[c.Value]
}

func (s *Server) injectFailure(method string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext[method] > 0 {
		s.failNext[method]--

		return true
	}

	return false
}

func (s *Server) serveDAV(w http.ResponseWriter, r *http.Request) {
	p := clean(strings.TrimPrefix(r.URL.Path, filesPrefix))

	rec := Request{Method: r.Method, Path: r.URL.Path}

	var dest string

	if r.Method == "COPY" || r.Method == "MOVE" {
		u, err := url.Parse(r.Header.Get("Destination"))
		if err != nil || !strings.HasPrefix(u.Path, filesPrefix) {
			http.Error(w, "bad destination", http.StatusBadRequest)

			return
		}

		dest = clean(strings.TrimPrefix(u.Path, filesPrefix))
		rec.Destination = dest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, rec)

	switch r.Method {
	case "PROPFIND":
		s.propfind(w, r, p)
	case "MKCOL":
		s.mkcol(w, p)
	case "COPY", "MOVE":
		s.relocate(w, r, p, dest)
	case http.MethodDelete:
		s.remove(w, p)
	case http.MethodPut:
		s.put(w, r, p)
	case http.MethodGet:
		s.get(w, p)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}

	if n, ok := s.expireIn[r.Method]; ok {
		if n <= 1 {
			delete(s.expireIn, r.Method)
			s.sessions = make(map[string]bool)
		} else {
			s.expireIn[r.Method] = n - 1
		}
	}
}

func (s *Server) propfind(w http.ResponseWriter, r *http.Request, p string) {
	n, ok := s.tree[p]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)

		return
	}

	entries := []string{p}

	if n.dir && r.Header.Get("Depth") != "0" {
		entries = append(entries, s.children(p)...)
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<D:multistatus xmlns:D="DAV:" xmlns:C="http://www.ctera.com/ns">`)

	for _, e := range entries {
		writeEntry(&buf, e, s.tree[e], s.hasSubfolders(e))
	}

	buf.WriteString(`</D:multistatus>`)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write(buf.Bytes())
}

func writeEntry(buf *bytes.Buffer, p string, n *node, subfolders bool) {
	href := filesPrefix + "/" + escapePath(p)
	name := path.Base("/" + p)

	if n.dir && p != "" {
		href += "/"
	}

	buf.WriteString(`<D:response><D:href>`)
	_ = xml.EscapeText(buf, []byte(href))
	buf.WriteString(`</D:href><D:propstat><D:prop><D:displayname>`)
	_ = xml.EscapeText(buf, []byte(name))
	buf.WriteString(`</D:displayname>`)
	fmt.Fprintf(buf, `<D:getlastmodified>%s</D:getlastmodified>`, n.modified.Format(http.TimeFormat))

	if n.dir {
		buf.WriteString(`<D:resourcetype><D:collection/></D:resourcetype>`)
		fmt.Fprintf(buf, `<C:hasSubfolders>%t</C:hasSubfolders>`, subfolders)
	} else {
		buf.WriteString(`<D:resourcetype/>`)
		fmt.Fprintf(buf, `<D:getcontentlength>%d</D:getcontentlength>`, len(n.data))
		buf.WriteString(`<D:getcontenttype>application/octet-stream</D:getcontenttype>`)
	}

	fmt.Fprintf(buf, `<C:id>%s</C:id>`, uuid.NewSHA1(uuid.NameSpaceURL, []byte(p)).String())
	buf.WriteString(`<C:isDeleted>false</C:isDeleted>`)
	buf.WriteString(`</D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>`)
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}

	return strings.Join(segs, "/")
}

// children returns the direct children of dir, sorted. Must hold mu.
func (s *Server) children(dir string) []string {
	var out []string

	for p := range s.tree {
		if p != "" && parentOf(p) == dir {
			out = append(out, p)
		}
	}

	sort.Strings(out)

	return out
}

func (s *Server) hasSubfolders(dir string) bool {
	for _, c := range s.children(dir) {
		if s.tree[c].dir {
			return true
		}
	}

	return false
}

func (s *Server) mkcol(w http.ResponseWriter, p string) {
	if _, ok := s.tree[p]; ok {
		http.Error(w, "already exists", http.StatusMethodNotAllowed)

		return
	}

	if parent, ok := s.tree[parentOf(p)]; !ok || !parent.dir {
		http.Error(w, "parent does not exist", http.StatusConflict)

		return
	}

	s.tree[p] = &node{dir: true, modified: time.Now().UTC()}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) relocate(w http.ResponseWriter, r *http.Request, src, dst string) {
	if _, ok := s.tree[src]; !ok {
		http.Error(w, "source not found", http.StatusNotFound)

		return
	}

	if _, exists := s.tree[dst]; exists && r.Header.Get("Overwrite") == "F" {
		http.Error(w, "destination exists", http.StatusPreconditionFailed)

		return
	}

	if parent, ok := s.tree[parentOf(dst)]; !ok || !parent.dir {
		http.Error(w, "destination parent does not exist", http.StatusConflict)

		return
	}

	for _, p := range s.subtree(src) {
		n := *s.tree[p]
		n.data = append([]byte(nil), n.data...)
		s.tree[dst+strings.TrimPrefix(p, src)] = &n
	}

	if r.Method == "MOVE" {
		for _, p := range s.subtree(src) {
			delete(s.tree, p)
		}
	}

	w.WriteHeader(http.StatusCreated)
}

// subtree returns root and all its descendants. Must hold mu.
func (s *Server) subtree(root string) []string {
	var out []string

	for p := range s.tree {
		if p == root || strings.HasPrefix(p, root+"/") {
			out = append(out, p)
		}
	}

	sort.Strings(out)

	return out
}

func (s *Server) remove(w http.ResponseWriter, p string) {
	if _, ok := s.tree[p]; !ok || p == "" {
		http.Error(w, "not found", http.StatusNotFound)

		return
	}

	for _, d := range s.subtree(p) {
		delete(s.tree, d)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) put(w http.ResponseWriter, r *http.Request, p string) {
	if parent, ok := s.tree[parentOf(p)]; !ok || !parent.dir {
		http.Error(w, "parent does not exist", http.StatusConflict)

		return
	}

	if n, ok := s.tree[p]; ok && n.dir {
		http.Error(w, "is a directory", http.StatusMethodNotAllowed)

		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	s.tree[p] = &node{data: data, modified: time.Now().UTC()}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) get(w http.ResponseWriter, p string) {
	n, ok := s.tree[p]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)

		return
	}

	if n.dir {
		http.Error(w, "is a directory", http.StatusMethodNotAllowed)

		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(n.data)
}
