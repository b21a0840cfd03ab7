// Package mockportal serves a small imitation of the author cabinet: form
// login with a session cookie, the paginated author table and editable
// profile pages.
package mockportal

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const sessionCookie = "PHPSESSID"

// Call records a request made to the mock portal.
type Call struct {
	Method string
	Path   string
}

// Author is one row of the author table.
type Author struct {
	ID   int
	Name string
}

// Update records an accepted profile submission.
type Update struct {
	ID   int
	Name string
}

// Options configures the mock.
type Options struct {
	Email    string
	Password string
	// Charset is "utf-8" (default) or "windows-1251".
	Charset string
	// PageSize is used when a request omits length. Zero means 10.
	PageSize int
}

// Server is safe for concurrent use.
type Server struct {
	opts    Options
	enc     encoding.Encoding
	charset string
	engine  *gin.Engine

	mu          sync.Mutex
	authors     []Author
	tokens      map[int]string
	sessions    map[string]bool
	failUpdates map[int]int
	updates     []Update
	calls       []Call
}

// New builds a mock portal seeded with names; author ids start at 1.
func New(opts Options, names []string) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	s := &Server{
		opts:        opts,
		enc:         unicode.UTF8,
		charset:     "utf-8",
		tokens:      make(map[int]string),
		sessions:    make(map[string]bool),
		failUpdates: make(map[int]int),
	}
	if strings.EqualFold(strings.TrimSpace(opts.Charset), "windows-1251") {
		s.enc = charmap.Windows1251
		s.charset = "windows-1251"
	}
	for i, name := range names {
		id := i + 1
		s.authors = append(s.authors, Author{ID: id, Name: name})
		s.tokens[id] = uuid.NewString()
	}
	s.engine = s.routes()
	return s
}

// Handler returns an http.Handler that serves the mock portal.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.recordCall)

	cab := r.Group("/cabinet")
	cab.GET("/login.php", s.loginPage)
	cab.POST("/login.php", s.login)

	authed := cab.Group("", s.requireSession)
	authed.GET("/authors.php", s.authorsPage)
	authed.GET("/author.php", s.profilePage)
	authed.POST("/author.php", s.updateProfile)
	return r
}

// Authors returns a snapshot of the author table.
func (s *Server) Authors() []Author {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Author, len(s.authors))
	copy(out, s.authors)
	return out
}

// Updates returns accepted submissions in arrival order.
func (s *Server) Updates() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Update, len(s.updates))
	copy(out, s.updates)
	return out
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// FailUpdates makes profile submissions for id answer with status.
// A zero status clears the failure.
func (s *Server) FailUpdates(id, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failUpdates, id)
		return
	}
	s.failUpdates[id] = status
}

// ExpireSessions drops every session so the next request is sent to login.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}

func (s *Server) recordCall(c *gin.Context) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: c.Request.Method, Path: c.Request.URL.Path})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) requireSession(c *gin.Context) {
	id, err := c.Cookie(sessionCookie)
	s.mu.Lock()
	ok := err == nil && s.sessions[id]
	s.mu.Unlock()
	if !ok {
		c.Redirect(http.StatusFound, "/cabinet/login.php")
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) loginPage(c *gin.Context) {
	s.render(c, http.StatusOK, loginTmpl, map[string]any{"Failed": c.Query("error") != ""})
}

func (s *Server) login(c *gin.Context) {
	email := s.decode(c.PostForm("email"))
	password := s.decode(c.PostForm("password"))
	if email != s.opts.Email || password != s.opts.Password {
		c.Redirect(http.StatusSeeOther, "/cabinet/login.php?error=1")
		return
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = true
	s.mu.Unlock()
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/cabinet/authors.php")
}

type row struct {
	Name string
	Link string
}

func (s *Server) authorsPage(c *gin.Context) {
	filter := strings.ToLower(strings.TrimSpace(s.decode(c.Query("col1_filter"))))
	start := queryInt(c, "start", 0)
	length := queryInt(c, "length", s.opts.PageSize)
	if length <= 0 {
		length = s.opts.PageSize
	}

	s.mu.Lock()
	var matched []Author
	for _, a := range s.authors {
		if filter == "" || strings.HasPrefix(strings.ToLower(a.Name), filter) {
			matched = append(matched, a)
		}
	}
	s.mu.Unlock()

	start = min(max(start, 0), len(matched))
	end := min(start+length, len(matched))
	rows := make([]row, 0, end-start)
	for _, a := range matched[start:end] {
		rows = append(rows, row{Name: a.Name, Link: "author.php?id=" + strconv.Itoa(a.ID)})
	}
	nextClass := "paginate_button page-item next"
	if end >= len(matched) {
		nextClass += " disabled"
	}
	s.render(c, http.StatusOK, authorsTmpl, map[string]any{"Rows": rows, "NextClass": nextClass})
}

func (s *Server) profilePage(c *gin.Context) {
	a, token, ok := s.lookup(c)
	if !ok {
		c.String(http.StatusNotFound, "author not found")
		return
	}
	s.render(c, http.StatusOK, profileTmpl, map[string]any{"ID": a.ID, "Name": a.Name, "Token": token})
}

func (s *Server) updateProfile(c *gin.Context) {
	a, token, ok := s.lookup(c)
	if !ok {
		c.String(http.StatusNotFound, "author not found")
		return
	}
	if c.PostForm("token") != token {
		c.String(http.StatusForbidden, "bad form token")
		return
	}
	name := strings.TrimSpace(s.decode(c.PostForm("fio")))
	if name == "" {
		c.String(http.StatusBadRequest, "fio is required")
		return
	}

	s.mu.Lock()
	if status, fail := s.failUpdates[a.ID]; fail {
		s.mu.Unlock()
		c.String(status, "update failed")
		return
	}
	for i := range s.authors {
		if s.authors[i].ID == a.ID {
			s.authors[i].Name = name
		}
	}
	s.updates = append(s.updates, Update{ID: a.ID, Name: name})
	s.mu.Unlock()

	c.Redirect(http.StatusSeeOther, "/cabinet/author.php?id="+strconv.Itoa(a.ID))
}

func (s *Server) lookup(c *gin.Context) (Author, string, bool) {
	id, err := strconv.Atoi(c.Query("id"))
	if err != nil {
		return Author{}, "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.authors {
		if a.ID == id {
			return a, s.tokens[id], true
		}
	}
	return Author{}, "", false
}

func (s *Server) render(c *gin.Context, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		c.String(http.StatusInternalServerError, "render: %v", err)
		return
	}
	body, err := s.enc.NewEncoder().Bytes(buf.Bytes())
	if err != nil {
		c.String(http.StatusInternalServerError, "encode: %v", err)
		return
	}
	c.Data(status, fmt.Sprintf("text/html; charset=%s", s.charset), body)
}

// decode turns raw form bytes sent in the page charset into UTF-8.
func (s *Server) decode(v string) string {
	out, err := s.enc.NewDecoder().String(v)
	if err != nil {
		return v
	}
	return out
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
