package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-members-gateway/users"
	"github.com/rs/zerolog"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

// Page template file names
const (
	pageIndex   = "index.html"
	pageLogin   = "login.html"
	pageSignup  = "signup.html"
	pageMembers = "members.html"
	pageAdmin   = "admin.html"
	pageMessage = "message.html"
)

var pageNames = []string{pageIndex, pageLogin, pageSignup, pageMembers, pageAdmin, pageMessage}

// pageTemplates maps a page file name to the layout parsed together with that page
type pageTemplates map[string]*template.Template

var templateFS = mustSub(templateFiles, "templates")

// ParseTemplate parses a page together with the shared layout from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(layoutTemplate).ParseFS(templateFS, layoutTemplate, name)
}

func parsePageTemplates() (pageTemplates, error) {
	pages := make(pageTemplates, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// PageData is the template model shared by every page
type PageData struct {
	AppName string
	Title   string

	// Set when the session carries a principal
	DisplayName string
	Email       string
	IsAdmin     bool

	Message  string
	RetryURL string
	Notice   string
	Image    string
	Users    []UserRow
	Total    int
}

// UserRow is one line of the admin listing
type UserRow struct {
	Email       string
	DisplayName string
	Role        string
	DateJoined  string
	IsAdmin     bool
	IsSelf      bool
}

func (s *Server) newPageData(r *http.Request, title string) PageData {
	data := PageData{AppName: s.appName, Title: title}
	if session := SessionFromContext(r.Context()); session.Authenticated() {
		data.DisplayName = session.Principal.DisplayName
		data.Email = session.Principal.Email
		data.IsAdmin = session.Principal.Role == users.RoleAdmin
	}
	return data
}

// render executes into a buffer first so a template failure never leaves a half-written page
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	tmpl, ok := s.pages[page]
	if !ok {
		zerolog.Ctx(r.Context()).Error().Str("page", page).Msg("unknown page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("template execution failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
