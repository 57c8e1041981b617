// Package notiontest provides an in-memory stand-in for the Notion API
// covering the pages, blocks and search endpoints used by package notion.
package notiontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// DefaultPageSize is the maximum number of children returned per listing.
const DefaultPageSize = 100

// listResponseVersion is the first Notion-Version whose append response is
// the list of created children.
const listResponseVersion = "2022-02-22"

// Request records one call received by the server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

// Server is an httptest server emulating a small Notion workspace.
type Server struct {
	srv   *httptest.Server
	token string

	mu       sync.Mutex
	titles   map[string]string
	blocks   map[string]map[string]any
	children map[string][]string
	parents  map[string]string
	requests []Request
	nextID   int
}

// NewServer starts a server accepting the given bearer token.
func NewServer(token string) *Server {
	s := &Server{
		token:    token,
		titles:   make(map[string]string),
		blocks:   make(map[string]map[string]any),
		children: make(map[string][]string),
		parents:  make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/pages/{id}", s.handleGetPage)
	mux.HandleFunc("GET /v1/blocks/{id}", s.handleGetBlock)
	mux.HandleFunc("GET /v1/blocks/{id}/children", s.handleGetChildren)
	mux.HandleFunc("PATCH /v1/blocks/{id}", s.handleUpdateBlock)
	mux.HandleFunc("PATCH /v1/blocks/{id}/children", s.handleAppendChildren)
	mux.HandleFunc("DELETE /v1/blocks/{id}", s.handleDeleteBlock)

	s.srv = httptest.NewServer(s.authenticate(mux))
	return s
}

// BaseURL is the API root to hand to notion.WithBaseURL.
func (s *Server) BaseURL() string { return s.srv.URL + "/v1" }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// AddPage registers a page (which is also a child_page block) and returns its id.
func (s *Server) AddPage(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.titles[id] = title
	s.blocks[id] = map[string]any{
		"object":       "block",
		"id":           id,
		"type":         "child_page",
		"child_page":   map[string]any{"title": title},
		"has_children": false,
		"archived":     false,
	}
	return id
}

// AddBlock stores block under parentID and returns the assigned id.
func (s *Server) AddBlock(parentID string, block map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(parentID, clone(block))
}

// Block returns a copy of the stored block.
func (s *Server) Block(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, false
	}
	return clone(b), true
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many calls used method.
func (s *Server) Count(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
			return
		}
		if r.Header.Get("Notion-Version") == "" {
			writeError(w, http.StatusBadRequest, "missing_version", "Notion-Version header failed validation.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("query"))

	s.mu.Lock()
	results := make([]any, 0, len(s.titles))
	for id, title := range s.titles {
		if query != "" && !strings.Contains(strings.ToLower(title), query) {
			continue
		}
		results = append(results, pageObject(id, title))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, listObject(results))
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	title, ok := s.titles[id]
	s.mu.Unlock()
	if !ok {
		writeNotFound(w, "page", id)
		return
	}
	writeJSON(w, http.StatusOK, pageObject(id, title))
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, ok := s.Block(id)
	if !ok {
		writeNotFound(w, "block", id)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleGetChildren(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pageSize := DefaultPageSize
	if n, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && n > 0 && n < DefaultPageSize {
		pageSize = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		writeNotFound(w, "block", id)
		return
	}

	ids := s.children[id]
	if cursor := r.URL.Query().Get("start_cursor"); cursor != "" {
		start := len(ids)
		for i, childID := range ids {
			if childID == cursor {
				start = i
				break
			}
		}
		ids = ids[start:]
	}

	var next any
	if len(ids) > pageSize {
		next = ids[pageSize]
		ids = ids[:pageSize]
	}
	results := make([]any, 0, len(ids))
	for _, childID := range ids {
		results = append(results, clone(s.blocks[childID]))
	}
	list := listObject(results)
	list["next_cursor"] = next
	list["has_more"] = next != nil
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Error parsing JSON body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.blocks[id]
	if !ok {
		writeNotFound(w, "block", id)
		return
	}
	typ, _ := stored["type"].(string)
	if content, ok := body[typ]; ok {
		stored[typ] = content
	}
	if archived, ok := body["archived"].(bool); ok {
		stored["archived"] = archived
	}
	writeJSON(w, http.StatusOK, clone(stored))
}

func (s *Server) handleAppendChildren(w http.ResponseWriter, r *http.Request) {
	parentID := r.PathValue("id")

	var body struct {
		Children []map[string]any `json:"children"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Error parsing JSON body.")
		return
	}
	for i, child := range body.Children {
		if typ, _ := child["type"].(string); typ == "" {
			writeError(w, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("body failed validation: body.children[%d].type should be defined.", i))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[parentID]; !ok {
		writeNotFound(w, "block", parentID)
		return
	}
	created := make([]any, 0, len(body.Children))
	for _, child := range body.Children {
		delete(child, "id")
		childID := s.insertLocked(parentID, child)
		created = append(created, clone(s.blocks[childID]))
	}

	// Newer API versions answer with the list of created children, older
	// ones with the parent block.
	if r.Header.Get("Notion-Version") >= listResponseVersion {
		writeJSON(w, http.StatusOK, listObject(created))
		return
	}
	writeJSON(w, http.StatusOK, clone(s.blocks[parentID]))
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		writeNotFound(w, "block", id)
		return
	}
	b["archived"] = true

	if parentID, ok := s.parents[id]; ok {
		siblings := s.children[parentID]
		kept := siblings[:0]
		for _, sib := range siblings {
			if sib != id {
				kept = append(kept, sib)
			}
		}
		s.children[parentID] = kept
		if parent, ok := s.blocks[parentID]; ok && len(kept) == 0 {
			parent["has_children"] = false
		}
		delete(s.parents, id)
	}
	delete(s.blocks, id)
	writeJSON(w, http.StatusOK, clone(b))
}

func (s *Server) insertLocked(parentID string, block map[string]any) string {
	id, _ := block["id"].(string)
	if id == "" {
		id = s.newID()
	}
	block["object"] = "block"
	block["id"] = id
	block["has_children"] = false
	block["archived"] = false
	s.blocks[id] = block

	if parentID != "" {
		block["parent"] = map[string]any{"type": "block_id", "block_id": parentID}
		s.children[parentID] = append(s.children[parentID], id)
		s.parents[id] = parentID
		if parent, ok := s.blocks[parentID]; ok {
			parent["has_children"] = true
		}
	}
	return id
}

func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", s.nextID, s.nextID)
}

func pageObject(id, title string) map[string]any {
	return map[string]any{
		"object": "page",
		"id":     id,
		"properties": map[string]any{
			"title": map[string]any{
				"type":  "title",
				"title": []any{map[string]any{"plain_text": title}},
			},
		},
	}
}

func listObject(results []any) map[string]any {
	return map[string]any{
		"object":      "list",
		"results":     results,
		"next_cursor": nil,
		"has_more":    false,
	}
}

func writeNotFound(w http.ResponseWriter, kind, id string) {
	writeError(w, http.StatusNotFound, "object_not_found", fmt.Sprintf("Could not find %s with ID: %s.", kind, id))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func clone(m map[string]any) map[string]any {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
