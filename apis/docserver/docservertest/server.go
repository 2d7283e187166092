// Package docservertest provides an in-memory document server for tests.
package docservertest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/responses"
)

// PDF is what the export endpoint answers
var PDF = []byte("%PDF-1.4\n% docservertest\n%%EOF\n")

type Document struct {
	Title string
	File  []byte
}

// Server records every document, layer, annotation and attachment it receives.
type Server struct {
	*httptest.Server

	Token      string
	PageWidth  float64
	PageHeight float64

	// Fail, if set, can answer a request with the returned status code instead of handling it. 0 = handle
	Fail func(r *http.Request) int

	mu          sync.Mutex
	documents   map[string]Document
	layers      map[string]map[string]annotation.Content // "doc/layer" -> id -> content
	attachments map[string][]byte
	requests    []string
}

func NewServer(token string) *Server {
	s := &Server{
		Token:       token,
		PageWidth:   612,
		PageHeight:  792,
		documents:   make(map[string]Document),
		layers:      make(map[string]map[string]annotation.Content),
		attachments: make(map[string][]byte),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents", s.createDocument)
	mux.HandleFunc("GET /api/documents/{doc}/document_info", s.documentInfo)
	mux.HandleFunc("POST /api/documents/{doc}/layers", s.createLayer)
	mux.HandleFunc("POST /api/documents/{doc}/layers/{layer}/annotations", s.createAnnotation)
	mux.HandleFunc("GET /api/documents/{doc}/layers/{layer}/annotations/{id}", s.getAnnotation)
	mux.HandleFunc("PUT /api/documents/{doc}/layers/{layer}/annotations/{id}", s.putAnnotation)
	mux.HandleFunc("GET /api/documents/{doc}/layers/{layer}/pdf", s.exportPDF)
	s.Server = httptest.NewServer(s.wrap(mux))
	return s
}

// BaseURL is the API root to put in docserver.Conf.Host
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

func (s *Server) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		if r.Header.Get("Authorization") != "Token token="+s.Token {
			responses.WriteSimpleErrorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if s.Fail != nil {
			if code := s.Fail(r); code != 0 {
				responses.WriteSimpleErrorJSON(w, code, "injected failure")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter) {
	responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "not found")
}

func layerKey(doc, layer string) string { return doc + "/" + layer }

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.FormValue("document_id")
	file, _, err := r.FormFile("file")
	if err != nil || id == "" {
		responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, "document_id and file are required")
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[id]; exists {
		responses.WriteSimpleErrorJSON(w, http.StatusConflict, "document exists")
		return
	}
	s.documents[id] = Document{Title: r.FormValue("title"), File: data}
	responses.WriteData(w, map[string]any{"document_id": id})
}

func (s *Server) documentInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.documents[r.PathValue("doc")]
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	responses.WriteData(w, map[string]any{
		"pageCount": 1,
		"pages":     []map[string]any{{"pageIndex": 0, "width": s.PageWidth, "height": s.PageHeight}},
	})
}

func (s *Server) createLayer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string `json:"name"`
		SourceLayerName string `json:"source_layer_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, "name is required")
		return
	}
	doc := r.PathValue("doc")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc]; !ok {
		notFound(w)
		return
	}
	key := layerKey(doc, body.Name)
	if _, exists := s.layers[key]; exists {
		responses.WriteSimpleErrorJSON(w, http.StatusConflict, "layer exists")
		return
	}
	annotations := make(map[string]annotation.Content)
	if body.SourceLayerName != "" {
		src, ok := s.layers[layerKey(doc, body.SourceLayerName)]
		if !ok {
			responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "source layer not found")
			return
		}
		for id, c := range src {
			annotations[id] = c.Merge()
		}
	}
	s.layers[key] = annotations
	responses.WriteData(w, map[string]any{"name": body.Name})
}

func (s *Server) storeAnnotation(w http.ResponseWriter, r *http.Request, a annotation.Annotation) {
	key := layerKey(r.PathValue("doc"), r.PathValue("layer"))
	s.mu.Lock()
	defer s.mu.Unlock()
	layer, ok := s.layers[key]
	if !ok {
		notFound(w)
		return
	}
	if _, exists := layer[a.ID]; exists {
		responses.WriteSimpleErrorJSON(w, http.StatusConflict, "annotation exists")
		return
	}
	layer[a.ID] = a.Content
	responses.WriteData(w, map[string]any{"annotations": []map[string]any{{"id": a.ID}}})
}

func (s *Server) createAnnotation(w http.ResponseWriter, r *http.Request) {
	var a annotation.Annotation
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("annotation")), &a); err != nil {
			responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, _ := a.Content["imageAttachmentId"].(string)
		file, _, err := r.FormFile(hash)
		if err != nil {
			responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, "attachment missing")
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		s.mu.Lock()
		s.attachments[hash] = data
		s.mu.Unlock()
	} else if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.ID == "" || a.Content == nil {
		responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, "id and content are required")
		return
	}
	s.storeAnnotation(w, r, a)
}

func (s *Server) getAnnotation(w http.ResponseWriter, r *http.Request) {
	c, ok := s.Annotation(r.PathValue("doc"), r.PathValue("layer"), r.PathValue("id"))
	if !ok {
		notFound(w)
		return
	}
	responses.EncodeWriteJSON(w, http.StatusOK, annotation.Annotation{ID: r.PathValue("id"), Content: c})
}

func (s *Server) putAnnotation(w http.ResponseWriter, r *http.Request) {
	var a annotation.Annotation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	key := layerKey(r.PathValue("doc"), r.PathValue("layer"))
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	layer, ok := s.layers[key]
	if !ok {
		notFound(w)
		return
	}
	if _, exists := layer[id]; !exists {
		notFound(w)
		return
	}
	layer[id] = a.Content
	responses.WriteData(w, a)
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.layers[layerKey(r.PathValue("doc"), r.PathValue("layer"))]
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	if r.URL.Query().Get("flatten") != "true" {
		responses.WriteSimpleErrorJSON(w, http.StatusBadRequest, "expected flatten=true")
		return
	}
	responses.WritePDFBytesWithFilename(w, r.PathValue("layer")+".pdf", PDF)
}

// SeedDocument registers a document without an upload
func (s *Server) SeedDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[id] = Document{Title: id}
}

// SeedLayer creates a layer holding the given annotations
func (s *Server) SeedLayer(doc string, layer string, annotations ...annotation.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]annotation.Content, len(annotations))
	for _, a := range annotations {
		m[a.ID] = roundTrip(a.Content)
	}
	s.layers[layerKey(doc, layer)] = m
}

// roundTrip stores content the way it would arrive over the wire
func roundTrip(c annotation.Content) annotation.Content {
	raw, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("docservertest: %v", err))
	}
	var out annotation.Content
	if err = json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("docservertest: %v", err))
	}
	return out
}

func (s *Server) Document(id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	return d, ok
}

func (s *Server) HasLayer(doc, layer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.layers[layerKey(doc, layer)]
	return ok
}

func (s *Server) Annotation(doc, layer, id string) (annotation.Content, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.layers[layerKey(doc, layer)][id]
	return c, ok
}

// AnnotationIDs lists the annotation ids of a layer, sorted
func (s *Server) AnnotationIDs(doc, layer string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.layers[layerKey(doc, layer)]))
	for id := range s.layers[layerKey(doc, layer)] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) Attachment(hash string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.attachments[hash]
	return data, ok
}

// Requests lists "METHOD /path" of every request received, in arrival order
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}
