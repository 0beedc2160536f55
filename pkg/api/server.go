// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package api serves transformations and schema validation over HTTP.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/ninjalibrary"
	"carvel.dev/as3ninja/pkg/orderedmap"
	"carvel.dev/as3ninja/pkg/schema"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
)

const maxBodySize = 10 << 20

type GitDefaults struct {
	Timeout   time.Duration
	SSLVerify bool
	Proxy     string
}

type ServerOpts struct {
	ListenAddr string
	Schemas    *schema.Registry
	Libraries  ninjalibrary.Opts
	Git        GitDefaults
}

type Server struct {
	opts ServerOpts
}

func NewServer(opts ServerOpts) *Server {
	return &Server{opts}
}

// Handler returns the routes of the API wrapped with response compression.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/schema/latest_version", s.noCacheHandler(s.corsHandler(s.latestVersionHandler))).Methods(http.MethodGet)
	api.HandleFunc("/schema/schema", s.noCacheHandler(s.corsHandler(s.schemaHandler))).Methods(http.MethodGet)
	api.HandleFunc("/schema/schemas", s.noCacheHandler(s.corsHandler(s.schemasHandler))).Methods(http.MethodGet)
	api.HandleFunc("/schema/versions", s.noCacheHandler(s.corsHandler(s.versionsHandler))).Methods(http.MethodGet)
	// no need for caching as these are POSTs
	api.HandleFunc("/schema/validate", s.corsHandler(s.validateHandler)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/declaration/transform", s.corsHandler(s.transformHandler)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/declaration/transform/git", s.corsHandler(s.gitTransformHandler)).Methods(http.MethodPost, http.MethodOptions)

	router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/openapi.json", s.corsHandler(s.openAPIHandler)).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, newRequestError(http.StatusNotFound, fmt.Errorf("Not found: %s", r.URL.Path)))
	})

	return gzhttp.GzipHandler(router)
}

func (s *Server) Run() error {
	server := &http.Server{
		Addr:              s.opts.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	fmt.Printf("Listening on http://%s\n", server.Addr)
	return server.ListenAndServe()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.write(w, []byte("ok"))
}

// readJSON decodes the request body into canonical values (see deserialize.Normalize).
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, newRequestError(http.StatusBadRequest, fmt.Errorf("Reading request body: %w", err))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var val interface{}
	err = dec.Decode(&val)
	if err != nil {
		return nil, newRequestError(http.StatusBadRequest, fmt.Errorf("Decoding request body: %w", err))
	}
	return deserialize.Normalize(val), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, val interface{}) {
	data, err := orderedmap.Marshal(val)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	s.write(w, data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		log.Print(err.Error())
	}

	data, marshalErr := json.Marshal(map[string]string{"message": err.Error(), "error": kind})
	if marshalErr != nil {
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	s.write(w, data)
}

func (s *Server) write(w http.ResponseWriter, data []byte) {
	w.Write(data) // not fmt.Fprintf!
}

var (
	noCacheHeaders = map[string]string{
		"Expires":         time.Unix(0, 0).Format(time.RFC1123),
		"Cache-Control":   "no-cache, private, max-age=0",
		"Pragma":          "no-cache",
		"X-Accel-Expires": "0",
	}
)

func (s *Server) noCacheHandler(wrappedFunc func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		for k, v := range noCacheHeaders {
			w.Header().Set(k, v)
		}
		wrappedFunc(w, r)
	}
}

func (s *Server) corsHandler(wrappedFunc func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		wrappedFunc(w, r)
	}
}
