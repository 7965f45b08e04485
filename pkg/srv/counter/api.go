/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// go-counter API
//
// Diagnostic RESTful API of the go-counter server. The same document is
// served at /swagger.json and rendered at /docs.
package counter

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-counter/pkg/config"
	counterpkg "jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/dispatch"
	"jinr.ru/greenlab/go-counter/pkg/layers"
	"jinr.ru/greenlab/go-counter/pkg/log"
	"jinr.ru/greenlab/go-counter/pkg/srv"
)

const (
	ShutdownTimeout = 5 * time.Second
)

//go:embed swagger.json
var swaggerJSON []byte

// StateResp ...
type StateResp struct {
	State string `json:"state"`
	Mode  string `json:"mode"`
}

// Info ...
type Info struct {
	DNA         string `json:"dna"`
	Clock       uint32 `json:"clock"`
	Channels    int    `json:"channels"`
	MaxBins     int    `json:"max_bins"`
	Connections int    `json:"connections"`
}

// CountsResp ...
type CountsResp struct {
	Counts []float64 `json:"counts"`
}

// RegHex ...
type RegHex struct {
	Offset string `json:"offset"` // hexadecimal
	Value  string `json:"value"`  // hexadecimal
}

// CommandRequest ...
type CommandRequest struct {
	Line string `json:"line"`
}

// CommandResult carries the protocol response line without delimiter
type CommandResult struct {
	Response string `json:"response"`
	Error    bool   `json:"error"`
}

// HistoryReader is implemented by History
type HistoryReader interface {
	Records(limit int) ([]*Record, error)
}

type ApiServer struct {
	*config.ApiConfig
	*mux.Router
	engine      *counterpkg.Engine
	dispatcher  Dispatcher
	history     HistoryReader
	connections func() int
	doc         *loads.Document
}

// ApiOption ...
type ApiOption func(*ApiServer)

// WithHistory serves /api/history from h
func WithHistory(h HistoryReader) ApiOption {
	return func(s *ApiServer) {
		s.history = h
	}
}

// WithConnections reports the number of protocol connections in /api/info
func WithConnections(count func() int) ApiOption {
	return func(s *ApiServer) {
		s.connections = count
	}
}

// NewApiServer ...
func NewApiServer(cfg *config.ApiConfig, engine *counterpkg.Engine, dispatcher Dispatcher, opts ...ApiOption) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.Address, cfg.Port)

	doc, err := loads.Analyzed(json.RawMessage(swaggerJSON), "")
	if err != nil {
		return nil, fmt.Errorf("Invalid API document: %w", err)
	}

	s := &ApiServer{
		ApiConfig:  cfg,
		engine:     engine,
		dispatcher: dispatcher,
		doc:        doc,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.configureRouter()
	return s, nil
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("API handler panic: %s", fmt.Sprint(v...))
}

// Handler wraps the router with access logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	recovery := gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(recoveryLogger{}),
		gorillahandlers.PrintRecoveryStack(true),
	)
	return gorillahandlers.LoggingHandler(log.Writer(), recovery(s.Router))
}

// Run serves the API until ctx is done
func (s *ApiServer) Run(ctx context.Context) error {
	addr := srv.Endpoint(s.Address, s.Port)
	log.Info("Starting API server: %s", addr)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    addr,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		log.Info("Stopping API server")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix(s.doc.BasePath()).Subrouter()
	subRouter.HandleFunc("/state", s.handleState()).Methods("GET")
	subRouter.HandleFunc("/info", s.handleInfo()).Methods("GET")
	subRouter.HandleFunc("/settings", s.handleSettings()).Methods("GET")
	subRouter.HandleFunc("/counts", s.handleCounts()).Methods("GET")
	subRouter.HandleFunc("/reg/{offset:0x[0-9a-fA-F]+}", s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/command", s.handleCommand()).Methods("POST")
	subRouter.HandleFunc("/history", s.handleHistory()).Methods("GET")
	s.Router.HandleFunc("/swagger.json", s.handleSwagger()).Methods("GET")
	s.Router.Handle("/docs", middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     "docs",
		SpecURL:  "/swagger.json",
		Title:    s.doc.Spec().Info.Title,
	}, http.NotFoundHandler())).Methods("GET")
}

func (s *ApiServer) handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.engine.GetState()
		if err != nil {
			srv.WriteError(w, err, http.StatusBadGateway)
			return
		}
		srv.WriteJSON(w, &StateResp{
			State: state.String(),
			Mode:  state.Family().String(),
		})
	}
}

func (s *ApiServer) handleInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dna, err := s.engine.GetDNA()
		if err != nil {
			srv.WriteError(w, err, http.StatusBadGateway)
			return
		}
		clock, err := s.engine.GetClock()
		if err != nil {
			srv.WriteError(w, err, http.StatusBadGateway)
			return
		}
		info := &Info{
			DNA:      fmt.Sprintf("0x%08x", dna),
			Clock:    clock,
			Channels: counterpkg.NumChannels,
			MaxBins:  counterpkg.MaxBins,
		}
		if s.connections != nil {
			info.Connections = s.connections()
		}
		srv.WriteJSON(w, info)
	}
}

func (s *ApiServer) handleSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := s.engine.GetSettings()
		if err != nil {
			srv.WriteError(w, err, http.StatusBadGateway)
			return
		}
		srv.WriteJSON(w, &settings)
	}
}

func (s *ApiServer) handleCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.engine.GetCounts()
		if err != nil {
			srv.WriteError(w, err, http.StatusBadGateway)
			return
		}
		srv.WriteJSON(w, &CountsResp{Counts: counts[:]})
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: offset: %s", vars["offset"])

		offset, err := strconv.ParseUint(vars["offset"], 0, 32)
		if err != nil {
			srv.WriteError(w, err, http.StatusBadRequest)
			return
		}
		value, err := s.engine.ReadMemory(uint32(offset))
		if err != nil {
			srv.WriteError(w, err, http.StatusBadRequest)
			return
		}
		srv.WriteJSON(w, &RegHex{
			Offset: fmt.Sprintf("0x%x", offset),
			Value:  fmt.Sprintf("0x%08x", value),
		})
	}
}

func (s *ApiServer) handleCommand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &CommandRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			srv.WriteError(w, err, http.StatusBadRequest)
			return
		}
		cmd, err := layers.ParseCommand([]byte(req.Line))
		if err != nil {
			srv.WriteError(w, err, http.StatusBadRequest)
			return
		}
		if cmd.Name == "" {
			srv.WriteError(w, srv.ErrBadRequest{What: "empty command"}, http.StatusBadRequest)
			return
		}
		log.Debug("Handling command request: %s", cmd.Line())
		resp := s.dispatcher.Dispatch(r.Context(), dispatch.Request{Name: cmd.Name, Args: cmd.Args})
		srv.WriteJSON(w, &CommandResult{
			Response: resp.String(),
			Error:    resp.Err != nil,
		})
	}
}

func (s *ApiServer) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			srv.WriteError(w, srv.ErrBadRequest{What: "history is disabled"}, http.StatusNotFound)
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				srv.WriteError(w, srv.ErrBadRequest{What: fmt.Sprintf("invalid limit '%s'", v)}, http.StatusBadRequest)
				return
			}
			limit = n
		}
		records, err := s.history.Records(limit)
		if err != nil {
			srv.WriteError(w, err, http.StatusInternalServerError)
			return
		}
		srv.WriteJSON(w, records)
	}
}

func (s *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(swaggerJSON)
	}
}
