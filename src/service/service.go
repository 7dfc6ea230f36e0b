package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/openincident/beacon/src/common"
	"github.com/openincident/beacon/src/feed"
	"github.com/openincident/beacon/src/incident"
	"github.com/openincident/beacon/src/peers"
	"github.com/openincident/beacon/src/pull"
	"github.com/openincident/beacon/src/schema"
	"github.com/openincident/beacon/src/store"
	"github.com/openincident/beacon/src/validation"
	"github.com/sirupsen/logrus"
)

// Service exposes the beacon API over HTTP: the node's own publication feed,
// incident authoring and retrieval, the peer registry, pull triggering and
// history, and the schema documents.
type Service struct {
	sync.Mutex

	bindAddress string
	store       store.Store
	producer    *feed.Producer
	generator   *schema.Generator
	validator   *validation.Validator
	puller      *pull.Puller
	localDomain string
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService(
	bindAddress string,
	s store.Store,
	producer *feed.Producer,
	generator *schema.Generator,
	validator *validation.Validator,
	puller *pull.Puller,
	localDomain string,
	logger *logrus.Entry,
) *Service {
	service := Service{
		bindAddress: bindAddress,
		store:       s,
		producer:    producer,
		generator:   generator,
		validator:   validator,
		puller:      puller,
		localDomain: localDomain,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers with the service mux.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering beacon API handlers")
	s.mux.HandleFunc("/", s.makeHandler(s.GetActor))
	s.mux.HandleFunc("/outbox", s.makeHandler(s.GetOutbox))
	s.mux.HandleFunc("/incidents", s.makeHandler(s.Incidents))
	s.mux.HandleFunc("/incidents/", s.makeHandler(s.GetIncident))
	s.mux.HandleFunc("/peers", s.makeHandler(s.Peers))
	s.mux.HandleFunc("/peers/", s.makeHandler(s.PeerSubroutes))
	s.mux.HandleFunc("/schemas/", s.makeHandler(s.GetSchema))
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the service mux, for embedding in another server.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving beacon API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetActor returns the feed entry document of this node.
func (s *Service) GetActor(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, s.producer.Actor())
}

// GetOutbox returns one page of this node's outbox. The page query
// parameter defaults to 1.
func (s *Service) GetOutbox(w http.ResponseWriter, r *http.Request) {
	pageNum := 1
	if param := r.URL.Query().Get("page"); param != "" {
		n, err := strconv.Atoi(param)
		if err != nil {
			s.writeError(w, fmt.Errorf("parsing page parameter %q: %v", param, err), http.StatusBadRequest)
			return
		}
		pageNum = n
	}

	page, err := s.producer.Page(pageNum)
	if err != nil {
		s.writeError(w, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, page)
}

// Incidents lists incidents (GET) or authors a new local one (POST).
func (s *Service) Incidents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listIncidents(w, r)
	case http.MethodPost:
		s.createIncident(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) listIncidents(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	incidents, err := s.store.Incidents(offset, limit)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, incidents)
}

// createIncident is the authoring path: a non-conforming record is rejected
// outright, there is no partial acceptance.
func (s *Service) createIncident(w http.ResponseWriter, r *http.Request) {
	var doc incident.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeError(w, err, http.StatusBadRequest)
		return
	}

	if doc.ID() == "" {
		doc["@id"] = fmt.Sprintf("%s/incidents/%s", s.localDomain, uuid.New().String())
	}

	if err := s.validator.ValidateIncident(doc); err != nil {
		s.writeError(w, err, http.StatusBadRequest)
		return
	}

	inc := incident.New(doc, incident.SourceLocal)
	if err := s.store.SetIncident(inc); err != nil {
		if common.IsStore(err, common.KeyAlreadyExists) {
			s.writeError(w, err, http.StatusConflict)
			return
		}
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusCreated, inc)
}

// GetIncident returns a single incident. The URI is passed url-escaped in
// the path.
func (s *Service) GetIncident(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Path[len("/incidents/"):]

	uri, err := url.PathUnescape(param)
	if err != nil {
		s.writeError(w, err, http.StatusBadRequest)
		return
	}

	inc, err := s.store.GetIncident(uri)
	if err != nil {
		s.storeError(w, err)
		return
	}

	writeJSON(w, inc)
}

// Peers lists registered peers (GET) or registers a new one (POST).
func (s *Service) Peers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ps, err := s.store.Peers()
		if err != nil {
			s.writeError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, ps)
	case http.MethodPost:
		var peer peers.Peer
		if err := json.NewDecoder(r.Body).Decode(&peer); err != nil {
			s.writeError(w, err, http.StatusBadRequest)
			return
		}
		if peer.ID == "" {
			p := peers.NewPeer("", peer.BaseURL, peer.Outbox)
			p.Moniker = peer.Moniker
			peer = *p
		}
		if err := peer.Check(); err != nil {
			s.writeError(w, err, http.StatusBadRequest)
			return
		}
		if err := s.store.SetPeer(&peer); err != nil {
			s.writeError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSONStatus(w, http.StatusCreated, &peer)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// PeerSubroutes dispatches /peers/{id}, /peers/{id}/pull and
// /peers/{id}/pulls.
func (s *Service) PeerSubroutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path[len("/peers/"):], "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.peerByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "pull":
		s.triggerPull(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "pulls":
		s.peerPulls(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Service) peerByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		peer, err := s.store.GetPeer(id)
		if err != nil {
			s.storeError(w, err)
			return
		}
		writeJSON(w, peer)
	case http.MethodDelete:
		if err := s.store.DeletePeer(id); err != nil {
			s.storeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// triggerPull starts a pull against a peer and returns immediately. The run
// record is the durable account of the outcome.
func (s *Service) triggerPull(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// reject unknown peers synchronously; nothing to audit for them
	if _, err := s.store.GetPeer(id); err != nil {
		s.storeError(w, err)
		return
	}

	go func() {
		if _, err := s.puller.PullFromPeer(id); err != nil {
			s.logger.WithField("peer", id).WithError(err).Error("Pull")
		}
	}()

	writeJSONStatus(w, http.StatusAccepted, map[string]string{"peerId": id, "status": "started"})
}

func (s *Service) peerPulls(w http.ResponseWriter, r *http.Request, id string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := s.store.PeerPulls(id, limit)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, runs)
}

// GetSchema serves the generated schema artifacts:
//
//	/schemas/merged                      - the core+local composite schema
//	/schemas/{namespace}/{kind}[/{type}] - a single artifact
//
// A version query parameter other than v1 is a client error.
func (s *Service) GetSchema(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("version"); v != "" && v != schema.Version {
		s.writeError(w, &schema.UnsupportedVersionError{Requested: v}, http.StatusBadRequest)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path[len("/schemas/"):], "/"), "/")

	if len(parts) == 1 && parts[0] == "merged" {
		doc, err := s.generator.MergedSchema()
		if err != nil {
			s.schemaError(w, err)
			return
		}
		writeJSON(w, doc)
		return
	}

	if len(parts) < 2 || len(parts) > 3 {
		http.NotFound(w, r)
		return
	}

	namespace := parts[0]
	kind := schema.Kind(parts[1])
	typeName := ""
	if len(parts) == 3 {
		typeName = parts[2]
	}

	switch kind {
	case schema.Vocab, schema.Context, schema.Validation:
	default:
		http.NotFound(w, r)
		return
	}

	if r.URL.Query().Get("metadata") == "true" {
		meta, err := s.generator.Metadata(kind, namespace, typeName)
		if err != nil {
			s.schemaError(w, err)
			return
		}
		writeJSON(w, meta)
		return
	}

	doc, err := s.generator.Get(kind, namespace, typeName)
	if err != nil {
		s.schemaError(w, err)
		return
	}

	writeJSON(w, doc)
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	incidents, err := s.store.IncidentCount()
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	ps, err := s.store.Peers()
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	stats := map[string]interface{}{
		"incidents":   incidents,
		"peers":       len(ps),
		"namespace":   s.generator.Namespace(),
		"coreSchema":  s.generator.HasCoreSchema(),
		"localSchema": s.generator.HasLocalSchema(),
		"contexts":    s.validator.Contexts(),
	}

	writeJSON(w, stats)
}

func (s *Service) storeError(w http.ResponseWriter, err error) {
	if common.IsStore(err, common.KeyNotFound) {
		s.writeError(w, err, http.StatusNotFound)
		return
	}
	s.writeError(w, err, http.StatusInternalServerError)
}

func (s *Service) schemaError(w http.ResponseWriter, err error) {
	switch {
	case schema.IsNotFound(err):
		s.writeError(w, err, http.StatusNotFound)
	case schema.IsInvalid(err), schema.IsComposition(err):
		s.writeError(w, err, http.StatusInternalServerError)
	default:
		s.writeError(w, err, http.StatusInternalServerError)
	}
}

func (s *Service) writeError(w http.ResponseWriter, err error, code int) {
	s.logger.WithError(err).Debug("API error")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	json.NewEncoder(w).Encode(v)
}
