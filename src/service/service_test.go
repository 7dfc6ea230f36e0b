package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/openincident/beacon/src/common"
	"github.com/openincident/beacon/src/feed"
	"github.com/openincident/beacon/src/incident"
	"github.com/openincident/beacon/src/peers"
	"github.com/openincident/beacon/src/pull"
	"github.com/openincident/beacon/src/schema"
	"github.com/openincident/beacon/src/store"
	"github.com/openincident/beacon/src/validation"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCoreDomain  = "https://schemas.example.org"
	testLocalDomain = "http://node.example.org:8000"
	testNamespace   = "acme"
)

type testNode struct {
	service *Service
	server  *httptest.Server
	store   store.Store
	gen     *schema.Generator
}

func newTestNode(t *testing.T) *testNode {
	logger := common.NewTestEntry(t, logrus.DebugLevel)

	s := store.NewInmemStore()
	require.NoError(t, s.SetRawSchema(schema.CoreDefinition(testCoreDomain)))
	require.NoError(t, s.SetRawSchema(schema.DefaultLocalDefinition(testLocalDomain, testNamespace)))

	gen := schema.NewGenerator(s, testCoreDomain, testLocalDomain, testNamespace)

	validator := validation.NewValidator(logger)
	core, err := gen.CoreSchema()
	require.NoError(t, err)
	require.NoError(t, validator.RegisterSchema(gen.CoreContextURL(), core))
	merged, err := gen.MergedSchema()
	require.NoError(t, err)
	require.NoError(t, validator.RegisterSchema(gen.LocalContextURL(), merged))

	producer := feed.NewProducer(s, testLocalDomain, "node-zero", 2)
	puller := pull.NewPuller(s, pull.NewClient(time.Second, logger), validator, logger)

	service := NewService("127.0.0.1:0", s, producer, gen, validator, puller, testLocalDomain, logger)

	return &testNode{
		service: service,
		server:  httptest.NewServer(service.Handler()),
		store:   s,
		gen:     gen,
	}
}

func (n *testNode) close() {
	n.server.Close()
}

func (n *testNode) get(t *testing.T, path string, expectedCode int) map[string]interface{} {
	resp, err := http.Get(n.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, expectedCode, resp.StatusCode, "GET %s", path)

	body := map[string]interface{}{}
	json.NewDecoder(resp.Body).Decode(&body)
	return body
}

func (n *testNode) post(t *testing.T, path string, payload interface{}, expectedCode int) map[string]interface{} {
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(n.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, expectedCode, resp.StatusCode, "POST %s", path)

	body := map[string]interface{}{}
	json.NewDecoder(resp.Body).Decode(&body)
	return body
}

func validIncident(title string) map[string]interface{} {
	return map[string]interface{}{
		"@context": testCoreDomain + "/core/context/v1",
		"@type":    "Incident",
		"title":    title,
	}
}

func TestGetActor(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	body := node.get(t, "/", http.StatusOK)
	assert.Equal(t, "Service", body["type"])
	assert.Equal(t, testLocalDomain+"/outbox", body["outbox"])
	assert.Equal(t, "node-zero", body["preferredUsername"])

	node.get(t, "/unknown-path", http.StatusNotFound)
}

func TestOutbox(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	for i := 0; i < 3; i++ {
		node.post(t, "/incidents", validIncident(fmt.Sprintf("incident %d", i)), http.StatusCreated)
	}

	body := node.get(t, "/outbox", http.StatusOK)
	assert.Equal(t, "OrderedCollectionPage", body["type"])
	assert.Len(t, body["orderedItems"], 2)
	assert.Equal(t, testLocalDomain+"/outbox?page=2", body["next"])

	body = node.get(t, "/outbox?page=2", http.StatusOK)
	assert.Len(t, body["orderedItems"], 1)
	assert.Empty(t, body["next"])

	node.get(t, "/outbox?page=abc", http.StatusBadRequest)
	node.get(t, "/outbox?page=0", http.StatusBadRequest)
}

func TestCreateIncident(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	body := node.post(t, "/incidents", validIncident("Power outage in sector 7"), http.StatusCreated)

	uri, ok := body["URI"].(string)
	require.True(t, ok, "created incident should carry its assigned URI: %v", body)
	assert.Contains(t, uri, testLocalDomain+"/incidents/")

	stored, err := node.store.GetIncident(uri)
	require.NoError(t, err)
	assert.Equal(t, incident.SourceLocal, stored.SourceNode)

	// explicit @id: first write wins, a duplicate is a conflict
	doc := validIncident("Named incident")
	doc["@id"] = testLocalDomain + "/incidents/named"
	node.post(t, "/incidents", doc, http.StatusCreated)
	node.post(t, "/incidents", doc, http.StatusConflict)

	// non-conforming documents are rejected outright
	bad := validIncident("")
	delete(bad, "title")
	node.post(t, "/incidents", bad, http.StatusBadRequest)

	unknownCtx := validIncident("Foreign")
	unknownCtx["@context"] = "http://stranger.example.org/context/v1"
	node.post(t, "/incidents", unknownCtx, http.StatusBadRequest)
}

func TestGetIncident(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	doc := validIncident("Named incident")
	doc["@id"] = testLocalDomain + "/incidents/named"
	node.post(t, "/incidents", doc, http.StatusCreated)

	escaped := url.PathEscape(testLocalDomain + "/incidents/named")
	body := node.get(t, "/incidents/"+escaped, http.StatusOK)
	assert.Equal(t, testLocalDomain+"/incidents/named", body["URI"])

	node.get(t, "/incidents/"+url.PathEscape("http://nope.example.org/incidents/1"), http.StatusNotFound)
}

func TestListIncidents(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	resp, err := http.Get(node.server.URL + "/incidents")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)

	node.post(t, "/incidents", validIncident("An incident"), http.StatusCreated)

	resp, err = http.Get(node.server.URL + "/incidents")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)
}

func TestPeerRegistry(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	body := node.post(t, "/peers", map[string]string{
		"baseUrl": "http://alpha.example.org:8000",
		"outbox":  "/outbox",
	}, http.StatusCreated)
	assert.Equal(t, "alpha.example.org:8000", body["id"])

	node.post(t, "/peers", map[string]string{"outbox": "/outbox"}, http.StatusBadRequest)

	body = node.get(t, "/peers/alpha.example.org:8000", http.StatusOK)
	assert.Equal(t, "http://alpha.example.org:8000", body["baseUrl"])

	node.get(t, "/peers/stranger", http.StatusNotFound)

	req, err := http.NewRequest(http.MethodDelete, node.server.URL+"/peers/alpha.example.org:8000", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	node.get(t, "/peers/alpha.example.org:8000", http.StatusNotFound)
}

func TestTriggerPull(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	// a remote peer with an empty outbox
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(feed.OrderedCollectionPage{
			Type:         "OrderedCollectionPage",
			OrderedItems: []feed.Activity{},
		})
	}))
	defer remote.Close()

	require.NoError(t, node.store.SetPeer(peers.NewPeer("remote", remote.URL, "/outbox")))

	node.post(t, "/peers/stranger/pull", nil, http.StatusNotFound)

	body := node.post(t, "/peers/remote/pull", nil, http.StatusAccepted)
	assert.Equal(t, "remote", body["peerId"])
	assert.Equal(t, "started", body["status"])

	// the pull runs in the background; wait for its record
	deadline := time.Now().Add(2 * time.Second)
	var runs []*pull.Run
	for time.Now().Before(deadline) {
		var err error
		runs, err = node.store.PeerPulls("remote", 0)
		require.NoError(t, err)
		if len(runs) > 0 && runs[0].Status != pull.Running {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, runs, 1)
	assert.Equal(t, pull.Succeeded, runs[0].Status)

	body = node.get(t, "/peers/remote/pulls", http.StatusOK)
	_ = body // the list endpoint returns an array; status already checked
}

func TestPeerPullHistory(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	require.NoError(t, node.store.SetPull(&pull.Run{
		ID:        "run-1",
		PeerID:    "alpha",
		StartedAt: time.Now(),
		Status:    pull.Succeeded,
		Fetched:   3,
		Ingested:  3,
	}))

	resp, err := http.Get(node.server.URL + "/peers/alpha/pulls")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0]["id"])
	assert.Equal(t, "succeeded", runs[0]["status"])
}

func TestGetSchema(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	body := node.get(t, "/schemas/core/validation", http.StatusOK)
	assert.Equal(t, "object", body["type"])

	body = node.get(t, "/schemas/acme/context", http.StatusOK)
	assert.Equal(t, node.gen.LocalContextURL(), body["@id"])

	body = node.get(t, "/schemas/acme/validation/report", http.StatusOK)
	assert.Contains(t, body["properties"], "content")

	body = node.get(t, "/schemas/merged", http.StatusOK)
	props := body["properties"].(map[string]interface{})
	assert.Contains(t, props, "title")
	assert.Contains(t, props, "impact")

	body = node.get(t, "/schemas/core/validation?metadata=true", http.StatusOK)
	assert.Equal(t, "validation", body["kind"])
	assert.Equal(t, "v1", body["version"])

	node.get(t, "/schemas/core/validation?version=v2", http.StatusBadRequest)
	node.get(t, "/schemas/stranger/validation", http.StatusNotFound)
	node.get(t, "/schemas/core/nonsense", http.StatusNotFound)
	node.get(t, "/schemas/core", http.StatusNotFound)
}

func TestGetStats(t *testing.T) {
	node := newTestNode(t)
	defer node.close()

	node.post(t, "/incidents", validIncident("An incident"), http.StatusCreated)

	body := node.get(t, "/stats", http.StatusOK)
	assert.Equal(t, float64(1), body["incidents"])
	assert.Equal(t, float64(0), body["peers"])
	assert.Equal(t, testNamespace, body["namespace"])
	assert.Equal(t, true, body["coreSchema"])
	assert.Equal(t, true, body["localSchema"])
	assert.Len(t, body["contexts"], 2)
}
