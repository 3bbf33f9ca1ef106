package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/multiformats/go-multiaddr"
	"github.com/rs/cors"

	sectioncid "github.com/sectionmesh/node/internal/cid"
	"github.com/sectionmesh/node/internal/store"
	"github.com/sectionmesh/node/pkg/types"
)

var (
	validate = validator.New()
	cidGen   = sectioncid.NewCIDGenerator()
)

// HTTPBridge exposes the transport host over HTTP so the node process (and
// external tooling) can publish and receive envelopes without linking
// directly against libp2p.
type HTTPBridge struct {
	host       *Host
	snapshots  store.SnapshotStore
	server     *http.Server
	listenAddr string
	logger     *Logger
}

// PublishRequest represents a message publish request
type PublishRequest struct {
	Topic string `json:"topic" validate:"required"`
	Data  []byte `json:"data" validate:"required"`
}

// PublishResponse represents a message publish response
type PublishResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NetworkStatusResponse represents network status information
type NetworkStatusResponse struct {
	Status         string                 `json:"status"`
	PeerID         string                 `json:"peer_id"`
	ConnectedPeers int                    `json:"connected_peers"`
	ListenAddrs    []string               `json:"listen_addrs"`
	Topics         []string               `json:"topics"`
	RateLimitStats map[string]interface{} `json:"rate_limit_stats"`
	CacheStats     map[string]interface{} `json:"cache_stats"`
}

// ProvidersResponse represents the response for provider queries
type ProvidersResponse struct {
	Providers []string `json:"providers"`
	Count     int      `json:"count"`
}

// NewHTTPBridge creates a new HTTP bridge over host. snapshots backs the
// /v1/snapshot/{key} routes used for PausedState hand-off; it may be nil,
// in which case those routes respond 503.
func NewHTTPBridge(host *Host, listenAddr string, snapshots store.SnapshotStore) *HTTPBridge {
	return &HTTPBridge{
		host:       host,
		snapshots:  snapshots,
		listenAddr: listenAddr,
		logger:     NewLogger("transport.HTTPBridge", LogLevelInfo),
	}
}

// Start starts the HTTP bridge server
func (b *HTTPBridge) Start(ctx context.Context) error {
	b.logger.Info("starting HTTP bridge", map[string]interface{}{"listen_addr": b.listenAddr})

	r := mux.NewRouter()

	r.HandleFunc("/v1/publish", b.handlePublish).Methods("POST")
	r.HandleFunc("/v1/blobs/{cid}", b.handleBlobs).Methods("GET")
	r.HandleFunc("/v1/subscribe", b.handleSubscribe).Methods("GET")
	r.HandleFunc("/v1/providers/{cid}", b.handleProviders).Methods("GET")
	r.HandleFunc("/v1/connect", b.handleConnect).Methods("POST")
	r.HandleFunc("/v1/status", b.handleStatus).Methods("GET")
	r.HandleFunc("/v1/snapshot/{key}", b.handleSaveSnapshot).Methods("PUT")
	r.HandleFunc("/v1/snapshot/{key}", b.handleLoadSnapshot).Methods("GET")
	r.HandleFunc("/v1/snapshot/{key}", b.handleDeleteSnapshot).Methods("DELETE")
	r.HandleFunc("/health", b.handleHealth).Methods("GET")

	r.Use(b.recoveryMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	handler := handlers.LoggingHandler(os.Stdout, corsHandler.Handler(r))

	b.server = &http.Server{
		Addr:         b.listenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		b.logger.Info("HTTP bridge listening", map[string]interface{}{"addr": b.listenAddr})
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			b.logger.Error("HTTP bridge server error", map[string]interface{}{"error": err})
		}
	}()

	return nil
}

// Stop stops the HTTP bridge server
func (b *HTTPBridge) Stop(ctx context.Context) error {
	if b.server != nil {
		b.logger.Info("stopping HTTP bridge")
		if err := b.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// recoveryMiddleware turns a panicking handler into a 500 response instead
// of taking down the whole bridge.
func (b *HTTPBridge) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				b.logger.Error("HTTP handler panic", map[string]interface{}{
					"panic": rec, "method": r.Method, "path": r.URL.Path,
				})
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handlePublish accepts a PublishRequest and gossips req.Data on req.Topic
// (a section/..., node/..., or blobs/... topic).
func (b *HTTPBridge) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "failed to decode request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if b.host.topics.GetTopicType(req.Topic) == "blob" {
		wantCid := req.Topic[len(TopicBlobPrefix):]
		derived, err := cidGen.GenerateFromBytes(req.Data)
		if err != nil || derived.String() != wantCid {
			http.Error(w, "topic CID does not match content hash", http.StatusBadRequest)
			return
		}
	}

	err := b.host.Publish(r.Context(), req.Topic, req.Data)

	response := PublishResponse{Success: err == nil}
	if err != nil {
		response.Error = err.Error()
		w.WriteHeader(http.StatusInternalServerError)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleBlobs serves blob content by CID from the local cache, falling back
// to provider discovery when it isn't cached locally.
func (b *HTTPBridge) handleBlobs(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["cid"]
	if path == "" {
		http.Error(w, "CID required", http.StatusBadRequest)
		return
	}

	if data, found := b.host.blobCache.Get(path); found {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
		return
	}

	c, err := cidGen.ParseCID(path)
	if err != nil {
		http.Error(w, "Invalid CID", http.StatusBadRequest)
		return
	}

	providers, err := b.host.FindProviders(r.Context(), c)
	if err != nil || len(providers) == 0 {
		http.Error(w, "Content not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"cid":       path,
		"providers": len(providers),
		"message":   "content discovered but not yet fetched locally",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleSubscribe subscribes the host to topic and streams confirmation and
// keepalive events back over SSE; the node event loop, not this stream, is
// responsible for dispatching the decoded envelopes that arrive.
func (b *HTTPBridge) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		http.Error(w, "topic parameter required", http.StatusBadRequest)
		return
	}

	if !b.host.topics.IsValidTopic(topic) {
		http.Error(w, "Invalid topic", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := b.host.Subscribe(r.Context(), topic); err != nil {
		http.Error(w, "Failed to subscribe", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "data: {\"type\":\"subscribed\",\"topic\":\"%s\"}\n\n", topic)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	select {
	case <-r.Context().Done():
		return
	case <-time.After(30 * time.Second):
		fmt.Fprintf(w, "data: {\"type\":\"keepalive\"}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// handleProviders handles provider queries
func (b *HTTPBridge) handleProviders(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["cid"]
	if path == "" {
		http.Error(w, "CID required", http.StatusBadRequest)
		return
	}

	c, err := cidGen.ParseCID(path)
	if err != nil {
		http.Error(w, "Invalid CID", http.StatusBadRequest)
		return
	}

	providers, err := b.host.FindProviders(r.Context(), c)
	if err != nil {
		response := ProvidersResponse{Providers: []string{}, Count: 0}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
		return
	}

	providerStrs := make([]string, len(providers))
	for i, p := range providers {
		providerStrs[i] = p.ID.String()
	}

	response := ProvidersResponse{Providers: providerStrs, Count: len(providerStrs)}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConnect handles peer connection requests
func (b *HTTPBridge) handleConnect(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("addr")
	if addr == "" {
		http.Error(w, "address parameter required", http.StatusBadRequest)
		return
	}

	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		http.Error(w, "Invalid multiaddress", http.StatusBadRequest)
		return
	}

	err = b.host.ConnectToPeer(r.Context(), ma)

	response := map[string]interface{}{"success": err == nil, "address": addr}
	if err != nil {
		response["error"] = err.Error()
		w.WriteHeader(http.StatusInternalServerError)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleStatus handles network status requests
func (b *HTTPBridge) handleStatus(w http.ResponseWriter, r *http.Request) {
	netInfo := b.host.GetNetworkInfo()

	cacheStats := map[string]interface{}{
		"blob_cache": b.host.blobCache.Stats(),
		"peer_cache": b.host.peerCache.Stats(),
	}

	response := NetworkStatusResponse{
		Status:     netInfo["status"].(string),
		CacheStats: cacheStats,
	}

	if stats, ok := netInfo["rate_limit_stats"].(map[string]interface{}); ok {
		response.RateLimitStats = stats
	}

	if status, ok := netInfo["status"].(string); ok && status == "running" {
		response.PeerID = netInfo["peer_id"].(string)
		response.ConnectedPeers = netInfo["connected_peers"].(int)

		b.host.subMutex.RLock()
		topics := make([]string, 0, len(b.host.subscriptions))
		for topic := range b.host.subscriptions {
			topics = append(topics, topic)
		}
		b.host.subMutex.RUnlock()
		response.Topics = topics
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleSaveSnapshot stores a PausedState snapshot under key. The bridge
// never interprets the body; it is opaque bytes handed down by the node
// event loop.
func (b *HTTPBridge) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if b.snapshots == nil {
		http.Error(w, "snapshot store not configured", http.StatusServiceUnavailable)
		return
	}
	key := mux.Vars(r)["key"]

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := b.snapshots.Save(r.Context(), key, body); err != nil {
		if err == store.ErrTooLarge {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadSnapshot returns the opaque snapshot bytes stored under key.
func (b *HTTPBridge) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	if b.snapshots == nil {
		http.Error(w, "snapshot store not configured", http.StatusServiceUnavailable)
		return
	}
	key := mux.Vars(r)["key"]

	data, err := b.snapshots.Load(r.Context(), key)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// handleDeleteSnapshot removes the snapshot stored under key.
func (b *HTTPBridge) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if b.snapshots == nil {
		http.Error(w, "snapshot store not configured", http.StatusServiceUnavailable)
		return
	}
	key := mux.Vars(r)["key"]

	if err := b.snapshots.Delete(r.Context(), key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles health check requests
func (b *HTTPBridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := types.ServiceHealth{
		Service:   "transport",
		Status:    "healthy",
		LastCheck: time.Now(),
	}

	if !b.host.started {
		health.Status = "unhealthy"
		health.Errors = []string{"transport host not started"}
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
