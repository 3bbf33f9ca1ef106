package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/pkg/interfaces"
)

// Host implements interfaces.TransportService.
var _ interfaces.TransportService = (*Host)(nil)

// maxEventsBuffered bounds the transport-facing event channel. A node event
// loop that falls behind stalls producers rather than growing unbounded.
const maxEventsBuffered = 1024

// Event is the closed set of transport-facing events the node event loop
// consumes (spec.md §6).
type Event interface {
	isTransportEvent()
}

// ConnectedTo reports a new libp2p connection to peer.
type ConnectedTo struct{ Peer peer.ID }

func (ConnectedTo) isTransportEvent() {}

// ConnectionFailure reports a failed dial to addr.
type ConnectionFailure struct {
	Addr multiaddr.Multiaddr
	Err  error
}

func (ConnectionFailure) isTransportEvent() {}

// NewMessage carries envelope bytes received from a peer on a gossip topic.
type NewMessage struct {
	From  peer.ID
	Topic string
	Data  []byte
}

func (NewMessage) isTransportEvent() {}

// UnsentUserMessage reports that outbound envelope bytes to peer could not
// be delivered (the topic publish failed after the gossipsub mesh accepted
// it, or the destination peer is currently unreachable).
type UnsentUserMessage struct {
	Peer peer.ID
	Data []byte
}

func (UnsentUserMessage) isTransportEvent() {}

// BootstrappedTo reports a successful bootstrap connection.
type BootstrappedTo struct{ Peer peer.ID }

func (BootstrappedTo) isTransportEvent() {}

// BootstrapFailure reports that no bootstrap peer could be reached.
type BootstrapFailure struct{ Err error }

func (BootstrapFailure) isTransportEvent() {}

// Host manages the libp2p host and associated gossip/DHT services for one
// node, translating gossipsub activity into the Event stream the node event
// loop consumes.
type Host struct {
	config *Config
	logger *Logger
	self   crypto.Name

	// Core libp2p components
	host   host.Host
	dht    *dht.IpfsDHT
	pubsub *pubsub.PubSub

	// Topic management
	topics        *TopicManager
	subscriptions map[string]*pubsub.Subscription
	sectionTopic  string
	subMutex      sync.RWMutex

	// Rate limiting and anti-abuse
	rateLimiter *RateLimiter

	// Caches
	blobCache *LRUCache
	peerCache *LRUCache

	// Transport-facing events for the node event loop
	events chan Event

	// State management
	started bool
	mutex   sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewHost creates a new transport host for the node identified by self.
func NewHost(config *Config, self crypto.Name) *Host {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := NewLogger("transport.Host", LogLevelInfo)

	return &Host{
		config:        config,
		logger:        logger,
		self:          self,
		topics:        NewTopicManager(),
		subscriptions: make(map[string]*pubsub.Subscription),
		rateLimiter:   NewRateLimiter(&config.RateLimit, &config.AntiAbuse),
		blobCache:     NewLRUCache(config.CacheConfig.BlobCacheSize, config.CacheConfig.BlobCacheTTL),
		peerCache:     NewLRUCache(config.CacheConfig.PeerCacheSize, config.CacheConfig.PeerCacheTTL),
		events:        make(chan Event, maxEventsBuffered),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Events returns the channel of transport-facing events. The node event
// loop is the only intended reader.
func (h *Host) Events() <-chan Event { return h.events }

func (h *Host) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event channel full, dropping event", map[string]interface{}{
			"type": fmt.Sprintf("%T", ev),
		})
	}
}

// Start initializes and starts the transport host, subscribing to the
// node's own topic and the root section topic.
func (h *Host) Start(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.started {
		return ErrNodeAlreadyStarted
	}

	h.logger.Info("starting transport host", map[string]interface{}{
		"listen_addrs": len(h.config.ListenAddrs),
		"dht_mode":     h.config.DHTConfig.Mode,
	})

	opts := []libp2p.Option{
		libp2p.ListenAddrs(h.config.ListenAddrs...),
		libp2p.EnableNATService(),
		libp2p.EnableRelay(),
	}

	lh, err := libp2p.New(opts...)
	if err != nil {
		h.logger.Error("failed to create libp2p host", map[string]interface{}{"error": err})
		return NewTransportError("create_host", err)
	}
	h.host = lh

	h.logger.Info("libp2p host created", map[string]interface{}{
		"peer_id":      lh.ID().String(),
		"listen_addrs": len(lh.Addrs()),
	})

	if err := h.initDHT(ctx); err != nil {
		h.logger.Error("failed to initialize DHT", map[string]interface{}{"error": err})
		lh.Close()
		return NewTransportError("init_dht", err)
	}

	if err := h.initPubSub(ctx); err != nil {
		h.logger.Error("failed to initialize pubsub", map[string]interface{}{"error": err})
		lh.Close()
		return NewTransportError("init_pubsub", err)
	}

	if err := h.bootstrap(ctx); err != nil {
		h.logger.Warn("bootstrap incomplete", map[string]interface{}{"error": err})
		h.emit(BootstrapFailure{Err: err})
	}

	h.started = true

	if err := h.Subscribe(ctx, NodeTopic(h.self)); err != nil {
		h.logger.Error("failed to subscribe to node topic", map[string]interface{}{"error": err})
		lh.Close()
		h.started = false
		return NewTransportError("subscribe_topics", err)
	}
	if err := h.resubscribeSectionLocked(ctx, authority.EmptyPrefix()); err != nil {
		h.logger.Error("failed to subscribe to section topic", map[string]interface{}{"error": err})
		lh.Close()
		h.started = false
		return NewTransportError("subscribe_topics", err)
	}

	h.logger.Info("transport host started", map[string]interface{}{
		"peer_id":           h.host.ID().String(),
		"listen_addrs":      len(h.host.Addrs()),
		"subscribed_topics": len(h.subscriptions),
	})
	return nil
}

// Stop shuts down the transport host.
func (h *Host) Stop(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.started {
		return ErrNodeNotStarted
	}

	h.logger.Info("stopping transport host", map[string]interface{}{
		"peer_id":       h.host.ID().String(),
		"subscriptions": len(h.subscriptions),
	})

	h.subMutex.Lock()
	for topic, sub := range h.subscriptions {
		h.logger.Debug("closing subscription", map[string]interface{}{"topic": topic})
		sub.Cancel()
		delete(h.subscriptions, topic)
	}
	h.subMutex.Unlock()

	if h.rateLimiter != nil {
		h.rateLimiter.Close()
	}

	if h.dht != nil {
		if err := h.dht.Close(); err != nil {
			h.logger.Warn("error closing DHT", map[string]interface{}{"error": err})
		}
	}

	if h.host != nil {
		if err := h.host.Close(); err != nil {
			h.logger.Warn("error closing host", map[string]interface{}{"error": err})
		}
	}

	h.cancel()
	h.started = false
	h.logger.Info("transport host stopped")
	return nil
}

func (h *Host) initDHT(ctx context.Context) error {
	var mode dht.ModeOpt
	switch h.config.DHTConfig.Mode {
	case "client":
		mode = dht.ModeClient
	case "server":
		mode = dht.ModeServer
	default:
		mode = dht.ModeAuto
	}

	kadDHT, err := dht.New(ctx, h.host,
		dht.Mode(mode),
		dht.ProtocolPrefix(protocol.ID(h.config.DHTConfig.ProtocolPrefix)),
	)
	if err != nil {
		return err
	}

	h.dht = kadDHT
	return nil
}

func (h *Host) initPubSub(ctx context.Context) error {
	opts := []pubsub.Option{
		pubsub.WithFloodPublish(false),
		pubsub.WithMessageSigning(true),
	}

	ps, err := pubsub.NewGossipSub(ctx, h.host, opts...)
	if err != nil {
		return err
	}

	h.pubsub = ps
	return nil
}

func (h *Host) bootstrap(ctx context.Context) error {
	if len(h.config.BootstrapPeers) == 0 {
		return nil
	}

	var connected bool
	for _, addr := range h.config.BootstrapPeers {
		pi, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			continue
		}

		connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = h.host.Connect(connCtx, *pi)
		cancel()
		if err != nil {
			h.emit(ConnectionFailure{Addr: addr, Err: err})
			continue
		}
		connected = true
		h.emit(BootstrappedTo{Peer: pi.ID})
	}

	if !connected {
		return fmt.Errorf("no bootstrap peer reachable")
	}

	return h.dht.Bootstrap(ctx)
}

// Resubscribe moves the host's section subscription to prefix, e.g. after a
// section split or merge changes the node's own section.
func (h *Host) Resubscribe(ctx context.Context, prefix authority.Prefix) error {
	h.subMutex.Lock()
	defer h.subMutex.Unlock()
	return h.resubscribeSectionLocked(ctx, prefix)
}

func (h *Host) resubscribeSectionLocked(ctx context.Context, prefix authority.Prefix) error {
	newTopic := SectionTopic(prefix)
	if newTopic == h.sectionTopic {
		return nil
	}
	if sub, ok := h.subscriptions[h.sectionTopic]; ok {
		sub.Cancel()
		delete(h.subscriptions, h.sectionTopic)
	}
	sub, err := h.subscribeLocked(ctx, newTopic)
	if err != nil {
		return err
	}
	h.subscriptions[newTopic] = sub
	h.sectionTopic = newTopic
	return nil
}

// Subscribe subscribes to topic.
func (h *Host) Subscribe(ctx context.Context, topic string) error {
	if !h.started {
		return ErrNodeNotStarted
	}

	h.subMutex.Lock()
	defer h.subMutex.Unlock()

	if _, exists := h.subscriptions[topic]; exists {
		return nil
	}

	sub, err := h.subscribeLocked(ctx, topic)
	if err != nil {
		return err
	}
	h.subscriptions[topic] = sub
	return nil
}

func (h *Host) subscribeLocked(ctx context.Context, topic string) (*pubsub.Subscription, error) {
	if !h.topics.IsValidTopic(topic) {
		h.logger.Warn("invalid topic subscription attempt", map[string]interface{}{"topic": topic})
		return nil, NewTransportError("subscribe", ErrInvalidTopic).WithTopic(topic)
	}

	h.logger.Info("subscribing to topic", map[string]interface{}{"topic": topic})

	join, err := h.pubsub.Join(topic)
	if err != nil {
		return nil, NewTransportError("subscribe", err).WithTopic(topic)
	}
	sub, err := join.Subscribe()
	if err != nil {
		return nil, NewTransportError("subscribe", err).WithTopic(topic)
	}

	go h.handleTopicMessages(ctx, topic, sub)
	return sub, nil
}

// Publish publishes envelope or blob bytes to topic.
func (h *Host) Publish(ctx context.Context, topic string, data []byte) error {
	if !h.started {
		return ErrNodeNotStarted
	}

	if err := h.topics.ValidateTopicMessage(topic, data); err != nil {
		return NewTransportError("publish", err).WithTopic(topic).WithContext("data_size", len(data))
	}

	if err := h.pubsub.Publish(topic, data); err != nil {
		h.logger.Error("failed to publish", map[string]interface{}{
			"topic": topic,
			"error": err,
		})
		return NewTransportError("publish", err).WithTopic(topic).WithContext("data_size", len(data))
	}

	return nil
}

// GetNetworkInfo returns information about the network state
func (h *Host) GetNetworkInfo() map[string]interface{} {
	if !h.started {
		return map[string]interface{}{"status": "stopped"}
	}

	peers := h.host.Network().Peers()

	return map[string]interface{}{
		"status":           "running",
		"peer_id":          h.host.ID().String(),
		"connected_peers":  len(peers),
		"listen_addrs":     h.host.Addrs(),
		"topics":           len(h.subscriptions),
		"rate_limit_stats": h.rateLimiter.GetStats(),
	}
}

func (h *Host) handleTopicMessages(ctx context.Context, topic string, sub *pubsub.Subscription) {
	logger := h.logger.WithTopic(topic)
	logger.Info("started message handler for topic")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in topic message handler", map[string]interface{}{"panic": r})
		}
		logger.Info("message handler stopped for topic")
	}()

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("error receiving message", map[string]interface{}{"error": err})
			continue
		}

		if msg.ReceivedFrom == h.host.ID() {
			continue
		}

		if !h.rateLimiter.AllowMessage(msg.ReceivedFrom, topic, len(msg.Data)) {
			continue
		}

		if err := h.topics.ValidateTopicMessage(topic, msg.Data); err != nil {
			logger.Warn("invalid message format", map[string]interface{}{"error": err})
			continue
		}

		h.processMessage(topic, msg)
	}
}

func (h *Host) processMessage(topic string, msg *pubsub.Message) {
	logger := h.logger.WithTopic(topic)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic processing message", map[string]interface{}{"panic": r})
		}
	}()

	switch h.topics.GetTopicType(topic) {
	case "blob":
		cidStr := topic[len(TopicBlobPrefix):]
		h.blobCache.Set(cidStr, msg.Data)
	case "section", "node":
		h.emit(NewMessage{From: msg.ReceivedFrom, Topic: topic, Data: msg.Data})
	default:
		logger.Debug("no handling for topic type")
	}
}

// FindProviders finds providers for a blob CID using the DHT.
func (h *Host) FindProviders(ctx context.Context, c cid.Cid) ([]peer.AddrInfo, error) {
	if !h.started {
		return nil, ErrNodeNotStarted
	}
	if h.dht == nil {
		return nil, ErrDHTNotReady
	}

	providersCh := h.dht.FindProvidersAsync(ctx, c, 20)
	var result []peer.AddrInfo
	for pi := range providersCh {
		result = append(result, pi)
	}

	if len(result) == 0 {
		return nil, NewTransportError("find_providers", ErrProviderNotFound).WithContext("cid", c.String())
	}
	return result, nil
}

// Provide announces that this node can serve content for a blob CID.
func (h *Host) Provide(ctx context.Context, c cid.Cid) error {
	if !h.started {
		return ErrNodeNotStarted
	}
	if h.dht == nil {
		return ErrDHTNotReady
	}
	return h.dht.Provide(ctx, c, true)
}

// ConnectToPeer connects to a specific peer address.
func (h *Host) ConnectToPeer(ctx context.Context, addr multiaddr.Multiaddr) error {
	if !h.started {
		return ErrNodeNotStarted
	}

	pi, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return NewTransportError("connect_peer", err).WithContext("addr", addr.String())
	}

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := h.host.Connect(connCtx, *pi); err != nil {
		h.emit(ConnectionFailure{Addr: addr, Err: err})
		return NewTransportError("connect_peer", err).WithPeer(pi.ID).WithContext("addr", addr.String())
	}

	h.emit(ConnectedTo{Peer: pi.ID})
	return nil
}
