package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/multiformats/go-multiaddr"

	"github.com/sectionmesh/node/internal/chainstate"
	"github.com/sectionmesh/node/internal/consensus"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/node"
	"github.com/sectionmesh/node/internal/store"
	"github.com/sectionmesh/node/internal/transport"
	"github.com/sectionmesh/node/pkg/interfaces"
	"github.com/sectionmesh/node/pkg/types"
)

func main() {
	var (
		listenAddr  = flag.String("listen", "/ip4/0.0.0.0/tcp/4001", "transport listen address")
		httpAddr    = flag.String("http", ":8080", "HTTP bridge listen address")
		bootstrap   = flag.String("bootstrap", "", "bootstrap peer addresses (comma-separated)")
		dhtMode     = flag.String("dht-mode", "auto", "DHT mode: client, server, auto")
		snapBackend = flag.String("snapshot-backend", "memory", "PausedState snapshot backend: memory, rocksdb")
		snapPath    = flag.String("snapshot-path", "", "RocksDB snapshot directory (rocksdb backend only)")
	)
	flag.Parse()

	logger := transport.NewLogger("node", transport.LogLevelInfo)

	self, err := crypto.NewFullId()
	if err != nil {
		logger.Fatal("failed to generate node identity", map[string]interface{}{"error": err})
	}
	logger.Info("node identity generated", map[string]interface{}{"name": self.Name().String()})

	listenMA, err := multiaddr.NewMultiaddr(*listenAddr)
	if err != nil {
		logger.Fatal("invalid listen address", map[string]interface{}{
			"listen_addr": *listenAddr,
			"error":       err,
		})
	}

	config := transport.DefaultConfig()
	config.ListenAddrs = []multiaddr.Multiaddr{listenMA}
	config.DHTConfig.Mode = *dhtMode

	if *bootstrap != "" {
		for _, addr := range splitNonEmpty(*bootstrap, ',') {
			ma, err := multiaddr.NewMultiaddr(addr)
			if err != nil {
				logger.Warn("skipping invalid bootstrap address", map[string]interface{}{"addr": addr, "error": err})
				continue
			}
			config.BootstrapPeers = append(config.BootstrapPeers, ma)
		}
	}

	storeConfig := store.DefaultConfig()
	storeConfig.Backend = *snapBackend
	if *snapPath != "" {
		storeConfig.RocksDB.Path = *snapPath
	}
	snapshots, err := store.NewStore(storeConfig)
	if err != nil {
		logger.Fatal("failed to open snapshot store", map[string]interface{}{"error": err, "backend": *snapBackend})
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			logger.Error("error closing snapshot store", map[string]interface{}{"error": err})
		}
	}()

	host := transport.NewHost(config, self.Name())
	bridge := transport.NewHTTPBridge(host, *httpAddr, snapshots)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting transport host", map[string]interface{}{"addr": listenMA.String()})
	if err := host.Start(ctx); err != nil {
		logger.Fatal("failed to start transport host", map[string]interface{}{"error": err})
	}
	defer func() {
		if err := host.Stop(ctx); err != nil {
			logger.Error("error stopping transport host during cleanup", map[string]interface{}{"error": err})
		}
	}()

	logger.Info("starting HTTP bridge", map[string]interface{}{"addr": *httpAddr})
	if err := bridge.Start(ctx); err != nil {
		logger.Fatal("failed to start HTTP bridge", map[string]interface{}{"error": err})
	}
	defer func() {
		if err := bridge.Stop(ctx); err != nil {
			logger.Error("error stopping HTTP bridge during cleanup", map[string]interface{}{"error": err})
		}
	}()

	netInfo := host.GetNetworkInfo()
	logger.Info("node started", map[string]interface{}{
		"peer_id":         netInfo["peer_id"],
		"connected_peers": netInfo["connected_peers"],
		"http_addr":       *httpAddr,
		"status":          netInfo["status"],
	})

	// engine stands in for the external consensus collaborator until one is
	// wired in; see consensus.LocalEngine's doc comment.
	engine := consensus.NewLocalEngine()
	n := node.New(self, chainstate.MinAge, host, engine)

	loopDone := make(chan error, 1)
	go func() { loopDone <- n.Run(ctx) }()

	go func() {
		for ev := range n.Events() {
			logger.Debug("node event", map[string]interface{}{"type": nodeEventType(ev)})
		}
	}()

	health := &healthService{host: host}
	if ready, err := health.IsReady(ctx); err == nil && ready {
		logger.Info("node ready", nil)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received shutdown signal", map[string]interface{}{"signal": sig.String()})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()
	select {
	case err := <-loopDone:
		if err != nil && err != context.Canceled {
			logger.Error("node event loop exited with error", map[string]interface{}{"error": err})
		}
	case <-shutdownCtx.Done():
		logger.Warn("node event loop did not stop before shutdown deadline")
	}

	if err := bridge.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping HTTP bridge", map[string]interface{}{"error": err})
	}
	if err := host.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping transport host", map[string]interface{}{"error": err})
	}

	logger.Info("node stopped gracefully")
}

func nodeEventType(ev node.Event) string {
	switch ev.(type) {
	case node.ConnectedFirst:
		return "connected_first"
	case node.ConnectedRelocate:
		return "connected_relocate"
	case node.MessageReceived:
		return "message_received"
	case node.ClientMessageReceived:
		return "client_message_received"
	case node.PromotedToElder:
		return "promoted_to_elder"
	case node.Demoted:
		return "demoted"
	case node.MemberJoined:
		return "member_joined"
	case node.MemberLeft:
		return "member_left"
	case node.EldersChanged:
		return "elders_changed"
	case node.SectionSplit:
		return "section_split"
	case node.SectionMerge:
		return "section_merge"
	case node.RestartRequired:
		return "restart_required"
	case node.Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// healthService implements interfaces.HealthService over a transport
// host, the shape the startup readiness check and a future /health
// endpoint both answer from.
type healthService struct {
	host *transport.Host
}

var _ interfaces.HealthService = (*healthService)(nil)

func (h *healthService) GetHealth(ctx context.Context) (*types.ServiceHealth, error) {
	netInfo := h.host.GetNetworkInfo()
	status := "unhealthy"
	if s, ok := netInfo["status"].(string); ok && s == "running" {
		status = "healthy"
	}
	return &types.ServiceHealth{
		Service:   "node",
		Status:    status,
		LastCheck: time.Now(),
	}, nil
}

func (h *healthService) IsReady(ctx context.Context) (bool, error) {
	health, err := h.GetHealth(ctx)
	if err != nil {
		return false, err
	}
	return health.Status == "healthy", nil
}

func (h *healthService) IsAlive(ctx context.Context) (bool, error) {
	return true, nil
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
