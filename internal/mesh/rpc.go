package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// DefaultRPCTimeout bounds one cross-node hop's per-call timeout. Exceeding
// it surfaces as Unreachable (BadRpc); callers never retry automatically.
const DefaultRPCTimeout = 3 * time.Second

// targetedRequest is the wire shape Dialer.Send posts to a peer: the
// envelope plus the hologram id it's addressed to, since Envelope itself
// only carries the sender's origin.
type targetedRequest struct {
	HologramID string          `json:"hologram_id"`
	Envelope   json.RawMessage `json:"envelope"`
}

// peerLister is the slice of Membership's surface Dialer actually needs,
// broken out so tests can supply a fixed peer list without a live
// memberlist agent.
type peerLister interface {
	Peers() []Node
}

// Dialer implements hologram.PeerDialer over HTTP: Send fans the envelope
// out to every known mesh peer in turn, trying each once with its own
// per-call timeout, and returns the first successful reply.
type Dialer struct {
	peers   peerLister
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

var _ hologram.PeerDialer = (*Dialer)(nil)

// NewDialer builds a Dialer fanning out against membership's current peers.
func NewDialer(membership *Membership, logger *zap.Logger) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{
		peers:   membership,
		client:  &http.Client{Timeout: DefaultRPCTimeout},
		timeout: DefaultRPCTimeout,
		logger:  logger.Named("mesh.rpc"),
	}
}

// Send implements hologram.PeerDialer: peerID is the target hologram's id,
// resolved by asking each mesh peer in turn whether it hosts that id.
func (d *Dialer) Send(ctx context.Context, peerID string, env hologram.Envelope) (hologram.Envelope, error) {
	envData, err := json.Marshal(env)
	if err != nil {
		return hologram.Envelope{}, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "marshal envelope for rpc")
	}
	reqBody := targetedRequest{HologramID: peerID, Envelope: envData}

	var lastErr error
	for _, peer := range d.peers.Peers() {
		if peer.RPCAddr == "" {
			continue
		}
		reply, err := d.post(ctx, peer.RPCAddr+"/rpc", reqBody)
		if err != nil {
			lastErr = err
			d.logger.Debug("rpc attempt failed, trying next peer", zap.String("peer", peer.Name), zap.Error(err))
			continue
		}
		return reply, nil
	}
	if lastErr == nil {
		lastErr = kudzuerr.New(kudzuerr.KindNotFound, "no mesh peers advertise %q", peerID)
	}
	return hologram.Envelope{}, kudzuerr.Wrap(kudzuerr.KindUnreachable, lastErr, "rpc to %s", peerID)
}

func (d *Dialer) post(ctx context.Context, url string, reqBody targetedRequest) (hologram.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, err := json.Marshal(reqBody)
	if err != nil {
		return hologram.Envelope{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return hologram.Envelope{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return hologram.Envelope{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return hologram.Envelope{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return hologram.Envelope{}, kudzuerr.New(kudzuerr.KindUnreachable, "peer returned status %d", resp.StatusCode)
	}
	return hologram.Decode(respBody)
}

// Server exposes the local registry's holograms over HTTP for incoming
// cross-node RPC and broadcasts.
type Server struct {
	registry *hologram.Registry
	logger   *zap.Logger
}

// NewServer builds an RPC server fronting registry.
func NewServer(registry *hologram.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{registry: registry, logger: logger.Named("mesh.rpc.server")}
}

// Handler returns an http.Handler exposing /rpc (targeted envelope
// delivery) and /rpc/broadcast (fan-out to every locally registered
// hologram).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleTargeted)
	mux.HandleFunc("/rpc/broadcast", s.handleBroadcast)
	return mux
}

func (s *Server) handleTargeted(w http.ResponseWriter, r *http.Request) {
	var req targetedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	state, ok := s.registry.Lookup(req.HologramID)
	if !ok {
		http.Error(w, "hologram not found", http.StatusNotFound)
		return
	}
	env, err := hologram.Decode(req.Envelope)
	if err != nil {
		http.Error(w, "bad envelope", http.StatusBadRequest)
		return
	}
	reply, err := state.HandleEnvelope(r.Context(), env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeEnvelope(w, reply)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req targetedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	env, err := hologram.Decode(req.Envelope)
	if err != nil {
		http.Error(w, "bad envelope", http.StatusBadRequest)
		return
	}
	for _, id := range s.registry.AllIDs() {
		state, ok := s.registry.Lookup(id)
		if !ok {
			continue
		}
		if _, err := state.HandleEnvelope(r.Context(), env); err != nil {
			s.logger.Warn("broadcast delivery to local hologram failed", zap.String("hologram", id), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeEnvelope(w http.ResponseWriter, env hologram.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		http.Error(w, "encode failure", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
