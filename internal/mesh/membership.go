// Package mesh implements node-level cluster membership and cross-node
// RPC: SWIM-based membership via memberlist answers "what nodes exist" so
// that cross-node query_peer and trace broadcasts have a membership list
// to fan out against. Cold-tier replication goes through the shared Redis
// keyspace, not through this list. This is deliberately a separate
// gossip layer from the hologram package's in-process proximity gossip,
// which stays addressed by opaque hologram id.
package mesh

import (
	"encoding/json"
	"time"

	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// NodeMeta is the opaque metadata every node gossips alongside its name and
// address: the RPC endpoint peers dial for cross-node hologram traffic.
type NodeMeta struct {
	RPCAddr string `json:"rpc_addr"`
}

// Node is one member of the mesh as seen by Members/Peers.
type Node struct {
	Name    string
	Addr    string
	RPCAddr string
}

// Membership wraps a memberlist.Memberlist with the node's own RPC address,
// gossiped as NodeMeta so peers can resolve where to send RPCs without a
// separate directory service.
type Membership struct {
	ml      *memberlist.Memberlist
	meta    NodeMeta
	logger  *zap.Logger
}

type delegate struct {
	meta   NodeMeta
	logger *zap.Logger
}

func (d *delegate) NodeMeta(limit int) []byte {
	data, err := json.Marshal(d.meta)
	if err != nil || len(data) > limit {
		return nil
	}
	return data
}

func (d *delegate) NotifyMsg(_ []byte)                           {}
func (d *delegate) GetBroadcasts(_, _ int) [][]byte              { return nil }
func (d *delegate) LocalState(_ bool) []byte                     { return nil }
func (d *delegate) MergeRemoteState(_ []byte, _ bool)            {}

// New starts a memberlist agent bound to bindAddr:bindPort, advertising
// rpcAddr as the endpoint peers should dial for hologram RPC traffic.
func New(nodeName, bindAddr string, bindPort int, rpcAddr string, logger *zap.Logger) (*Membership, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta := NodeMeta{RPCAddr: rpcAddr}

	conf := memberlist.DefaultLANConfig()
	conf.Name = nodeName
	conf.BindAddr = bindAddr
	conf.BindPort = bindPort
	conf.AdvertisePort = bindPort
	conf.Delegate = &delegate{meta: meta, logger: logger}
	conf.LogOutput = nil

	ml, err := memberlist.Create(conf)
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "start memberlist agent")
	}
	return &Membership{ml: ml, meta: meta, logger: logger.Named("mesh")}, nil
}

// Join is the node-level connect(peer) operation: it establishes a network
// link into the mesh by contacting one or more seed addresses.
func (m *Membership) Join(seeds []string) (int, error) {
	n, err := m.ml.Join(seeds)
	if err != nil {
		return n, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "join mesh via %v", seeds)
	}
	return n, nil
}

// Leave is leave_mesh(): it gracefully announces departure before shutting
// down the local agent.
func (m *Membership) Leave(timeout time.Duration) error {
	if err := m.ml.Leave(timeout); err != nil {
		m.logger.Warn("leave announcement failed, shutting down anyway", zap.Error(err))
	}
	return m.ml.Shutdown()
}

// Members is list_nodes(): every node currently known to be alive,
// including self.
func (m *Membership) Members() []Node {
	members := m.ml.Members()
	out := make([]Node, 0, len(members))
	for _, n := range members {
		out = append(out, nodeFromMember(n))
	}
	return out
}

// Peers is mesh_peers(): every known live node excluding self.
func (m *Membership) Peers() []Node {
	self := m.ml.LocalNode().Name
	var out []Node
	for _, n := range m.Members() {
		if n.Name != self {
			out = append(out, n)
		}
	}
	return out
}

// Lookup resolves a node name to its RPC address among current members.
func (m *Membership) Lookup(name string) (Node, bool) {
	for _, n := range m.Members() {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

func nodeFromMember(n *memberlist.Node) Node {
	out := Node{Name: n.Name, Addr: n.Address()}
	var meta NodeMeta
	if err := json.Unmarshal(n.Meta, &meta); err == nil {
		out.RPCAddr = meta.RPCAddr
	}
	return out
}
