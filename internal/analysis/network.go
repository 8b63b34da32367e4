package analysis

import (
	"sort"
)

// Node is one party in a period network
type Node struct {
	ID          string   `json:"id"`
	Degree      int      `json:"degree"`
	Strength    float64  `json:"strength"`
	Betweenness float64  `json:"betweenness"`
	Ideology    Ideology `json:"ideology"`
}

// Edge is one surviving agreement pair. Weight starts as the raw agreement
// count and is replaced by the z-score when the network is normalized;
// RawWeight always keeps the agreement count for display.
type Edge struct {
	PartyA        string  `json:"party_a"`
	PartyB        string  `json:"party_b"`
	Weight        float64 `json:"weight"`
	RawWeight     float64 `json:"raw_weight"`
	SharedVotes   int     `json:"shared_votes"`
	AgreementRate float64 `json:"agreement_rate"`
}

// Network is a simple undirected weighted party-cooperation graph for one
// period
type Network struct {
	Period     string           `json:"period"`
	Nodes      map[string]*Node `json:"nodes"`
	Edges      []*Edge          `json:"edges"`
	Normalized bool             `json:"normalized"`

	adjacency map[string]map[string]*Edge
}

// NewNetwork creates an empty network with the given node set
func NewNetwork(period string, parties []string) *Network {
	n := &Network{
		Period:    period,
		Nodes:     make(map[string]*Node, len(parties)),
		adjacency: make(map[string]map[string]*Edge, len(parties)),
	}

	for _, party := range parties {
		n.addNode(party)
	}

	return n
}

func (n *Network) addNode(id string) *Node {
	if node, ok := n.Nodes[id]; ok {
		return node
	}

	node := &Node{ID: id, Ideology: IdeologyCenter}
	n.Nodes[id] = node
	n.adjacency[id] = make(map[string]*Edge)

	return node
}

// AddEdge inserts an undirected edge between two parties. Self-loops are
// rejected and a second edge on the same unordered pair replaces nothing:
// the first insertion wins, keeping the graph simple.
func (n *Network) AddEdge(a, b string, weight float64, sharedVotes int, agreementRate float64) {
	if a == b || a == "" || b == "" {
		return
	}

	key := newPairKey(a, b)
	if _, exists := n.adjacency[key.a][key.b]; exists {
		return
	}

	n.addNode(key.a)
	n.addNode(key.b)

	edge := &Edge{
		PartyA:        key.a,
		PartyB:        key.b,
		Weight:        weight,
		RawWeight:     weight,
		SharedVotes:   sharedVotes,
		AgreementRate: agreementRate,
	}

	n.Edges = append(n.Edges, edge)
	n.adjacency[key.a][key.b] = edge
	n.adjacency[key.b][key.a] = edge
}

// HasEdge reports whether an edge exists between two parties in either order
func (n *Network) HasEdge(a, b string) bool {
	_, ok := n.adjacency[a][b]
	return ok
}

// Neighbors returns the sorted neighbor ids of a node
func (n *Network) Neighbors(id string) []string {
	neighbors := make([]string, 0, len(n.adjacency[id]))
	for neighbor := range n.adjacency[id] {
		neighbors = append(neighbors, neighbor)
	}
	sort.Strings(neighbors)
	return neighbors
}

// NodeIDs returns all node ids in sorted order
func (n *Network) NodeIDs() []string {
	ids := make([]string, 0, len(n.Nodes))
	for id := range n.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of nodes
func (n *Network) NodeCount() int { return len(n.Nodes) }

// EdgeCount returns the number of edges
func (n *Network) EdgeCount() int { return len(n.Edges) }

// BuildNetwork materializes the period network from an agreement table and
// the full set of active parties. Parties without a surviving pair still get
// a node, so node count does not depend on edge survival. An empty table
// yields a valid edgeless network.
func BuildNetwork(period string, table AgreementTable, parties []string, ideology IdeologyTable) *Network {
	n := NewNetwork(period, parties)

	for _, pair := range table {
		n.AddEdge(pair.PartyA, pair.PartyB, float64(pair.Agreements), pair.SharedVotes, pair.AgreementRate)
	}

	for id, node := range n.Nodes {
		node.Degree = len(n.adjacency[id])
		node.Ideology = ideology.Lookup(id)

		strength := 0.0
		for _, edge := range n.adjacency[id] {
			strength += edge.Weight
		}
		node.Strength = strength
	}

	for id, betweenness := range n.betweenness() {
		n.Nodes[id].Betweenness = betweenness
	}

	return n
}

// refreshStrength recomputes node strengths after edge weights change
func (n *Network) refreshStrength() {
	for id, node := range n.Nodes {
		strength := 0.0
		for _, edge := range n.adjacency[id] {
			strength += edge.Weight
		}
		node.Strength = strength
	}
}

// betweenness computes betweenness centrality with Brandes' algorithm,
// treating every edge as distance 1. Scores are halved at the end because
// each undirected path is counted from both endpoints.
func (n *Network) betweenness() map[string]float64 {
	scores := make(map[string]float64, len(n.Nodes))
	ids := n.NodeIDs()
	for _, id := range ids {
		scores[id] = 0
	}

	for _, source := range ids {
		// BFS from source, recording shortest-path counts and predecessors
		stack := make([]string, 0, len(ids))
		predecessors := make(map[string][]string, len(ids))
		pathCount := map[string]float64{source: 1}
		distance := map[string]int{source: 0}

		queue := []string{source}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)

			for _, w := range n.Neighbors(v) {
				if _, seen := distance[w]; !seen {
					distance[w] = distance[v] + 1
					queue = append(queue, w)
				}
				if distance[w] == distance[v]+1 {
					pathCount[w] += pathCount[v]
					predecessors[w] = append(predecessors[w], v)
				}
			}
		}

		// Accumulate dependencies in reverse BFS order
		dependency := make(map[string]float64, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range predecessors[w] {
				dependency[v] += pathCount[v] / pathCount[w] * (1 + dependency[w])
			}
			if w != source {
				scores[w] += dependency[w]
			}
		}
	}

	for id := range scores {
		scores[id] /= 2
	}

	return scores
}
