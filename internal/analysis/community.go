package analysis

import "sort"

// Partition assigns every node id to a community index
type Partition map[string]int

// Count returns the number of distinct communities
func (p Partition) Count() int {
	seen := make(map[int]bool, len(p))
	for _, community := range p {
		seen[community] = true
	}
	return len(seen)
}

// Members returns node ids grouped by community index
func (p Partition) Members() map[int][]string {
	members := make(map[int][]string)
	for node, community := range p {
		members[community] = append(members[community], node)
	}
	return members
}

// Modularity computes Newman's weighted modularity for a partition, always
// on raw agreement counts so the measure stays well defined after z-score
// normalization (z weights can be negative).
func (n *Network) Modularity(partition Partition) float64 {
	m := 0.0
	for _, edge := range n.Edges {
		m += edge.RawWeight
	}
	if m == 0 {
		return 0
	}

	// Raw strength per node
	strength := make(map[string]float64, n.NodeCount())
	for _, edge := range n.Edges {
		strength[edge.PartyA] += edge.RawWeight
		strength[edge.PartyB] += edge.RawWeight
	}

	// Internal weight and total strength per community
	internal := make(map[int]float64)
	communityStrength := make(map[int]float64)

	for _, edge := range n.Edges {
		if partition[edge.PartyA] == partition[edge.PartyB] {
			internal[partition[edge.PartyA]] += edge.RawWeight
		}
	}
	for node, community := range partition {
		communityStrength[community] += strength[node]
	}

	q := 0.0
	for community, w := range communityStrength {
		q += internal[community]/m - (w/(2*m))*(w/(2*m))
	}

	return q
}

// DetectCommunities runs greedy modularity-maximizing agglomeration:
// every node starts in its own community and the merge with the largest
// positive modularity gain is applied until no merge improves. Party counts
// are small enough that the quadratic search is immaterial.
func (n *Network) DetectCommunities() Partition {
	partition := make(Partition, n.NodeCount())
	for i, id := range n.NodeIDs() {
		partition[id] = i
	}

	if n.EdgeCount() == 0 {
		return partition
	}

	current := n.Modularity(partition)

	for {
		bestGain := 0.0
		bestA, bestB := -1, -1

		for _, pair := range n.connectedCommunityPairs(partition) {
			trial := partition.merged(pair.a, pair.b)
			gain := n.Modularity(trial) - current
			if gain > bestGain {
				bestGain = gain
				bestA, bestB = pair.a, pair.b
			}
		}

		if bestA < 0 || bestGain <= 1e-12 {
			break
		}

		partition = partition.merged(bestA, bestB)
		current += bestGain
	}

	return partition.compacted()
}

type communityPair struct{ a, b int }

// connectedCommunityPairs lists community pairs joined by at least one edge
func (n *Network) connectedCommunityPairs(partition Partition) []communityPair {
	seen := make(map[communityPair]bool)
	pairs := make([]communityPair, 0)

	for _, edge := range n.Edges {
		a, b := partition[edge.PartyA], partition[edge.PartyB]
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		pair := communityPair{a: a, b: b}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}

	return pairs
}

// merged returns a copy of the partition with community b folded into a
func (p Partition) merged(a, b int) Partition {
	next := make(Partition, len(p))
	for node, community := range p {
		if community == b {
			community = a
		}
		next[node] = community
	}
	return next
}

// compacted renumbers communities to consecutive indices in node order
func (p Partition) compacted() Partition {
	remap := make(map[int]int)
	next := make(Partition, len(p))

	// Deterministic renumbering needs a stable node order
	nodes := make([]string, 0, len(p))
	for node := range p {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		community := p[node]
		if _, ok := remap[community]; !ok {
			remap[community] = len(remap)
		}
		next[node] = remap[community]
	}

	return next
}
