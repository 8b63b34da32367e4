package analysis

// NetworkStats holds the descriptive statistics for one period network.
// MeanPathLength is nil when the graph is disconnected or has fewer than
// two nodes; the statistic is undefined for that period, not zero.
type NetworkStats struct {
	NodeCount      int      `json:"node_count"`
	EdgeCount      int      `json:"edge_count"`
	Density        float64  `json:"density"`
	MeanDegree     float64  `json:"mean_degree"`
	Transitivity   float64  `json:"transitivity"`
	Components     int      `json:"components"`
	MeanPathLength *float64 `json:"mean_path_length"`
	Communities    int      `json:"communities"`
	Modularity     float64  `json:"modularity"`
}

// ComputeStats derives the full statistics set for a network
func ComputeStats(n *Network) NetworkStats {
	stats := NetworkStats{
		NodeCount:    n.NodeCount(),
		EdgeCount:    n.EdgeCount(),
		Density:      n.Density(),
		MeanDegree:   n.MeanDegree(),
		Transitivity: n.Transitivity(),
		Components:   n.ComponentCount(),
	}

	if mpl, ok := n.MeanPathLength(); ok {
		stats.MeanPathLength = &mpl
	}

	partition := n.DetectCommunities()
	stats.Communities = partition.Count()
	stats.Modularity = n.Modularity(partition)

	return stats
}

// Density returns edges over possible edges for the node count. Networks
// with fewer than two nodes have density 0 by convention.
func (n *Network) Density() float64 {
	nodes := n.NodeCount()
	if nodes < 2 {
		return 0
	}

	possible := float64(nodes*(nodes-1)) / 2
	return float64(n.EdgeCount()) / possible
}

// MeanDegree returns the average node degree, 0 for an empty network
func (n *Network) MeanDegree() float64 {
	nodes := n.NodeCount()
	if nodes == 0 {
		return 0
	}
	return 2 * float64(n.EdgeCount()) / float64(nodes)
}

// Transitivity returns the global clustering coefficient: three times the
// triangle count over the number of connected triples. Returns 0 when the
// graph has no connected triples.
func (n *Network) Transitivity() float64 {
	triangles := 0
	triples := 0

	for _, v := range n.NodeIDs() {
		neighbors := n.Neighbors(v)
		degree := len(neighbors)
		triples += degree * (degree - 1) / 2

		for i := 0; i < len(neighbors); i++ {
			for j := i + 1; j < len(neighbors); j++ {
				if n.HasEdge(neighbors[i], neighbors[j]) {
					triangles++
				}
			}
		}
	}

	if triples == 0 {
		return 0
	}

	// Each triangle was counted once per corner
	return float64(triangles) / float64(triples)
}

// ComponentCount returns the number of connected components
func (n *Network) ComponentCount() int {
	visited := make(map[string]bool, n.NodeCount())
	components := 0

	for _, start := range n.NodeIDs() {
		if visited[start] {
			continue
		}
		components++

		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range n.Neighbors(v) {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
	}

	return components
}

// MeanPathLength returns the average unweighted shortest-path length over
// all node pairs. The second return is false when the statistic is
// undefined: a disconnected graph or fewer than two nodes.
func (n *Network) MeanPathLength() (float64, bool) {
	nodes := n.NodeCount()
	if nodes < 2 || n.ComponentCount() != 1 {
		return 0, false
	}

	totalDistance := 0
	pairs := 0

	for _, source := range n.NodeIDs() {
		distance := map[string]int{source: 0}
		queue := []string{source}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range n.Neighbors(v) {
				if _, seen := distance[w]; !seen {
					distance[w] = distance[v] + 1
					queue = append(queue, w)
				}
			}
		}

		for target, d := range distance {
			if target != source {
				totalDistance += d
				pairs++
			}
		}
	}

	// Every pair was visited from both endpoints
	return float64(totalDistance) / float64(pairs), true
}
