package graph

import (
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
)

/**
 * Sort orders nodes with Kahn's algorithm so that every node comes after
 * all nodes with a directed path to it. The order is deterministic: the
 * ready queue is seeded in node-list order and successors are visited in
 * connection order, so independent nodes keep a stable relative order
 * across calls.
 *
 * Connections with an endpoint missing from the node list are ignored.
 * A cycle fails the whole call; no partial order is returned.
 */
func Sort(nodes []types.Node, connections []types.Connection) ([]types.Node, error) {
	if len(connections) == 0 {
		return nodes, nil
	}

	adjacency := make(map[string][]string, len(nodes))
	indegree := make(map[string]int, len(nodes))
	byID := make(map[string]types.Node, len(nodes))

	for _, node := range nodes {
		adjacency[node.ID] = nil
		indegree[node.ID] = 0
		byID[node.ID] = node
	}

	for _, conn := range connections {
		if _, ok := byID[conn.From]; !ok {
			log.Debugf("sort: dropping edge %s with unknown source %q", conn.ID, conn.From)
			continue
		}
		if _, ok := byID[conn.To]; !ok {
			log.Debugf("sort: dropping edge %s with unknown target %q", conn.ID, conn.To)
			continue
		}
		adjacency[conn.From] = append(adjacency[conn.From], conn.To)
		indegree[conn.To]++
	}

	queue := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if indegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	sorted := make([]types.Node, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, byID[id])

		for _, succ := range adjacency[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(sorted) != len(nodes) {
		return nil, types.NewCyclicGraphError(len(nodes) - len(sorted))
	}
	return sorted, nil
}
