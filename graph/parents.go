package graph

import (
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
)

// ParentMap derives, per node, the ids of the nodes feeding it, in
// connection input order. Connections with an empty endpoint are skipped
// with a warning; the run goes on without them.
func ParentMap(connections []types.Connection) map[string][]string {
	parents := make(map[string][]string)
	for _, conn := range connections {
		if conn.From == "" || conn.To == "" {
			log.Warnf("parent map: skipping connection %q with empty endpoint", conn.ID)
			continue
		}
		parents[conn.To] = append(parents[conn.To], conn.From)
	}
	return parents
}
