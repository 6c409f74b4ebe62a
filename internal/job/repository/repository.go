// Package repository implements the durable queue store for PostgreSQL and MySQL.
// Both stores claim with row-level locking that skips rows held by other
// transactions; MySQL can alternatively claim with compare-and-swap updates.
package repository

import (
	"encoding/json"
	"sort"

	"github.com/allisson/publishq/internal/job/domain"
)

// jsonArg binds a JSON document as text. Drivers send []byte as binary, which
// neither jsonb nor MySQL JSON columns accept.
func jsonArg(doc json.RawMessage) any {
	if len(doc) == 0 {
		return nil
	}
	return string(doc)
}

// rawJSON converts a scanned column into a RawMessage, keeping NULL as nil.
func rawJSON(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

// statsCollector folds (queue, status, count) rows and dead-letter counters into QueueStats.
type statsCollector struct {
	byQueue map[string]*domain.QueueStats
}

func newStatsCollector() *statsCollector {
	return &statsCollector{byQueue: make(map[string]*domain.QueueStats)}
}

func (c *statsCollector) get(queue string) *domain.QueueStats {
	stats, ok := c.byQueue[queue]
	if !ok {
		stats = &domain.QueueStats{Queue: queue, Counts: make(map[domain.JobStatus]int64, len(domain.AllJobStatuses))}
		for _, status := range domain.AllJobStatuses {
			stats.Counts[status] = 0
		}
		c.byQueue[queue] = stats
	}
	return stats
}

func (c *statsCollector) addCount(queue string, status domain.JobStatus, count int64) {
	c.get(queue).Counts[status] = count
}

func (c *statsCollector) addDeadLetters(queue string, count int64) {
	c.get(queue).DeadLetters = count
}

func (c *statsCollector) result() []*domain.QueueStats {
	stats := make([]*domain.QueueStats, 0, len(c.byQueue))
	for _, s := range c.byQueue {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Queue < stats[j].Queue })
	return stats
}
