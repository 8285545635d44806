package metrics

import (
	"time"

	"github.com/cuemby/dd214pipeline/pkg/storage"
)

// LeaderStatus is the subset of cluster leader-election state the
// collector needs. Implemented by pkg/cluster.Elector; kept as a small
// local interface so metrics never imports cluster.
type LeaderStatus interface {
	IsLeader() bool
	PeerCount() int
}

// Collector periodically samples the Record Store and leader election
// state into the package-level Prometheus gauges.
type Collector struct {
	store  storage.Store
	leader LeaderStatus
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector. leader may be nil if the
// process runs without a cluster (single-node deployment).
func NewCollector(store storage.Store, leader LeaderStatus) *Collector {
	return &Collector{
		store:  store,
		leader: leader,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectDocumentMetrics()
	c.collectLeaderMetrics()
}

func (c *Collector) collectDocumentMetrics() {
	counts, err := c.store.CountByStatus()
	if err != nil {
		return
	}

	DocumentsTotal.Reset()
	for status, count := range counts {
		DocumentsTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}

func (c *Collector) collectLeaderMetrics() {
	if c.leader == nil {
		return
	}

	if c.leader.IsLeader() {
		ClusterIsLeader.Set(1)
	} else {
		ClusterIsLeader.Set(0)
	}
	ClusterPeersTotal.Set(float64(c.leader.PeerCount()))
}
