/*
Package cluster provides leader election for multi-process deployments
of the pipeline, using HashiCorp Raft.

Unlike a traditional Raft-backed state machine, this package replicates
nothing through the Raft log: document records live in the Record Store
(pkg/storage), not in Raft. The only thing Raft decides here is which
process is the leader. That decision gates the orchestrator's periodic
TTL sweep, and pkg/metrics samples it for its leader gauge. Running the
sweep on more than one
process at a time would race harmlessly (deleting an already-deleted
record is idempotent) but wastefully, so leadership gates it to one
process at a time.

# Architecture

	┌─────────────────────── CLUSTER ──────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │                Elector                       │          │
	│  │  - Wraps *raft.Raft                          │          │
	│  │  - noopFSM: no Apply, nothing replicated    │          │
	│  │  - IsLeader(), PeerCount()                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Consumers                           │          │
	│  │  - pkg/orchestrator: gates the TTL sweep    │          │
	│  │  - pkg/metrics: reports leader/peer gauges  │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Bootstrapping the first node:

	elector, err := cluster.NewElector(cluster.Config{
		NodeID:   "node-1",
		BindAddr: "0.0.0.0:9100",
		DataDir:  "/var/lib/dd214pipeline/raft",
	})
	if err != nil {
		return err
	}
	if err := elector.Bootstrap(nil); err != nil {
		return err
	}

Gating the TTL sweep:

	if elector == nil || elector.IsLeader() {
		runTTLSweep(ctx)
	}

A nil elector means "no cluster configured" — a single-process
deployment always sweeps.

# Single-Node Deployments

Most deployments of this pipeline run a single worker process, in which
case Elector is never constructed and the orchestrator always treats
itself as leader. Elector only needs to be wired in when running
multiple worker processes against the same Record Store for
availability.

# See Also

  - pkg/orchestrator for the TTL sweep this gates
  - pkg/storage for where document state actually lives
*/
package cluster
