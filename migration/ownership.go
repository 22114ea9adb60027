package migration

import (
	"errors"
	"sync"
	"time"
)

/*
 * ============================================================================
 * OwnershipTransfer - 写暂停 + 投票接管 + 所有权发布
 * ============================================================================
 *
 * 这是把迁移从"两边都有数据"扳成"只有一边拥有槽"的原子翻转。共识本身不在本
 * 规范范围内（spec.md §4.9, §9）：PauseWrites/ResumeWrites/RequestTakeover/
 * PublishOwnership 只是契约。真正的多数派投票机制在这个代码库里并不存在——
 * cluster.FailoverManager（cluster/failover.go）本身也只是一个非功能性的
 * 占位实现（triggerFailover 无条件选 replicas[0]，没有 AUTH_REQUEST/ACK 的
 * 线路交换，那只出现在它的文档注释里）。调用方（cluster.MigrationController）
 * 对 TakeoverVoter 的实现同样是本地无条件授予；只有 GossipPublisher 这一端
 * 接了真正的协作者，把新的所有权通过现有 gossip 广播给其他节点。
 */

var (
	ErrPauseDeadlineExceeded = errors.New("write pause deadline exceeded")
)

// PauseReason mirrors the node-wide paused_reason exposed to clients during
// a migration-driven write pause.
const PauseReason = "slot_migration_in_progress"

// WriteGate is the subset of the platform's existing write-pause mechanism
// this package depends on. A real node implements it once, cluster-wide;
// OwnershipTransfer only calls it.
type WriteGate interface {
	// Pause rejects/queues writes to any slot until Resume is called or
	// deadline elapses, whichever comes first. Blocked long-running reads
	// (BLPOP, XREAD) on slots whose ownership later flips must be unblocked
	// with a redirection reply by the platform's own unblock path.
	Pause(reason string, deadline time.Duration) error
	Resume() error
}

// TakeoverVoter is the subset of the cluster's existing failover voting
// machinery this package depends on to bump the epoch for a slot set.
type TakeoverVoter interface {
	// RequestTakeover asks the cluster to grant slots to newOwner, bumping
	// the configuration epoch. force bypasses peer primary acks; takeover
	// bypasses the quorum requirement entirely (manual no-quorum override).
	RequestTakeover(slots *SlotSet, newOwner NodeID, force, takeover bool) (Epoch, error)
}

// GossipPublisher is the subset of the gossip layer this package depends on
// to disseminate a slot assignment at a given epoch.
type GossipPublisher interface {
	PublishOwnership(slots *SlotSet, newOwner NodeID, epoch Epoch) error
}

// OwnershipTransfer orchestrates the write-pause + voted-takeover +
// publish sequence for a single migration (C9).
type OwnershipTransfer struct {
	mu     sync.Mutex
	gate   WriteGate
	voter  TakeoverVoter
	pub    GossipPublisher
	paused bool
}

func NewOwnershipTransfer(gate WriteGate, voter TakeoverVoter, pub GossipPublisher) *OwnershipTransfer {
	return &OwnershipTransfer{gate: gate, voter: voter, pub: pub}
}

// PauseWrites sets the per-node pause state for the migration. Safe to call
// more than once; only the first call actually engages the gate.
func (o *OwnershipTransfer) PauseWrites(deadline time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.paused {
		return nil
	}
	if err := o.gate.Pause(PauseReason, deadline); err != nil {
		return err
	}
	o.paused = true
	return nil
}

// ResumeWrites clears the pause state. Idempotent.
func (o *OwnershipTransfer) ResumeWrites() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.paused {
		return nil
	}
	if err := o.gate.Resume(); err != nil {
		return err
	}
	o.paused = false
	return nil
}

// RequestTakeover asks for a voted ownership transfer of slots to newOwner.
func (o *OwnershipTransfer) RequestTakeover(slots *SlotSet, newOwner NodeID, force, takeover bool) (Epoch, error) {
	return o.voter.RequestTakeover(slots, newOwner, force, takeover)
}

// PublishOwnership advertises the new owner at the new epoch via gossip.
func (o *OwnershipTransfer) PublishOwnership(slots *SlotSet, newOwner NodeID, epoch Epoch) error {
	return o.pub.PublishOwnership(slots, newOwner, epoch)
}

// EpochStore is a minimal observable-epoch contract: a node's own view of
// the configuration epoch for a slot, used by both FSMs to detect "my own
// cluster-bus processing has applied the bump" (spec.md §5 ordering rule).
type EpochStore interface {
	EpochFor(slot Slot) Epoch
}

// WaitForEpoch blocks (in the caller's cooperative tick, not a busy loop)
// until every slot in slots is observed at epoch >= target in store, or
// deadline elapses.
func WaitForEpoch(store EpochStore, slots *SlotSet, target Epoch, deadline time.Duration) bool {
	cutoff := time.Now().Add(deadline)
	for {
		allCaughtUp := true
		for _, s := range slots.Slots() {
			if store.EpochFor(s) < target {
				allCaughtUp = false
				break
			}
		}
		if allCaughtUp {
			return true
		}
		if time.Now().After(cutoff) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
