package cluster

import (
	"errors"
	"time"

	"github.com/lingdb/lingdb/migration"
	"github.com/lingdb/lingdb/storage"
)

/*
 * ============================================================================
 * Resharding -> slot migration bridge
 * ============================================================================
 *
 * ReshardingManager's automatic rebalancing (balancing.go's SlotBalancer)
 * used to drive its own ad hoc per-key MIGRATE loop here, disconnected from
 * the operator-driven CLUSTER MIGRATESLOTS path (MigrationController,
 * cluster/migration_control.go). Both features move slots between nodes,
 * so MigrateSlotData now submits the slot through the same SnapshotProducer/
 * SyncChannel path CLUSTER MIGRATESLOTS uses instead of maintaining a second,
 * never-exercised wire protocol.
 */

// GetKeysInSlot returns every key in slot across every database, used by
// MigrateSlotData to fill in KeysTotal, which GetMigrationProgress reports.
func GetKeysInSlot(server *storage.RedisServer, slot int) []string {
	keys := make([]string, 0)
	for i := 0; i < server.GetDbNum(); i++ {
		db, err := server.GetDb(i)
		if err != nil {
			continue
		}
		for _, key := range db.Keys("*") {
			if HashSlot(key) == slot {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// MigrateSlotData drives a single slot's migration through the node's
// MigrationController, polling the job to terminal completion before
// reporting back to the caller. rm.StartMigration must already have been
// called; this fills in KeysTotal up front (the old per-key count) and
// flips to fully migrated on success, since the underlying SnapshotProducer
// streams keys in chunks rather than one at a time.
func (rm *ReshardingManager) MigrateSlotData(slot int, sourceNodeID, targetNodeID string, server *storage.RedisServer) error {
	mc := rm.cluster.MigrationController()
	if mc == nil {
		return errors.New("slot migration is not enabled on this node")
	}

	keys := GetKeysInSlot(server, slot)
	rm.mu.Lock()
	if mig, exists := rm.migrations[slot]; exists {
		mig.KeysTotal = len(keys)
	}
	rm.mu.Unlock()

	slots, err := migration.NewSlotSet(migration.SlotRange{
		Start: migration.Slot(slot),
		End:   migration.Slot(slot),
	})
	if err != nil {
		return err
	}

	job, err := mc.MigrateSlots(slots, targetNodeID, 0)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(5 * time.Minute)
	for !job.State().IsTerminal() {
		if time.Now().After(deadline) {
			return errors.New("slot migration timed out")
		}
		time.Sleep(50 * time.Millisecond)
	}
	if job.State() != migration.StateSuccess {
		return errors.New("slot migration failed: " + job.Message())
	}

	rm.mu.Lock()
	if mig, exists := rm.migrations[slot]; exists {
		mig.KeysMigrated = mig.KeysTotal
	}
	rm.mu.Unlock()

	return rm.CompleteMigration(slot)
}
