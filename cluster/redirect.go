package cluster

import (
	"fmt"

	"github.com/lingdb/lingdb/protocol"
)

/*
 * ============================================================================
 * MOVED redirection (C-redirect)
 * ============================================================================
 *
 * spec.md §6 calls for `-MOVED <slot> <host:port>` on reads/writes to a slot
 * this node no longer owns; ASK is explicitly out of scope beyond naming
 * (spec.md §6), since it belongs to the legacy per-key MIGRATE protocol this
 * module does not implement. server.CommandTable.clusterRedirect builds the
 * slot/owner lookup and calls MovedError for the actual reply; this file
 * only owns the wire format of that reply.
 */

// MovedError builds the `-MOVED <slot> <addr>` reply for a command whose key
// hashes to slot, which a different node (at addr) currently owns.
func MovedError(slot int, addr string) *protocol.RESPValue {
	return protocol.NewError(fmt.Sprintf("MOVED %d %s", slot, addr))
}
