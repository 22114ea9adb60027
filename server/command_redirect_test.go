package server

import (
	"testing"

	"github.com/lingdb/lingdb/cluster"
	"github.com/lingdb/lingdb/migration"
	"github.com/lingdb/lingdb/protocol"
	"github.com/stretchr/testify/require"
)

func TestClusterRedirectReturnsMovedForForeignSlot(t *testing.T) {
	srv := NewServer(":0", 4)
	c := cluster.NewCluster(srv.redisServer, "self", "127.0.0.1:7000")
	c.AddNode("self", "127.0.0.1:7000")
	c.AddNode("other", "127.0.0.1:7001")
	c.AssignSlots("other", []int{cluster.HashSlot("foo")})
	srv.cluster = c

	ctx := &CommandContext{Server: srv}
	array := []*protocol.RESPValue{
		protocol.NewBulkString("GET"),
		protocol.NewBulkString("foo"),
	}

	resp := srv.cmdTable.clusterRedirect(ctx, "GET", array)
	require.NotNil(t, resp)
	require.Equal(t, protocol.RESP_ERROR, resp.Type)
	require.Contains(t, resp.Str, "MOVED")
	require.Contains(t, resp.Str, "127.0.0.1:7001")
}

func TestClusterRedirectNilWhenSlotOwnedLocally(t *testing.T) {
	srv := NewServer(":0", 4)
	c := cluster.NewCluster(srv.redisServer, "self", "127.0.0.1:7000")
	c.AddNode("self", "127.0.0.1:7000")
	c.AssignSlots("self", []int{cluster.HashSlot("foo")})
	srv.cluster = c

	ctx := &CommandContext{Server: srv}
	array := []*protocol.RESPValue{
		protocol.NewBulkString("GET"),
		protocol.NewBulkString("foo"),
	}
	require.Nil(t, srv.cmdTable.clusterRedirect(ctx, "GET", array))
}

func TestClusterRedirectNilWhenSlotIsImportingLocally(t *testing.T) {
	srv := NewServer(":0", 4)
	c := cluster.NewCluster(srv.redisServer, "self", "127.0.0.1:7000")
	c.AddNode("self", "127.0.0.1:7000")
	c.AddNode("other", "127.0.0.1:7001")
	slot := cluster.HashSlot("foo")
	c.AssignSlots("other", []int{slot})
	srv.cluster = c
	srv.redisServer.SetSlotFunc(func(key string) migration.Slot { return migration.Slot(cluster.HashSlot(key)) })
	srv.redisServer.BeginImport(migration.Slot(slot), 0, migration.NewImportBuffer("job-1"))

	ctx := &CommandContext{Server: srv}
	array := []*protocol.RESPValue{
		protocol.NewBulkString("GET"),
		protocol.NewBulkString("foo"),
	}
	require.Nil(t, srv.cmdTable.clusterRedirect(ctx, "GET", array))
}

func TestClusterRedirectNilForNonKeyCommand(t *testing.T) {
	srv := NewServer(":0", 4)
	c := cluster.NewCluster(srv.redisServer, "self", "127.0.0.1:7000")
	c.AddNode("other", "127.0.0.1:7001")
	c.AssignSlots("other", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	srv.cluster = c

	ctx := &CommandContext{Server: srv}
	array := []*protocol.RESPValue{protocol.NewBulkString("PING")}
	require.Nil(t, srv.cmdTable.clusterRedirect(ctx, "PING", array))
}
