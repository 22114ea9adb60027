package migration

import (
	"bufio"
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{Verb: VerbEstablish, Args: []string{"SOURCE", "node-1", "NAME", "job-1"}}
	r := bufio.NewReader(bytes.NewReader(m.Encode()))
	decoded, err := DecodeMessage(r)
	require.NoError(t, err)
	require.Equal(t, m, decoded)
}

func TestDecodeMessageRejectsNonSyncslotsArray(t *testing.T) {
	// A well-formed RESP array that isn't a SYNCSLOTS frame at all.
	r := bufio.NewReader(bytes.NewReader([]byte("*1\r\n$4\r\nPING\r\n")))
	_, err := DecodeMessage(r)
	require.ErrorIs(t, err, ErrNotAMigrationClient)
}

func TestSyncChannelSendReadRoundTripsOverRealConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	source := WrapSyncChannel(client)
	target := WrapSyncChannel(server)

	done := make(chan error, 1)
	go func() {
		done <- source.SendEstablish("node-1", "job-1", mustSlotSet(t, 0, 10))
	}()

	msg, err := target.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, VerbEstablish, msg.Verb)
	require.Contains(t, msg.Args, "node-1")
	require.Contains(t, msg.Args, "job-1")
}

func TestSyncChannelPhaseTransitionsGateValidateVerb(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	sc := WrapSyncChannel(client)

	require.True(t, sc.ValidateVerb(VerbEstablish))
	require.False(t, sc.ValidateVerb(VerbSnapshotData))

	sc.AdvanceToSnapshot()
	require.False(t, sc.ValidateVerb(VerbEstablish))
	require.True(t, sc.ValidateVerb(VerbSnapshotData))
	require.True(t, sc.ValidateVerb(VerbSnapshotEOF))
	require.False(t, sc.ValidateVerb(VerbIncrementalData))

	sc.AdvanceToIncremental()
	require.True(t, sc.ValidateVerb(VerbIncrementalData))
	require.True(t, sc.ValidateVerb(VerbRequestPause))
	require.True(t, sc.ValidateVerb(VerbAck))

	sc.AdvanceToPausing()
	require.True(t, sc.ValidateVerb(VerbPaused))
	require.True(t, sc.ValidateVerb(VerbRequestFailover))

	sc.AdvanceToFailover()
	require.True(t, sc.ValidateVerb(VerbFailoverGranted))
	require.True(t, sc.ValidateVerb(VerbEpochWritten))
}

func TestSyncChannelBindJobTouchesLivenessOnRead(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	source := WrapSyncChannel(client)
	target := WrapSyncChannel(server)
	slots := mustSlotSet(t, 0, 10)
	job := NewJob("job-1", RoleImport, slots, "src", "dst", 0)
	target.BindJob(job)

	before := job.Snapshot().LastAckTime

	done := make(chan error, 1)
	go func() { done <- source.SendAck() }()
	_, err := target.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.GreaterOrEqual(t, job.Snapshot().LastAckTime, before)
}

func TestSyncChannelCloseIsIdempotentAndMarksPhaseClosed(t *testing.T) {
	client, _ := net.Pipe()
	sc := WrapSyncChannel(client)
	require.NoError(t, sc.Close())
	require.Equal(t, phaseClosed, sc.Phase())
	// Second close must not panic even though the underlying conn is
	// already closed.
	_ = sc.Close()
}
