package migration

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/lingdb/lingdb/protocol"
)

/*
 * ============================================================================
 * SyncChannel - SYNCSLOTS 控制/数据通道
 * ============================================================================
 *
 * 源节点向目标节点发起一条长连接，复用 replication 包里 master/slave 已经用
 * 过的模式：bufio 包裹的 net.Conn，RESP 数组帧。每条消息是一个 RESP 数组，首
 * 个元素固定是 "SYNCSLOTS"，第二个元素是动词（ESTABLISH/SNAPSHOT-EOF/...）。
 *
 * 会话状态机很浅：一个连接在收到 ESTABLISH 之前只接受 ESTABLISH；建立之后，
 * 任何在当前阶段不合法的动词都会直接断开连接（不回包、不改状态），这与
 * spec.md §4.4 "Any invalid transition MUST drop the connection" 一致。
 */

// Verb is a SYNCSLOTS wire verb.
type Verb string

const (
	VerbEstablish       Verb = "ESTABLISH"
	VerbSnapshotData    Verb = "SNAPSHOT-DATA"
	VerbSnapshotEOF     Verb = "SNAPSHOT-EOF"
	VerbIncrementalData Verb = "INCREMENTAL-DATA"
	VerbRequestPause    Verb = "REQUEST-PAUSE"
	VerbPaused          Verb = "PAUSED"
	VerbRequestFailover Verb = "REQUEST-FAILOVER"
	VerbFailoverGranted Verb = "FAILOVER-GRANTED"
	VerbEpochWritten    Verb = "EPOCH-WRITTEN"
	VerbAck             Verb = "ACK"
)

var ErrNotAMigrationClient = errors.New("should only be used by slot migration clients")

// Message is a decoded SYNCSLOTS frame.
type Message struct {
	Verb Verb
	Args []string
}

// Encode renders m as the RESP array wire form
// *N\r\n$9\r\nSYNCSLOTS\r\n$<verb>\r\n...$<arg>\r\n...
func (m Message) Encode() []byte {
	elems := make([]*protocol.RESPValue, 0, 2+len(m.Args))
	elems = append(elems, protocol.NewBulkString("SYNCSLOTS"))
	elems = append(elems, protocol.NewBulkString(string(m.Verb)))
	for _, a := range m.Args {
		elems = append(elems, protocol.NewBulkString(a))
	}
	return protocol.NewArray(elems).Encode()
}

// DecodeMessage reads one SYNCSLOTS frame from r.
func DecodeMessage(r *bufio.Reader) (Message, error) {
	v, err := protocol.Decode(r)
	if err != nil {
		return Message{}, err
	}
	if v.Type != protocol.RESP_ARRAY || len(v.Array) < 2 {
		return Message{}, ErrNotAMigrationClient
	}
	if v.Array[0].Str != "SYNCSLOTS" {
		return Message{}, ErrNotAMigrationClient
	}
	args := make([]string, 0, len(v.Array)-2)
	for _, e := range v.Array[2:] {
		args = append(args, e.Str)
	}
	return Message{Verb: Verb(v.Array[1].Str), Args: args}, nil
}

// sessionPhase tracks which verbs are legal next, per spec.md §4.4: "Every
// verb is valid only within the session state implied by ESTABLISH."
type sessionPhase int

const (
	phasePreEstablish sessionPhase = iota
	phaseSnapshot
	phaseIncremental
	phasePausing
	phaseFailover
	phaseClosed
)

// SyncChannel is the long-lived bidirectional connection between a source
// and a target for one migration (C4).
type SyncChannel struct {
	mu    sync.Mutex
	conn  net.Conn
	r     *bufio.Reader
	w     *bufio.Writer
	phase sessionPhase

	staged *StagedBytesCounter

	job *Job
}

// DialSyncChannel opens a SyncChannel from the source to addr and performs
// AUTH using password (empty string means no auth configured).
func DialSyncChannel(addr, password string, timeout time.Duration) (*SyncChannel, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to target node: %w", err)
	}
	sc := &SyncChannel{
		conn:   conn,
		r:      bufio.NewReader(conn),
		w:      bufio.NewWriter(conn),
		phase:  phasePreEstablish,
		staged: &StagedBytesCounter{},
	}
	if password != "" {
		if err := sc.auth(password); err != nil {
			conn.Close()
			return nil, NewFailure(FailureAuth, MsgAuthFailed)
		}
	}
	return sc, nil
}

// WrapSyncChannel adapts an already-accepted connection (target side) into
// a SyncChannel.
func WrapSyncChannel(conn net.Conn) *SyncChannel {
	return &SyncChannel{
		conn:   conn,
		r:      bufio.NewReader(conn),
		w:      bufio.NewWriter(conn),
		phase:  phasePreEstablish,
		staged: &StagedBytesCounter{},
	}
}

func (sc *SyncChannel) auth(password string) error {
	req := Message{Verb: "AUTH", Args: []string{password}}
	if err := sc.send(req); err != nil {
		return err
	}
	resp, err := DecodeMessage(sc.r)
	if err != nil {
		return err
	}
	if resp.Verb != "OK" {
		return errors.New("auth rejected")
	}
	return nil
}

// send writes a frame and tracks its bytes in the staged-bytes bucket until
// the buffered writer actually flushes to the socket. This is the bucket
// excluded from maxmemory accounting (spec.md §9).
func (sc *SyncChannel) send(m Message) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	data := m.Encode()
	sc.staged.Add(len(data))
	if _, err := sc.w.Write(data); err != nil {
		return err
	}
	err := sc.w.Flush()
	sc.staged.Sub(len(data))
	return err
}

// StagedBytes reports bytes written to the channel's buffer but not yet
// acknowledged as flushed.
func (sc *SyncChannel) StagedBytes() int64 { return sc.staged.Get() }

// SendEstablish is issued by the source to request an ImportJob on the
// target for the given name/slots.
func (sc *SyncChannel) SendEstablish(source NodeID, name JobName, slots *SlotSet) error {
	args := []string{"SOURCE", string(source), "NAME", string(name), "SLOTSRANGE"}
	for _, r := range slots.Ranges() {
		args = append(args, strconv.Itoa(int(r.Start)), strconv.Itoa(int(r.End)))
	}
	return sc.send(Message{Verb: VerbEstablish, Args: args})
}

// SendSnapshotData carries one SnapshotProducer chunk. RESP bulk strings are
// 8-bit clean, so the gob-encoded chunk rides as a single arg unmodified.
func (sc *SyncChannel) SendSnapshotData(chunk []byte) error {
	return sc.send(Message{Verb: VerbSnapshotData, Args: []string{string(chunk)}})
}

// SendSnapshotEOF signals the snapshot stream has ended.
func (sc *SyncChannel) SendSnapshotEOF() error {
	return sc.send(Message{Verb: VerbSnapshotEOF})
}

// SendIncrementalData carries one IncrementalReplicator drained batch.
func (sc *SyncChannel) SendIncrementalData(chunk []byte) error {
	return sc.send(Message{Verb: VerbIncrementalData, Args: []string{string(chunk)}})
}

// SendRequestPause signals the source is entering write-pause.
func (sc *SyncChannel) SendRequestPause() error {
	return sc.send(Message{Verb: VerbRequestPause})
}

// SendPaused acknowledges the target observed the source's pause.
func (sc *SyncChannel) SendPaused() error {
	return sc.send(Message{Verb: VerbPaused})
}

// SendRequestFailover asks the target to cast votes for slot takeover.
func (sc *SyncChannel) SendRequestFailover() error {
	return sc.send(Message{Verb: VerbRequestFailover})
}

// SendFailoverGranted confirms the vote succeeded.
func (sc *SyncChannel) SendFailoverGranted() error {
	return sc.send(Message{Verb: VerbFailoverGranted})
}

// SendEpochWritten tells the target the new owning epoch for the migrated
// slots, once PublishOwnership has succeeded on the source. Real ownership
// dissemination runs over the cluster-wide gossip bus (out of scope for this
// package, see migration/ownership.go); carrying it directly on the
// SyncChannel lets the target FSM reach success without depending on gossip
// machinery neither package implements.
func (sc *SyncChannel) SendEpochWritten(epoch Epoch) error {
	return sc.send(Message{Verb: VerbEpochWritten, Args: []string{strconv.FormatUint(uint64(epoch), 10)}})
}

// SendAuthOK replies OK to a client's AUTH frame, target side only.
func (sc *SyncChannel) SendAuthOK() error {
	return sc.send(Message{Verb: "OK"})
}

// SendAck is the periodic heartbeat in either direction.
func (sc *SyncChannel) SendAck() error {
	return sc.send(Message{Verb: VerbAck})
}

// ReadMessage blocks for the next frame, bumping the job's liveness clock
// (if bound) on any successfully decoded message.
func (sc *SyncChannel) ReadMessage() (Message, error) {
	msg, err := DecodeMessage(sc.r)
	if err != nil {
		return Message{}, err
	}
	if sc.job != nil {
		sc.job.Touch()
	}
	return msg, nil
}

// BindJob associates this channel with the job whose liveness it updates.
func (sc *SyncChannel) BindJob(job *Job) { sc.job = job }

// Phase returns the current session phase, used by the establish handler
// (cluster package) and the FSMs to validate incoming verbs.
func (sc *SyncChannel) Phase() sessionPhase {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.phase
}

// Advance moves the session to the next phase after a legal transition.
func (sc *SyncChannel) Advance(p sessionPhase) {
	sc.mu.Lock()
	sc.phase = p
	sc.mu.Unlock()
}

// ValidateVerb reports whether verb is legal in the channel's current
// phase. An illegal verb must cause the caller to drop the connection
// without mutating any state (spec.md §4.4).
func (sc *SyncChannel) ValidateVerb(verb Verb) bool {
	phase := sc.Phase()
	switch verb {
	case VerbEstablish:
		return phase == phasePreEstablish
	case VerbSnapshotData:
		return phase == phaseSnapshot
	case VerbSnapshotEOF:
		return phase == phaseSnapshot
	case VerbIncrementalData:
		return phase == phaseIncremental
	case VerbRequestPause:
		return phase == phaseIncremental
	case VerbPaused:
		return phase == phasePausing
	case VerbRequestFailover:
		return phase == phasePausing
	case VerbFailoverGranted:
		return phase == phaseFailover
	case VerbEpochWritten:
		return phase == phaseFailover
	case VerbAck:
		return phase != phasePreEstablish && phase != phaseClosed
	default:
		return false
	}
}

// AdvanceToSnapshot moves the session into the snapshot-receiving phase
// right after a successful ESTABLISH. Exported because sessionPhase itself
// is unexported: callers outside this package (cluster.MigrationController)
// drive the session through these named transitions instead of raw values.
func (sc *SyncChannel) AdvanceToSnapshot() { sc.Advance(phaseSnapshot) }

// AdvanceToIncremental moves the session past SNAPSHOT-EOF.
func (sc *SyncChannel) AdvanceToIncremental() { sc.Advance(phaseIncremental) }

// AdvanceToPausing moves the session into the write-pause handshake.
func (sc *SyncChannel) AdvanceToPausing() { sc.Advance(phasePausing) }

// AdvanceToFailover moves the session into the takeover-vote handshake.
func (sc *SyncChannel) AdvanceToFailover() { sc.Advance(phaseFailover) }

// Close tears down the underlying connection. Safe to call more than once.
func (sc *SyncChannel) Close() error {
	sc.mu.Lock()
	sc.phase = phaseClosed
	sc.mu.Unlock()
	return sc.conn.Close()
}
