package migration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSnapshotSource struct {
	entries []wireEntry
	err     error
}

// IterateSlots ignores slots entirely: SnapshotProducer only calls through
// this interface and never inspects slot membership itself, so the fake
// doesn't need to replicate the real storage adapter's slot filtering to
// exercise chunking and decode.
func (f *fakeSnapshotSource) IterateSlots(slots *SlotSet, fn func(dbIndex int, key string, item SnapshotItem) bool) error {
	if f.err != nil {
		return f.err
	}
	for _, e := range f.entries {
		if !fn(e.DBIndex, e.Key, e.Item) {
			break
		}
	}
	return nil
}

func (f *fakeSnapshotSource) add(dbIndex int, key string, value string) {
	f.entries = append(f.entries, wireEntry{DBIndex: dbIndex, Key: key, Item: SnapshotItem{Value: []byte(value)}})
}

type fakeApplier struct {
	writes  []wireEntry
	deletes []string
}

func (f *fakeApplier) ApplyWrite(dbIndex int, key string, item SnapshotItem) {
	f.writes = append(f.writes, wireEntry{DBIndex: dbIndex, Key: key, Item: item})
}

func (f *fakeApplier) ApplyDelete(dbIndex int, key string) {
	f.deletes = append(f.deletes, key)
}

func TestSnapshotProducerChunksAcrossMultipleNextCalls(t *testing.T) {
	source := &fakeSnapshotSource{}
	for i := 0; i < 5; i++ {
		source.add(0, string(rune('a'+i)), "v")
	}
	slots := mustSlots(t, 0, 0)

	p := NewSnapshotProducer(source, slots, 2)
	applier := &fakeApplier{}
	consumer := NewSnapshotConsumer(applier)

	chunks := 0
	for {
		chunk, done, err := p.Next()
		require.NoError(t, err)
		if len(chunk) > 0 {
			require.NoError(t, consumer.Apply(chunk))
			chunks++
		}
		if done {
			break
		}
	}

	require.Equal(t, 3, chunks, "5 entries at chunk size 2 should take 3 Next calls")
	require.Len(t, applier.writes, 5)
}

func TestSnapshotProducerEmptySourceIsImmediatelyDone(t *testing.T) {
	source := &fakeSnapshotSource{}
	slots := mustSlots(t, 0, 0)
	p := NewSnapshotProducer(source, slots, 256)

	chunk, done, err := p.Next()
	require.NoError(t, err)
	require.True(t, done)
	require.Nil(t, chunk)
}

func TestSnapshotProducerPropagatesSourceError(t *testing.T) {
	boom := errors.New("iteration blew up")
	source := &fakeSnapshotSource{err: boom}
	slots := mustSlots(t, 0, 0)
	p := NewSnapshotProducer(source, slots, 256)

	_, done, err := p.Next()
	require.True(t, done)
	require.ErrorIs(t, err, boom)
}

func TestSnapshotConsumerRejectsGarbageChunk(t *testing.T) {
	applier := &fakeApplier{}
	consumer := NewSnapshotConsumer(applier)
	err := consumer.Apply([]byte("not a gob stream"))
	require.ErrorIs(t, err, ErrSnapshotDecode)
}

func TestSnapshotProducerAsChunkerDrivesEmitUntilDone(t *testing.T) {
	source := &fakeSnapshotSource{}
	for i := 0; i < 3; i++ {
		source.add(0, string(rune('a'+i)), "v")
	}
	slots := mustSlots(t, 0, 0)
	p := NewSnapshotProducer(source, slots, 1)
	applier := &fakeApplier{}
	consumer := NewSnapshotConsumer(applier)

	emitted := 0
	chunker := p.AsChunker(func(chunk []byte) error {
		emitted++
		return consumer.Apply(chunk)
	})
	require.NoError(t, RunToCompletion(chunker, nil))
	require.Equal(t, 3, emitted)
	require.Len(t, applier.writes, 3)
}

func TestSnapshotProducerAsChunkerPropagatesEmitError(t *testing.T) {
	source := &fakeSnapshotSource{}
	source.add(0, "a", "v")
	slots := mustSlots(t, 0, 0)
	p := NewSnapshotProducer(source, slots, 1)

	boom := errors.New("emit failed")
	chunker := p.AsChunker(func(chunk []byte) error { return boom })
	err := RunToCompletion(chunker, nil)
	require.ErrorIs(t, err, boom)
}
