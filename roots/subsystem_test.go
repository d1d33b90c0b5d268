package roots

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcforge/handlekit/pkg/gc"
)

func TestInitializeValidatesCollaborators(t *testing.T) {
	f := newFakeGC()

	_, err := Initialize(Config{Runtime: f})
	require.ErrorIs(t, err, ErrNoCollector)

	_, err = Initialize(Config{Collector: f})
	require.ErrorIs(t, err, ErrNoRuntime)
}

func TestSlotsPerBucket(t *testing.T) {
	f := newFakeGC()

	single, err := Initialize(Config{Collector: f, Runtime: f})
	require.NoError(t, err)
	defer single.Shutdown()
	require.Equal(t, 1, single.SlotsPerBucket())

	multi, err := Initialize(Config{Collector: f, Runtime: f, MultiHeap: true, HeapCount: 6})
	require.NoError(t, err)
	defer multi.Shutdown()
	require.Equal(t, 6, multi.SlotsPerBucket())

	// Heap count unknown at init: sized from the logical processor count.
	// If the real heap count comes in lower, the surplus slots go unused.
	auto, err := Initialize(Config{Collector: f, Runtime: f, MultiHeap: true})
	require.NoError(t, err)
	defer auto.Shutdown()
	require.GreaterOrEqual(t, auto.SlotsPerBucket(), 1)
}

func TestCreateBucketPopulatesAllSlots(t *testing.T) {
	f := newFakeGC()
	s := newTestSubsystem(t, f, 3)

	b, err := s.CreateBucket()
	require.NoError(t, err)
	require.Equal(t, 3, b.Slots())
	for heap := 0; heap < 3; heap++ {
		tbl := b.Table(heap)
		require.NotNil(t, tbl)
		require.Equal(t, heap, tbl.Index())
	}
	require.Nil(t, b.Table(3))
	require.Nil(t, b.Table(-1))
	require.Same(t, b, s.Directory().Lookup(b.Index()))
}

func TestDestroyBucketRemovesAndTearsDown(t *testing.T) {
	f := newFakeGC()
	s := newTestSubsystem(t, f, 1)
	b, err := s.CreateBucket()
	require.NoError(t, err)
	idx := b.Index()

	s.DestroyBucket(b)
	require.Nil(t, s.Directory().Lookup(idx))

	// Destroying again is harmless.
	s.DestroyBucket(b)
}

func TestCreateBucketAfterShutdown(t *testing.T) {
	f := newFakeGC()
	s, err := Initialize(Config{Collector: f, Runtime: f})
	require.NoError(t, err)
	s.Shutdown()

	_, err = s.CreateBucket()
	require.ErrorIs(t, err, ErrShutdown)

	// Shutdown is idempotent.
	s.Shutdown()
}

func TestCensusAggregatesAcrossBuckets(t *testing.T) {
	f := newFakeGC()
	s := newTestSubsystem(t, f, 2)

	b1, _ := s.CreateBucket()
	b2, _ := s.CreateBucket()
	allocHandle(t, b1.Table(0), gc.TypeStrong, 0x10, 0)
	allocHandle(t, b1.Table(1), gc.TypeStrong, 0x20, 0)
	allocHandle(t, b2.Table(0), gc.TypeWeakShort, 0x30, 0)

	c := s.Census()
	require.Equal(t, 2, c[gc.TypeStrong])
	require.Equal(t, 1, c[gc.TypeWeakShort])
}

func TestTraceForDiagnostics(t *testing.T) {
	f := newFakeGC()
	s := newTestSubsystem(t, f, 1)
	b, _ := s.CreateBucket()
	tbl := b.Table(0)
	allocHandle(t, tbl, gc.TypeWeakShort, 0x10, 0)
	allocHandle(t, tbl, gc.TypeDependent, 0x20, gc.ExtraInfo(0x21))
	allocHandle(t, tbl, gc.TypePinned, 0x30, 0)

	type visit struct {
		typ       gc.Type
		kind      gc.RootKind
		primary   gc.ObjectRef
		secondary gc.ObjectRef
	}
	var visits []visit
	s.TraceForDiagnostics(singleContext(), func(typ gc.Type, kind gc.RootKind, primary, secondary gc.ObjectRef) {
		visits = append(visits, visit{typ, kind, primary, secondary})
	})

	require.ElementsMatch(t, []visit{
		{gc.TypeWeakShort, gc.RootWeak, 0x10, 0},
		{gc.TypeDependent, gc.RootDependent, 0x20, 0x21},
		{gc.TypePinned, gc.RootPinning, 0x30, 0},
	}, visits)
}
