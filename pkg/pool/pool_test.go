package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPoolResetsOnReuse(t *testing.T) {
	r := GetRecord()
	r.ID = "42"
	r.SetData("name", "Widget")
	r.SetStreamID("customers")
	r.SetOffset(2000)
	r.SetMetadata("page", 2)
	r.SetTimestamp(time.Now())
	r.Release()

	r2 := GetRecord()
	defer r2.Release()

	assert.Empty(t, r2.ID)
	assert.Empty(t, r2.Data)
	assert.Empty(t, r2.Metadata.StreamID)
	assert.Zero(t, r2.Metadata.Offset)
	assert.Empty(t, r2.Metadata.Custom)
}

func TestNewRecordFromPool(t *testing.T) {
	r := NewRecordFromPool("netsuite")
	defer r.Release()
	assert.Equal(t, "netsuite", r.Metadata.Source)
}

func TestRecordDataAccess(t *testing.T) {
	r := GetRecord()
	defer r.Release()

	r.SetData("id", "7")
	v, ok := r.GetData("id")
	require.True(t, ok)
	assert.Equal(t, "7", v)

	_, ok = r.GetData("missing")
	assert.False(t, ok)
}

func TestGenericPoolStats(t *testing.T) {
	p := New(
		func() *[]byte { b := make([]byte, 0, 8); return &b },
		func(b *[]byte) { *b = (*b)[:0] },
	)

	obj := p.Get()
	allocated, inUse := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(1))
	assert.Equal(t, int64(1), inUse)

	p.Put(obj)
	_, inUse = p.Stats()
	assert.Equal(t, int64(0), inUse)
}

func TestBatchSlicePool(t *testing.T) {
	batch := GetBatchSlice(10)
	assert.Empty(t, batch)
	assert.GreaterOrEqual(t, cap(batch), 10)

	batch = append(batch, GetRecord())
	batch[0].Release()
	PutBatchSlice(batch)

	batch2 := GetBatchSlice(2048)
	assert.GreaterOrEqual(t, cap(batch2), 2048)
	PutBatchSlice(batch2)
}

func TestMapPool(t *testing.T) {
	m := GetMap()
	m["k"] = "v"
	PutMap(m)

	m2 := GetMap()
	defer PutMap(m2)
	assert.Empty(t, m2)
}
