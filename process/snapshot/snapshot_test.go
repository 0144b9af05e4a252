package snapshot_test

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/process"
	"procmem/process/snapshot"
)

func TestLayouts(t *testing.T) {
	l64 := snapshot.NewLayout(8)
	assert.Equal(t, 568, l64.Size)
	assert.Equal(t, 16, l64.DefaultHeapID)
	assert.Equal(t, 28, l64.Threads)
	assert.Equal(t, 32, l64.ParentID)
	assert.Equal(t, 36, l64.PriClassBase)
	assert.Equal(t, 44, l64.ExeFile)

	l32 := snapshot.NewLayout(4)
	assert.Equal(t, 556, l32.Size)
	assert.Equal(t, 12, l32.DefaultHeapID)
	assert.Equal(t, 24, l32.ParentID)
	assert.Equal(t, 36, l32.ExeFile)
}

func TestDecodeRawRecord(t *testing.T) {
	l := snapshot.NewLayout(8)
	buf := make([]byte, l.Size)
	binary.LittleEndian.PutUint32(buf[0:], uint32(l.Size))
	binary.LittleEndian.PutUint32(buf[8:], 1234)
	binary.LittleEndian.PutUint32(buf[28:], 7)
	binary.LittleEndian.PutUint32(buf[32:], 4)
	binary.LittleEndian.PutUint32(buf[36:], 8)
	for i, c := range "notepad.exe" {
		binary.LittleEndian.PutUint16(buf[44+2*i:], uint16(c))
	}

	got := snapshot.View(l, buf).Info()
	want := process.ProcessInfo{PID: 1234, PPID: 4, Name: "notepad.exe", Threads: 7, PriorityClass: 8}
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}
}

func TestExeFileBounded(t *testing.T) {
	l := snapshot.NewLayout(8)
	buf := make([]byte, l.Size)
	for off := l.ExeFile; off+2 <= len(buf); off += 2 {
		binary.LittleEndian.PutUint16(buf[off:], 'A')
	}
	assert.Len(t, snapshot.View(l, buf).ExeFile(), snapshot.MaxPath)

	truncated := snapshot.View(l, buf[:l.ExeFile+10])
	assert.Equal(t, "AAAAA", truncated.ExeFile())

	short := snapshot.View(l, buf[:20])
	assert.Equal(t, process.ProcessID(0), short.ParentProcessID())
	assert.Equal(t, "", short.ExeFile())
}

func TestSetInfoRoundTrip(t *testing.T) {
	e := snapshot.NewEntry(snapshot.HostLayout)
	info := process.ProcessInfo{PID: 42, PPID: 1, Name: "détente.exe", Threads: 3, PriorityClass: -5}
	e.SetInfo(info)

	assert.EqualValues(t, snapshot.HostLayout.Size, e.Size())
	if diff := deep.Equal(e.Info(), info); diff != nil {
		t.Error(diff)
	}

	e.SetInfo(process.ProcessInfo{Name: strings.Repeat("x", 400)})
	assert.Len(t, e.ExeFile(), snapshot.MaxPath-1)
}

func TestCollect(t *testing.T) {
	infos := []process.ProcessInfo{
		{PID: 4, Name: "System", Threads: 100, PriorityClass: 8},
		{PID: 100, PPID: 4, Name: "smss.exe", Threads: 2, PriorityClass: 11},
	}
	src := snapshot.NewRecords(infos)

	got, err := snapshot.Collect(func() (snapshot.Source, error) { return src, nil }, snapshot.HostLayout)
	require.NoError(t, err)
	if diff := deep.Equal(got, infos); diff != nil {
		t.Error(diff)
	}
	assert.True(t, src.Closed())
}

func TestCollectOpenFailure(t *testing.T) {
	got, err := snapshot.Collect(func() (snapshot.Source, error) { return nil, errors.New("denied") }, snapshot.HostLayout)
	assert.Error(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCollectEmpty(t *testing.T) {
	src := snapshot.NewRecords(nil)
	got, err := snapshot.Collect(func() (snapshot.Source, error) { return src, nil }, snapshot.HostLayout)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, src.Closed())
}

type panickingSource struct {
	*snapshot.Records
}

func (p panickingSource) Next(e *snapshot.Entry) bool {
	panic("iteration failed")
}

func TestCollectClosesOnPanic(t *testing.T) {
	src := panickingSource{snapshot.NewRecords([]process.ProcessInfo{{PID: 1}})}
	assert.Panics(t, func() {
		_, _ = snapshot.Collect(func() (snapshot.Source, error) { return src, nil }, snapshot.HostLayout)
	})
	assert.True(t, src.Closed())
}
