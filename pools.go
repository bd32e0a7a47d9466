package filedb

import (
	"bytes"
	"sync"
)

// scratchBufPool holds msgpack buffers that don't outlive the call, i.e.
// the uncompressed snapshot when writing compressed ones.
var scratchBufPool = &sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 65536))
	},
}

func releaseScratchBuf(buf *bytes.Buffer) {
	// don't keep huge buffers around
	if buf.Cap() > 64<<20 {
		return
	}
	buf.Reset()
	scratchBufPool.Put(buf)
}
