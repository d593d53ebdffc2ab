package encoding

import (
	"bytes"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// xxHashCtx bundles a reusable scratch buffer with an xxhash digest so
// Name/Component hashing avoids an allocation per call.
type xxHashCtx struct {
	hash   *xxhash.Digest
	buffer bytes.Buffer
}

var rawXxHashPool = sync.Pool{
	New: func() any {
		return &xxHashCtx{hash: xxhash.New()}
	},
}

type xxHashPoolT struct{}

// xxHashPool is the package-wide handle used by Component/Name hashing.
var xxHashPool xxHashPoolT

// Get returns a freshly-reset hashing context from the pool.
func (xxHashPoolT) Get() *xxHashCtx {
	ctx := rawXxHashPool.Get().(*xxHashCtx)
	ctx.hash.Reset()
	ctx.buffer.Reset()
	return ctx
}

// Put returns ctx to the pool for reuse.
func (xxHashPoolT) Put(ctx *xxHashCtx) {
	rawXxHashPool.Put(ctx)
}
