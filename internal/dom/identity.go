package dom

import (
	"hash"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var hasherPool = sync.Pool{
	New: func() interface{} { return fnv.New64a() },
}

// formIdentity returns the form's stable identifier: the explicit id
// attribute when present, otherwise a hash of the form's structural
// signature (position path, action, method, and serialized subtree).
// Re-extracting unchanged markup always yields the same identifier.
func formIdentity(n *html.Node, action, method string) string {
	if id := htmlquery.SelectAttr(n, "id"); id != "" {
		return id
	}

	hasher := hasherPool.Get().(hash.Hash64)
	defer func() {
		hasher.Reset()
		hasherPool.Put(hasher)
	}()

	_, _ = hasher.Write([]byte(GenerateUniqueXPath(n)))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(action))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(method))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(htmlquery.OutputHTML(n, true)))

	return "form-" + strconv.FormatUint(hasher.Sum64(), 16)
}
