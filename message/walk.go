package message

// LeafVisitor is called for each leaf of a part tree with the leaf's MIME
// path: the child index taken at each multipart level to reach it. The
// top-level part of a non-multipart message has an empty path.
type LeafVisitor func(path []int, leaf *Leaf) error

// Walk visits every leaf of the part tree in document order. It is the
// single traversal shared by section extraction and reassembly, so both
// always agree on what a leaf's path is. Walking stops at the first error,
// which is returned.
func Walk(p Part, fn LeafVisitor) error {
	return walk(p, nil, fn)
}

func walk(p Part, path []int, fn LeafVisitor) error {
	if p.IsMultipart() {
		for i, sub := range p.Parts() {
			subPath := append(path[:len(path):len(path)], i)
			if err := walk(sub, subPath, fn); err != nil {
				return err
			}
		}
		return nil
	}
	return fn(path, p.(*Leaf))
}
