package value

// Environment owns every heap-allocated object for the lifetime of a VM: the
// intrusive allocation chain (for bulk teardown) and the TextPool (for
// interning). It outlives any single interpret() call; interned text
// persists across invocations of the same VM.
type Environment struct {
	objects HeapObject
	pool    *TextPool
}

func NewEnvironment() *Environment {
	return &Environment{pool: NewTextPool()}
}

func (e *Environment) track(obj HeapObject) {
	obj.setNext(e.objects)
	e.objects = obj
}

// InternBytes is the sole constructor for TextObject: every text value in
// the language, whether a literal constant or an OP_ADD concatenation
// result, is produced here so that content equality and reference equality
// never diverge.
func (e *Environment) InternBytes(chars []byte) *TextObject {
	hash := fnv1a32(chars)
	if existing := e.pool.find(chars, hash); existing != nil {
		return existing
	}

	owned := make([]byte, len(chars))
	copy(owned, chars)
	text := &TextObject{Bytes: owned, Hash: hash}
	e.track(text)
	e.pool.intern(text)
	return text
}

func (e *Environment) InternString(s string) *TextObject {
	return e.InternBytes([]byte(s))
}

// Release drops the head of the intrusive chain and replaces the pool with an
// empty one, so the objects (and the pool's entries) become eligible for
// garbage collection by the host runtime. This is the bulk-teardown analogue of freeing the
// original's hand-linked object list.
func (e *Environment) Release() {
	e.objects = nil
	e.pool = NewTextPool()
}
