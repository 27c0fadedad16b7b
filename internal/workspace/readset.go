package workspace

// readSet tracks which workspace paths a worker has read, and which it
// created during the current attempt. Paths are stored relative to the
// workspace root. Callers hold the store lock.
type readSet struct {
	read    map[string]struct{}
	created map[string]struct{}
}

func newReadSet() *readSet {
	return &readSet{
		read:    make(map[string]struct{}),
		created: make(map[string]struct{}),
	}
}

func (r *readSet) markRead(path string)    { r.read[path] = struct{}{} }
func (r *readSet) markCreated(path string) { r.created[path] = struct{}{} }

func (r *readSet) wasRead(path string) bool {
	_, ok := r.read[path]
	return ok
}

func (r *readSet) wasCreated(path string) bool {
	_, ok := r.created[path]
	return ok
}
