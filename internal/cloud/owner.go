package cloud

import "github.com/google/uuid"

// ResolveOwner returns the live owner handle. The cached handle is kept while
// it is alive; otherwise the id is looked up again. Absent or dead owners
// resolve to nil.
func ResolveOwner(cached Target, id uuid.UUID, host Host) Target {
	if cached != nil && cached.Alive() {
		return cached
	}
	if id == uuid.Nil || host == nil {
		return nil
	}
	target, ok := host.ResolveTarget(id)
	if !ok || target == nil || !target.Alive() {
		return nil
	}
	return target
}

type ownerRef struct {
	id     uuid.UUID
	cached Target
}
