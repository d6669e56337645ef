package scheduler

// Variable holds the ordered history of versions written to one shell
// variable name (§3).
type Variable struct {
	Name     string
	Versions []*VarVersion
}

// VarVersion is one write to a Variable. Value is nil until the writer
// publishes; readers that observe an unpublished version queue as
// waiters and stay off the frontier until publish releases them (§4.7).
type VarVersion struct {
	Value     *string
	Accessors int
	Waiters   []*GraphNode
}

// VariableTable maps variable names to their version history (§3).
type VariableTable struct {
	vars map[string]*Variable
}

func newVariableTable() *VariableTable {
	return &VariableTable{vars: make(map[string]*Variable)}
}

// CreateVersion appends a new, unpublished version to name's version
// list, creating the variable entry if this is its first write (§4.7).
// Safe to call without holding the scheduler mutex; intake and
// expansion, which already hold it, use createVersionLocked directly.
func (s *Scheduler) CreateVersion(name string) *VarVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createVersionLocked(name)
}

func (s *Scheduler) createVersionLocked(name string) *VarVersion {
	v, ok := s.vars.vars[name]
	if !ok {
		v = &Variable{Name: name}
		s.vars.vars[name] = v
	}
	version := &VarVersion{}
	v.Versions = append(v.Versions, version)
	return version
}

// ReadLatest returns the tail of name's version list, or nil if the
// variable has never been written. An Evaluator calls this, from
// outside any lock, to find the version a dynamically-discovered
// variable reference should queue against (§6.2, §4.7).
func (s *Scheduler) ReadLatest(name string) *VarVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLatestLocked(name)
}

func (s *Scheduler) readLatestLocked(name string) *VarVersion {
	v, ok := s.vars.vars[name]
	if !ok || len(v.Versions) == 0 {
		return nil
	}
	return v.Versions[len(v.Versions)-1]
}

// QueueReader registers readerNode as an accessor of version (§4.7). If
// the version has not yet been published, readerNode's Unresolved count
// is bumped by one and it is recorded as a waiter; the scheduler itself
// will put readerNode back on the frontier once the version is
// published, so the caller must not dispatch it directly. name is
// version's variable name, recorded on readerNode so finishNodeLocked
// can release the accessor once the node completes (§9 "Variable
// version cleanup"). Callable from an Evaluator without holding the
// scheduler mutex.
func (s *Scheduler) QueueReader(readerNode *GraphNode, name string, version *VarVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueReaderLocked(readerNode, name, version)
}

func (s *Scheduler) queueReaderLocked(readerNode *GraphNode, name string, version *VarVersion) {
	if version == nil {
		return
	}
	version.Accessors++
	readerNode.ReadVersions = append(readerNode.ReadVersions, VersionRead{Name: name, Version: version})
	if version.Value == nil {
		readerNode.Unresolved++
		version.Waiters = append(version.Waiters, readerNode)
	}
}

// Publish fills version's value and releases every waiter, pushing any
// that reach Unresolved == 0 onto the frontier (§4.7). An Evaluator
// calls this once it has computed the value a VarAssign command writes.
// Callable without holding the scheduler mutex.
func (s *Scheduler) Publish(version *VarVersion, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(version, value)
	s.cond.Broadcast()
}

func (s *Scheduler) publishLocked(version *VarVersion, value string) {
	if version == nil || version.Value != nil {
		return
	}
	version.Value = &value
	waiters := version.Waiters
	version.Waiters = nil
	for _, node := range waiters {
		node.Unresolved--
		if node.Unresolved == 0 {
			s.frontierAddLocked(node)
		}
	}
}

// VersionRead records that a GraphNode queued a read against one
// variable's version, so the read can be released when the node
// finishes (§9 "Variable version cleanup").
type VersionRead struct {
	Name    string
	Version *VarVersion
}

// releaseAccessor decrements version's accessor count and, per §9
// "Variable version cleanup", reclaims the version once it has no more
// accessors and a newer version already exists to take its place.
// Called from finishNodeLocked for every version a completed node read.
func releaseAccessor(v *Variable, version *VarVersion) {
	version.Accessors--
	if version.Accessors > 0 {
		return
	}
	idx := -1
	for i, candidate := range v.Versions {
		if candidate == version {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(v.Versions)-1 {
		return // no newer version yet; keep it reachable via readLatest
	}
	v.Versions = append(v.Versions[:idx], v.Versions[idx+1:]...)
}
