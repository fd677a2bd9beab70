package reqtemplate

// containerKind records whether a path step indexes into a mapping or a
// sequence, as observed in the original spec's shape at compile time.
type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

// pathStep is one precomputed step of a setter plan. kind describes the
// container the step indexes into; size is the length of that container
// when it is a sequence, so materialization never has to grow a slice.
type pathStep struct {
	key   string
	index int
	kind  containerKind
	size  int
}

// setter assigns a value at a fixed path below the output root,
// materializing intermediate containers on demand with the kinds recorded
// at compile time. Built once per distinct leaf path and reused across
// all evaluations; it holds no per-call state.
type setter struct {
	steps []pathStep
}

func newSetter(steps []pathStep) *setter {
	s := &setter{steps: make([]pathStep, len(steps))}
	copy(s.steps, steps)
	return s
}

// newContainer builds the container a step indexes into.
func newContainer(st pathStep) any {
	if st.kind == kindArray {
		return make([]any, st.size)
	}
	return make(map[string]any)
}

// set assigns v at the setter's path under root. An undefined (nil) value
// leaves root completely untouched: containers are only materialized once
// a defined value actually arrives.
func (s *setter) set(root map[string]any, v any) {
	if v == nil {
		return
	}

	cur := any(root)
	for i, st := range s.steps {
		last := i == len(s.steps)-1

		switch st.kind {
		case kindObject:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			if last {
				m[st.key] = v
				return
			}
			child, ok := m[st.key]
			if !ok || child == nil {
				child = newContainer(s.steps[i+1])
				m[st.key] = child
			}
			cur = child

		case kindArray:
			arr, ok := cur.([]any)
			if !ok || st.index >= len(arr) {
				return
			}
			if last {
				arr[st.index] = v
				return
			}
			if arr[st.index] == nil {
				arr[st.index] = newContainer(s.steps[i+1])
			}
			cur = arr[st.index]
		}
	}
}
