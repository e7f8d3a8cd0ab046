package lalr

import "fmt"

// stack pairs the state stack with the value stack. Between operations
// len(states) == len(values)+1 and states[0] is the initial state.
type stack struct {
	states []int
	values []Value
}

func newStack() *stack {
	return &stack{states: []int{0}}
}

func (s *stack) top() int { return s.states[len(s.states)-1] }

func (s *stack) depth() int { return len(s.states) }

func (s *stack) push(state int, v Value) {
	s.states = append(s.states, state)
	s.values = append(s.values, v)
}

// topValues returns a copy of the k topmost values, bottom first.
func (s *stack) topValues(k int) ([]Value, error) {
	if k > len(s.values) {
		return nil, &StructuralError{Op: "stack", Msg: fmt.Sprintf("need %d values, have %d", k, len(s.values))}
	}
	return append([]Value(nil), s.values[len(s.values)-k:]...), nil
}

func (s *stack) pop(k int) error {
	if k > len(s.values) {
		return &StructuralError{Op: "stack", Msg: fmt.Sprintf("cannot pop %d of %d values", k, len(s.values))}
	}
	s.states = s.states[:len(s.states)-k]
	s.values = s.values[:len(s.values)-k]
	return nil
}

// popOne removes the top state and value pair and returns the value.
func (s *stack) popOne() (Value, error) {
	if len(s.values) == 0 {
		return nil, &StructuralError{Op: "stack", Msg: "pop from empty stack"}
	}
	v := s.values[len(s.values)-1]
	s.states = s.states[:len(s.states)-1]
	s.values = s.values[:len(s.values)-1]
	return v, nil
}

func (s *stack) check() error {
	if len(s.states) < 1 || len(s.states) != len(s.values)+1 {
		return &StructuralError{Op: "stack", Msg: fmt.Sprintf("%d states for %d values", len(s.states), len(s.values))}
	}
	return nil
}
