package oberon

// Scope is a single symbol table. Names keep their insertion order.
type Scope[T any] struct {
	entries map[string]T
	order   []string
}

func NewScope[T any]() *Scope[T] {
	return &Scope[T]{
		entries: make(map[string]T),
	}
}

// Insert binds name to value unless name is already bound in this scope.
// It reports whether the binding was made.
func (s *Scope[T]) Insert(name string, value T) bool {
	if _, ok := s.entries[name]; ok {
		return false
	}
	s.entries[name] = value
	s.order = append(s.order, name)
	return true
}

func (s *Scope[T]) Lookup(name string) (T, bool) {
	v, ok := s.entries[name]
	return v, ok
}

func (s *Scope[T]) Names() []string {
	return s.order
}

func (s *Scope[T]) Len() int {
	return len(s.order)
}

// ScopeStack is an ordered stack of scopes; index 0 is the module scope.
type ScopeStack[T any] struct {
	scopes []*Scope[T]
}

func NewScopeStack[T any]() *ScopeStack[T] {
	return &ScopeStack[T]{}
}

func (s *ScopeStack[T]) Push() *Scope[T] {
	scope := NewScope[T]()
	s.scopes = append(s.scopes, scope)
	return scope
}

func (s *ScopeStack[T]) Pop() {
	if len(s.scopes) == 0 {
		panic("pop of empty scope stack")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Open pushes a scope and returns the function that pops it. The returned
// function panics if the stack is not at the depth Open left it at.
func (s *ScopeStack[T]) Open() func() {
	s.Push()
	depth := len(s.scopes)
	return func() {
		if len(s.scopes) != depth {
			panic("unbalanced scope stack")
		}
		s.Pop()
	}
}

// Lookup searches from the innermost scope outwards.
func (s *ScopeStack[T]) Lookup(name string) (T, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].Lookup(name); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// LookupLocal searches the innermost scope only.
func (s *ScopeStack[T]) LookupLocal(name string) (T, bool) {
	if len(s.scopes) == 0 {
		var zero T
		return zero, false
	}
	return s.scopes[len(s.scopes)-1].Lookup(name)
}

// Insert binds name in the innermost scope; see Scope.Insert.
func (s *ScopeStack[T]) Insert(name string, value T) bool {
	if len(s.scopes) == 0 {
		panic("insert into empty scope stack")
	}
	return s.scopes[len(s.scopes)-1].Insert(name, value)
}

func (s *ScopeStack[T]) Depth() int {
	return len(s.scopes)
}

// Len is the number of names bound over all scopes.
func (s *ScopeStack[T]) Len() int {
	n := 0
	for _, scope := range s.scopes {
		n += scope.Len()
	}
	return n
}
