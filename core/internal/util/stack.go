package util

// StackInf is a stack of interface values used for iterative tree walks.
type StackInf struct {
	st []interface{}
}

func NewStackInf() *StackInf {
	return &StackInf{}
}

func (s *StackInf) Len() int {
	return len(s.st)
}

func (s *StackInf) Push(v interface{}) {
	s.st = append(s.st, v)
}

func (s *StackInf) Pop() interface{} {
	if len(s.st) == 0 {
		return nil
	}
	v := s.st[len(s.st)-1]
	s.st = s.st[:len(s.st)-1]
	return v
}

func (s *StackInf) Peek() interface{} {
	if len(s.st) == 0 {
		return nil
	}
	return s.st[len(s.st)-1]
}
