package syntax

// Unit is one parsed source file. Root is nil when parsing failed, in which
// case Err carries the reason.
type Unit struct {
	ID   string
	Text []byte
	Root *Node
	Err  error
}

// Span covers the whole unit text.
func (u *Unit) Span() Span {
	return Span{Start: 0, End: len(u.Text), Line: 1, Column: 1}
}

// Lines returns the number of lines in the unit text.
func (u *Unit) Lines() int {
	if len(u.Text) == 0 {
		return 0
	}
	n := 1
	for _, b := range u.Text {
		if b == '\n' {
			n++
		}
	}
	return n
}
