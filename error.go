package oberon

import "fmt"

type Error struct {
	pos Pos
	msg string
}

func NewError(pos Pos, format string, args ...interface{}) Error {
	return Error{
		pos: pos,
		msg: fmt.Sprintf(format, args...),
	}
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: error: %s", e.pos, e.msg)
}

func (e Error) Pos() Pos {
	return e.pos
}

func (e Error) Message() string {
	return e.msg
}
