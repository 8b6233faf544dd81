package mount

import "fmt"

// Error wraps a non-OK mountstat3 status returned by the server.
type Error struct {
	Op     string
	Status Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("mount: %s: %s", e.Op, e.Status)
}
