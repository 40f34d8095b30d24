package model

import "fmt"

// ContainerMismatchError reports a structural-invariant violation: a reply
// was placed in a different thread or article than its parent. It is raised
// synchronously on assignment and is never retried, since retrying an
// invalid input cannot succeed.
type ContainerMismatchError struct {
	PostingID       int64
	ParentID        int64
	Container       string
	ContainerID     int64
	ParentContainer int64
}

func (e *ContainerMismatchError) Error() string {
	return fmt.Sprintf(
		"posting %d is in %s %d but its parent %d is in %s %d",
		e.PostingID, e.Container, e.ContainerID, e.ParentID, e.Container, e.ParentContainer,
	)
}
