package wview

import (
	"bytes"

	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// checkTypeChange enforces the allow-child policy table:
// whether parent (the node whose child is being replaced) permits its
// child at childIndex to change from oldT to newT. A tuple accepts any
// non-void field type, but since the field type is spelled out in the
// tuple's own descriptor, the widened tuple must in turn be acceptable
// to the tuple's own parent — the check recurses up the tree and the
// first denying ancestor is reported.
func checkTypeChange(parent *Node, childIndex int, oldT, newT []byte) *errval.Error {
	if bytes.Equal(oldT, newT) {
		return nil
	}
	if parent == nil {
		// A detached/root node may freely change its own type.
		return nil
	}
	switch parent.TypeChar() {
	case typestring.Any:
		return nil
	case typestring.Expect:
		if len(newT) == 1 && typestring.Char(newT[0]) == typestring.ErrRec {
			return nil
		}
		children, cerr := typestring.Children(parent.Type())
		if cerr != nil {
			return cerr
		}
		if len(children) == 1 && bytes.Equal(newT, children[0]) {
			return nil
		}
		return denyErr(parent, childIndex, newT)
	case typestring.ExpectV:
		// X wraps void, so the child may be void (present) or e (error).
		if len(newT) == 0 {
			return nil
		}
		if len(newT) == 1 && typestring.Char(newT[0]) == typestring.ErrRec {
			return nil
		}
		return denyErr(parent, childIndex, newT)
	case typestring.Opt:
		if len(newT) == 0 {
			return denyErr(parent, childIndex, newT)
		}
		children, cerr := typestring.Children(parent.Type())
		if cerr != nil {
			return cerr
		}
		if len(children) == 1 && bytes.Equal(newT, children[0]) {
			return nil
		}
		return denyErr(parent, childIndex, newT)
	case typestring.ErrRec, typestring.List, typestring.Map:
		return denyErr(parent, childIndex, newT)
	case typestring.Tuple:
		if len(newT) == 0 {
			return denyErr(parent, childIndex, newT)
		}
		oldPT := parent.Type()
		fields, cerr := typestring.Children(oldPT)
		if cerr != nil {
			return cerr
		}
		if childIndex < 0 || childIndex >= len(fields) {
			return errval.APIErr("wview", "tuple index out of range")
		}
		fields[childIndex] = newT
		return checkTypeChange(parent.parent, parent.index, oldPT, rebuildTupleType(fields))
	default:
		return denyErr(parent, childIndex, newT)
	}
}

// denyErr names the ancestor that refused the change and the position
// of the offending child slot within it.
func denyErr(parent *Node, childIndex int, newT []byte) *errval.Error {
	return &errval.Error{
		Kind:       errval.API,
		Op:         "wview",
		SourceType: string(parent.Type()),
		SourcePos:  childIndex,
		TargetType: string(newT),
		Detail:     "parent does not allow this child's type to change",
	}
}
