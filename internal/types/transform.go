package types

// Action is the result of a per-node transform step (spec.md §4.1 "Transform").
type Action struct {
	stepOver    bool
	replacement Type
}

// StepInto continues the fold into this node's children.
func StepInto() Action { return Action{} }

// StepOver short-circuits the fold at this node, substituting replacement.
func StepOver(replacement Type) Action { return Action{stepOver: true, replacement: replacement} }

// Transform folds f over t, replacing nodes where f requests StepOver and
// otherwise recursing into children and rebuilding the node.
func Transform(t Type, f func(Type) Action) Type {
	if t == nil {
		return nil
	}
	act := f(t)
	if act.stepOver {
		return act.replacement
	}
	children := t.Children()
	if len(children) == 0 {
		return t
	}
	newChildren := make([]Type, len(children))
	changed := false
	for i, c := range children {
		nc := Transform(c, f)
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	if !changed {
		return t
	}
	return t.WithChildren(newChildren)
}
