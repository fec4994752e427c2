package gql

import (
	"github.com/graphql-go/graphql/language/ast"
)

// DefaultMaxDepth is used when no limit is configured
const DefaultMaxDepth = 10

// documentDepth returns the deepest field nesting of any operation in doc.
// A leaf field adds nothing and a field with a selection set adds one, so
// "{ recipes { id } }" has depth 1. Fragment spreads are expanded in place;
// a spread already being expanded counts as a leaf so cycles terminate
// (the validator rejects them afterwards).
func documentDepth(doc *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, def := range doc.Definitions {
		if frag, ok := def.(*ast.FragmentDefinition); ok && frag.Name != nil {
			fragments[frag.Name.Value] = frag
		}
	}

	maxDepth := 0
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		d := selectionDepth(op.SelectionSet, fragments, map[string]bool{})
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

func selectionDepth(set *ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, visiting map[string]bool) int {
	if set == nil {
		return 0
	}

	deepest := 0
	for _, sel := range set.Selections {
		var d int
		switch node := sel.(type) {
		case *ast.Field:
			if node.SelectionSet == nil || len(node.SelectionSet.Selections) == 0 {
				continue
			}
			d = 1 + selectionDepth(node.SelectionSet, fragments, visiting)
		case *ast.InlineFragment:
			d = selectionDepth(node.SelectionSet, fragments, visiting)
		case *ast.FragmentSpread:
			if node.Name == nil {
				continue
			}
			name := node.Name.Value
			frag, ok := fragments[name]
			if !ok || visiting[name] {
				continue
			}
			visiting[name] = true
			d = selectionDepth(frag.SelectionSet, fragments, visiting)
			delete(visiting, name)
		}
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}
