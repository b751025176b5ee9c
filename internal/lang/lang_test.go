package lang

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/require"
)

func TestForExtensionResolvesRegisteredLanguages(t *testing.T) {
	require.NotNil(t, ForExtension(".ts"))
	require.NotNil(t, ForExtension(".js"))
	require.Nil(t, ForExtension(".go"))
}

func TestEnclosingClassNameWalksUpToNearestClass(t *testing.T) {
	src := []byte(`class OrderService {
  cancelOrder(id) {
    return id;
  }
}`)
	l := ForExtension(".js")
	require.NotNil(t, l)

	p := l.NewParser()
	tree, err := p.ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)
	root := tree.RootNode()

	var methodNode *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil || methodNode != nil {
			return
		}
		if l.IsMethod(n) {
			methodNode = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	require.NotNil(t, methodNode)
	require.Equal(t, "OrderService", l.EnclosingClassName(methodNode, src))
}
