package nn

import (
	"fmt"
	"sort"

	"github.com/awalterschulze/gographviz"
	"github.com/chewxy/math32"
)

type edge struct {
	from, to string
	weight   float32
}

func strongest(rows [][]float32, fromPrefix, toPrefix string, k int) []edge {
	var edges []edge
	for i, row := range rows {
		for j, w := range row {
			edges = append(edges, edge{
				from:   fmt.Sprintf("%s%d", fromPrefix, i),
				to:     fmt.Sprintf("%s%d", toPrefix, j),
				weight: w,
			})
		}
	}
	sort.SliceStable(edges, func(a, b int) bool {
		return math32.Abs(edges[a].weight) > math32.Abs(edges[b].weight)
	})
	if k < len(edges) {
		edges = edges[:k]
	}
	return edges
}

// ToDot renders the k strongest connections of each layer as a graphviz graph.
// Positive weights are drawn in blue, negative ones in red.
func ToDot(p *Params, k int) string {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		panic(err)
	}
	g.SetDir(true)
	g.AddAttr("G", "rankdir", "LR")

	edges := append(strongest(p.W(), "x", "h", k), strongest(p.V(), "h", "y", k)...)
	seen := make(map[string]bool)
	for _, e := range edges {
		for _, n := range []string{e.from, e.to} {
			if seen[n] {
				continue
			}
			seen[n] = true
			shape := "circle"
			if n[0] == 'y' {
				shape = "doublecircle"
			}
			g.AddNode("G", n, map[string]string{"shape": shape})
		}
		colour := "blue"
		if e.weight < 0 {
			colour = "red"
		}
		g.AddEdge(e.from, e.to, true, map[string]string{
			"color":    colour,
			"penwidth": fmt.Sprintf("%.2f", 1+2*math32.Abs(e.weight)),
			"label":    fmt.Sprintf("%q", fmt.Sprintf("%.2f", e.weight)),
		})
	}
	return g.String()
}
