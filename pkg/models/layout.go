package models

const (
	layoutOriginX           = 400
	layoutOriginY           = 120
	layoutHorizontalSpacing = 300
	layoutVerticalSpacing   = 150
)

// PositionNodes gives every node without a position a spot on a layered
// grid: one row per longest-path depth from the roots, rows centered on the
// origin. Nodes caught in cycles are placed on the row after the deepest one.
func (w *Workflow) PositionNodes() {
	positions := w.layout()

	for _, n := range w.nodes {
		if pos, ok := positions[n.Ref()]; ok {
			n.SetPosition(pos.X, pos.Y)
		}
	}
}

// layout returns the grid position of every node that has none, by ref.
func (w *Workflow) layout() map[string]Position {
	positions := make(map[string]Position)
	if len(w.nodes) == 0 {
		return positions
	}

	layers := w.layers()

	rows := make(map[int][]Node)
	deepest := 0

	for _, n := range w.nodes {
		layer := layers[n.Ref()]
		rows[layer] = append(rows[layer], n)

		if layer > deepest {
			deepest = layer
		}
	}

	for layer := 0; layer <= deepest; layer++ {
		row := rows[layer]
		offset := float64(len(row)-1) / 2

		for i, n := range row {
			if _, placed := n.Position(); placed {
				continue
			}

			positions[n.Ref()] = Position{
				X: layoutOriginX + (float64(i)-offset)*layoutHorizontalSpacing,
				Y: layoutOriginY + float64(layer)*layoutVerticalSpacing,
			}
		}
	}

	return positions
}

// layers computes the longest-path depth of each node with Kahn's algorithm.
func (w *Workflow) layers() map[string]int {
	indegree := make(map[string]int, len(w.nodes))
	for _, n := range w.nodes {
		indegree[n.Ref()] = 0
	}

	for _, e := range w.edges {
		if e.IsSelfLoop() {
			continue
		}

		indegree[e.Target.Ref()]++
	}

	depth := make(map[string]int, len(w.nodes))
	queue := make([]Node, 0, len(w.nodes))

	for _, n := range w.nodes {
		if indegree[n.Ref()] == 0 {
			queue = append(queue, n)
		}
	}

	visited := 0
	deepest := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		for _, e := range w.edges {
			if e.Source != current || e.IsSelfLoop() {
				continue
			}

			target := e.Target.Ref()
			if d := depth[current.Ref()] + 1; d > depth[target] {
				depth[target] = d
			}

			indegree[target]--
			if indegree[target] == 0 {
				queue = append(queue, e.Target)
			}
		}

		if depth[current.Ref()] > deepest {
			deepest = depth[current.Ref()]
		}
	}

	if visited < len(w.nodes) {
		for _, n := range w.nodes {
			if indegree[n.Ref()] > 0 {
				depth[n.Ref()] = deepest + 1
			}
		}
	}

	return depth
}
