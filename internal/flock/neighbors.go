package flock

// interactionSums accumulates the weighted heading sums for agent i over the
// O(N^2) reference neighbour query: every agent j with plain Euclidean
// distance strictly below i's interaction radius contributes
// weight[j]*(sin, cos) of its current heading. Agent i is its own neighbour
// whenever its radius is positive.
//
// The leader variant adds a second pass over the first Leaders.Count agents
// with the fixed leader radius, scaled by the leader weight.
//
// interacting reports whether any agent (including i itself) fell inside a
// radius; when false the caller retains the agent's own heading.
func (m *Model) interactionSums(i int) (s, c float64, interacting bool) {
	xi, yi := m.xs[i], m.ys[i]
	r2 := m.radius[i] * m.radius[i]

	count := 0
	for j := 0; j < m.n; j++ {
		dx := m.xs[j] - xi
		dy := m.ys[j] - yi
		if dx*dx+dy*dy < r2 {
			s += m.weight[j] * m.sinH[j]
			c += m.weight[j] * m.cosH[j]
			count++
		}
	}

	if m.leaders.Count > 0 {
		lr2 := m.leaders.Radius * m.leaders.Radius
		for k := 0; k < m.leaders.Count; k++ {
			dx := m.xs[k] - xi
			dy := m.ys[k] - yi
			if dx*dx+dy*dy < lr2 {
				s += m.leaders.Weight * m.sinH[k]
				c += m.leaders.Weight * m.cosH[k]
				count++
			}
		}
	}

	return s, c, count > 0
}

// Neighbors returns the indices of the agents within agent i's interaction
// radius, in agent index order. It is a pure function of the current
// positions, exposed for inspection and tests; Step uses interactionSums
// directly.
func (m *Model) Neighbors(i int) []int {
	xi, yi := m.xs[i], m.ys[i]
	r2 := m.radius[i] * m.radius[i]

	var out []int
	for j := 0; j < m.n; j++ {
		dx := m.xs[j] - xi
		dy := m.ys[j] - yi
		if dx*dx+dy*dy < r2 {
			out = append(out, j)
		}
	}
	return out
}
