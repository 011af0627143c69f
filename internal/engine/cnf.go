package engine

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// pairwiseLimit is the largest at-most-one set encoded with binary clauses; larger sets
// use a sequential counter.
const pairwiseLimit = 6

// cnf allocates variables and emits clauses into a gini solver.
type cnf struct {
	g    *gini.Gini
	last z.Var
}

func newCNF() *cnf {
	return &cnf{g: gini.New()}
}

func (c *cnf) lit() z.Lit {
	c.last++
	return c.last.Pos()
}

func (c *cnf) clause(ms ...z.Lit) {
	for _, m := range ms {
		c.g.Add(m)
	}
	c.g.Add(z.LitNull)
}

func (c *cnf) implies(a, b z.Lit) {
	c.clause(a.Not(), b)
}

func (c *cnf) equal(a, b z.Lit) {
	c.implies(a, b)
	c.implies(b, a)
}

func (c *cnf) atMostOne(xs []z.Lit) {
	switch {
	case len(xs) <= 1:
		return
	case len(xs) <= pairwiseLimit:
		for i := 0; i < len(xs); i++ {
			for j := i + 1; j < len(xs); j++ {
				c.clause(xs[i].Not(), xs[j].Not())
			}
		}
	default:
		c.atMostK(xs, 1)
	}
}

func (c *cnf) exactlyOne(xs []z.Lit) {
	c.clause(xs...)
	c.atMostOne(xs)
}

func (c *cnf) atMostK(xs []z.Lit, k int) {
	if k >= len(xs) {
		return
	}
	if k <= 0 {
		for _, x := range xs {
			c.clause(x.Not())
		}
		return
	}
	outs := c.counter(xs, k+1)
	c.clause(outs[k].Not())
}

// counter builds a sequential counter over xs. outs[j] is forced true whenever more
// than j inputs are true, for j < limit. Only the upward direction is encoded, so
// asserting or assuming outs[j].Not() bounds the count to j.
func (c *cnf) counter(xs []z.Lit, limit int) []z.Lit {
	if limit > len(xs) {
		limit = len(xs)
	}
	if limit <= 0 {
		return nil
	}
	prev := make([]z.Lit, limit)
	for i, x := range xs {
		cur := make([]z.Lit, limit)
		for j := range cur {
			cur[j] = c.lit()
		}
		c.implies(x, cur[0])
		for j := 0; j < limit; j++ {
			if i == 0 {
				break
			}
			c.implies(prev[j], cur[j])
			if j > 0 {
				c.clause(x.Not(), prev[j-1].Not(), cur[j])
			}
		}
		prev = cur
	}
	return prev
}
