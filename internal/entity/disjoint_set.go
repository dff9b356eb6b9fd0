package entity

// DisjointSet is a union-find over board cells plus two virtual border nodes.
type DisjointSet struct {
	parent []int
	rank   []int
}

func NewDisjointSet(size int) *DisjointSet {
	ds := &DisjointSet{
		parent: make([]int, size),
		rank:   make([]int, size),
	}

	for i := range ds.parent {
		ds.parent[i] = i
	}

	return ds
}

// Find returns the root of x, compressing the path on the way.
func (that *DisjointSet) Find(x int) int {
	root := x
	for that.parent[root] != root {
		root = that.parent[root]
	}

	for that.parent[x] != root {
		next := that.parent[x]
		that.parent[x] = root
		x = next
	}

	return root
}

func (that *DisjointSet) Union(a, b int) {
	rootA, rootB := that.Find(a), that.Find(b)
	if rootA == rootB {
		return
	}

	switch {
	case that.rank[rootA] < that.rank[rootB]:
		that.parent[rootA] = rootB
	case that.rank[rootA] > that.rank[rootB]:
		that.parent[rootB] = rootA
	default:
		that.parent[rootB] = rootA
		that.rank[rootA]++
	}
}

func (that *DisjointSet) Connected(a, b int) bool {
	return that.Find(a) == that.Find(b)
}
