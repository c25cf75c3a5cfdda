package comments

// ThreadNode is a top-level comment with its replies.
type ThreadNode struct {
	Comment Comment   `json:"comment"`
	Replies []Comment `json:"replies"`
}

// BuildThreads groups list (already filtered to one target) into at most
// two levels, keeping the order of list. A reply whose parent is itself a
// reply is attached to its top-level ancestor. Replies whose ancestor chain
// is broken are dropped.
func BuildThreads(list []Comment) []ThreadNode {
	byID := make(map[string]Comment, len(list))
	for _, c := range list {
		byID[c.ID] = c
	}

	var nodes []ThreadNode
	index := make(map[string]int)
	for _, c := range list {
		if c.IsTopLevel() {
			index[c.ID] = len(nodes)
			nodes = append(nodes, ThreadNode{Comment: c, Replies: []Comment{}})
		}
	}
	for _, c := range list {
		if c.IsTopLevel() {
			continue
		}
		root, ok := rootOf(c, byID)
		if !ok {
			continue
		}
		i := index[root]
		nodes[i].Replies = append(nodes[i].Replies, c)
	}
	if nodes == nil {
		nodes = []ThreadNode{}
	}
	return nodes
}

func rootOf(c Comment, byID map[string]Comment) (string, bool) {
	seen := map[string]bool{c.ID: true}
	for c.ParentID != nil {
		p, ok := byID[*c.ParentID]
		if !ok || seen[p.ID] {
			return "", false
		}
		seen[p.ID] = true
		c = p
	}
	return c.ID, true
}
