package cpp

// A hideset holds the names of the macros a token was produced by. A token
// naming a macro in its own hideset is never expanded again.
//
// Hidesets are immutable lists kept sorted by name, so tokens of one
// expansion share them and set operations are linear merges. They stay
// small in practice.
type hideset struct {
	r   *hideset
	val string
}

var emptyHS *hideset = nil

func (hs *hideset) len() int {
	n := 0
	for ; hs != emptyHS; hs = hs.r {
		n++
	}
	return n
}

func (hs *hideset) contains(s string) bool {
	for ; hs != emptyHS && hs.val <= s; hs = hs.r {
		if hs.val == s {
			return true
		}
	}
	return false
}

// add returns hs with s added, sharing the tail after s.
func (hs *hideset) add(s string) *hideset {
	if hs == emptyHS || s < hs.val {
		return &hideset{r: hs, val: s}
	}
	if s == hs.val {
		return hs
	}
	rest := hs.r.add(s)
	if rest == hs.r {
		return hs
	}
	return &hideset{r: rest, val: hs.val}
}

// union returns the names in either hs or b.
func (hs *hideset) union(b *hideset) *hideset {
	switch {
	case hs == emptyHS:
		return b
	case b == emptyHS:
		return hs
	case hs.val < b.val:
		return &hideset{r: hs.r.union(b), val: hs.val}
	case b.val < hs.val:
		return &hideset{r: hs.union(b.r), val: b.val}
	}
	return &hideset{r: hs.r.union(b.r), val: hs.val}
}

// intersection returns the names in both hs and b.
func (hs *hideset) intersection(b *hideset) *hideset {
	for hs != emptyHS && b != emptyHS {
		switch {
		case hs.val < b.val:
			hs = hs.r
		case b.val < hs.val:
			b = b.r
		default:
			return &hideset{r: hs.r.intersection(b.r), val: hs.val}
		}
	}
	return emptyHS
}

func (hs *hideset) names() []string {
	var ret []string
	for ; hs != emptyHS; hs = hs.r {
		ret = append(ret, hs.val)
	}
	return ret
}
