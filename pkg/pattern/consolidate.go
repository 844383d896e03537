package pattern

// Consolidate applies a fixed set of graph-shrinking rewrites to the FSM
// rooted at root, once, idempotently, via pre-order traversal with a
// seen-set to avoid revisiting a token more than once (tokens may be
// reachable along more than one path once sub-token cycles back into
// their parents are taken into account).
//
// Every rewrite updates reference counts and returns any node that drops to
// zero references to the arena's free list via Arena.Release.
func Consolidate(a *Arena, root int) {
	seen := make(map[int]bool)
	consolidate(a, root, NoNode, seen)
}

func consolidate(a *Arena, t, parent int, seen map[int]bool) {
	if t == NoNode || t == parent {
		return
	}
	if seen[t] {
		return
	}
	seen[t] = true

	tryElevate(a, t)
	tryAltMerge(a, t)
	trySequentialLiteralMerge(a, t)
	trySelfReplication(a, t)

	node := a.Get(t)
	consolidate(a, node.Next, NoNode, seen)
	if node.Alt != NoNode {
		consolidate(a, node.Alt, NoNode, seen)
	}
	if node.Body != NoNode && a.Get(node.Body).Kind == KindToken {
		consolidate(a, node.Body, t, seen)
	}
}

// tryElevate implements "Token elevation": if t's body is a token b, and
// either (a) t is 1*1 and neither captures, or (b) b is the only referrer
// back to t (b.Next == t, b.Alt == nil) and b.Min <= 1, replace t with b,
// multiplying repetition bounds.
func tryElevate(a *Arena, t int) {
	node := a.Get(t)
	if node.Kind != KindToken || node.Body == NoNode {
		return
	}
	bodyIdx := node.Body
	body := a.Get(bodyIdx)
	if body.Kind != KindToken || body.Capture {
		return
	}

	nodeOnly := body.Next == t && body.Alt == NoNode
	caseA := !node.Capture && node.Min == 1 && node.Max == 1
	caseB := nodeOnly && body.Min <= 1

	if !(caseA || caseB) {
		return
	}

	newMin := node.Min * body.Min
	var newMax int
	if node.Max == -1 || body.Max == -1 {
		newMax = -1
	} else {
		newMax = node.Max * body.Max
	}

	// Disconnect the cycle back into t from body's subgraph before we
	// overwrite t's contents with body's.
	next, alt := node.Next, node.Alt
	capture, matchIdx := node.Capture, node.MatchIndex

	*node = *body
	node.Capture = capture
	node.MatchIndex = matchIdx
	node.Min = newMin
	node.Max = newMax

	// Re-home body's own Next/Alt (which may have pointed back at t) onto
	// t's original successors, and retain them in body's place.
	if node.Next == t || node.Next == NoNode {
		node.Next = next
	} else {
		a.Release(next)
	}
	if alt != NoNode {
		if node.Alt == NoNode {
			node.Alt = alt
		} else {
			a.Release(alt)
		}
	}

	a.free = append(a.free, bodyIdx)
}

// tryAltMerge implements "Alt merge to char-class": if t.Alt == u,
// t.Next == u.Next, both once-required or both with equal (min,max),
// neither captures, and each body is a single-character literal or
// char-class, fuse the two into one char-class and drop u.
func tryAltMerge(a *Arena, t int) {
	node := a.Get(t)
	if node.Kind != KindToken || node.Alt == NoNode || node.Capture {
		return
	}
	u := node.Alt
	other := a.Get(u)
	if other.Kind != KindToken || other.Capture {
		return
	}
	if node.Next != other.Next {
		return
	}
	if node.Min != other.Min || node.Max != other.Max {
		return
	}

	cls, ok := singleCharClass(a, node.Body)
	if !ok {
		return
	}
	otherCls, ok := singleCharClass(a, other.Body)
	if !ok {
		return
	}

	fused := cls.Union(otherCls)

	bodyIdx := a.Alloc(KindCharClass)
	a.Get(bodyIdx).Class = fused

	oldBody := node.Body
	a.Release(oldBody)
	node.Body = bodyIdx
	a.Retain(bodyIdx)

	nextAlt := other.Alt
	a.Retain(nextAlt)
	a.Release(u)
	node.Alt = nextAlt
}

// singleCharClass returns the char class a single-character literal or
// char-class node represents, and whether body qualifies.
func singleCharClass(a *Arena, body int) (CharClass, bool) {
	node := a.Get(body)
	switch node.Kind {
	case KindCharClass:
		return node.Class, true
	case KindLiteral:
		if len(node.Word) != 1 {
			return CharClass{}, false
		}
		var c CharClass
		c.Set(node.Word[0])
		return c, true
	}
	return CharClass{}, false
}

// trySequentialLiteralMerge implements "Sequential literal merge": if
// t.Next == u with u.Alt == nil, both with min == max, u has ref-count 1,
// neither captures, and both bodies are literals, replace with a single
// literal = t.word*t.max ++ u.word*u.max and set (min,max) := (1,1).
func trySequentialLiteralMerge(a *Arena, t int) {
	node := a.Get(t)
	if node.Kind != KindToken || node.Capture || node.Next == NoNode {
		return
	}
	if node.Min != node.Max {
		return
	}
	u := node.Next
	other := a.Get(u)
	if other.Kind != KindToken || other.Capture || other.Alt != NoNode {
		return
	}
	if other.Min != other.Max {
		return
	}
	if other.RefCount != 1 {
		return
	}

	tLit := a.Get(node.Body)
	uLit := a.Get(other.Body)
	if tLit.Kind != KindLiteral || uLit.Kind != KindLiteral {
		return
	}

	word := repeatBytes(tLit.Word, node.Max)
	word = append(word, repeatBytes(uLit.Word, other.Max)...)

	litIdx := a.Alloc(KindLiteral)
	a.Get(litIdx).Word = word

	oldBody := node.Body
	a.Release(oldBody)
	node.Body = litIdx
	a.Retain(litIdx)
	node.Min, node.Max = 1, 1

	newNext := other.Next
	a.Retain(newNext)
	a.Release(u)
	node.Next = newNext
}

// trySelfReplication implements "Self-replication literal": if t is a
// literal-bodied token with min == max == n > 1, expand the word n times
// and set (min,max) := (1,1).
func trySelfReplication(a *Arena, t int) {
	node := a.Get(t)
	if node.Kind != KindToken || node.Min != node.Max || node.Min <= 1 {
		return
	}
	body := a.Get(node.Body)
	if body.Kind != KindLiteral {
		return
	}
	n := node.Min
	litIdx := a.Alloc(KindLiteral)
	a.Get(litIdx).Word = repeatBytes(body.Word, n)

	oldBody := node.Body
	a.Release(oldBody)
	node.Body = litIdx
	a.Retain(litIdx)
	node.Min, node.Max = 1, 1
}

func repeatBytes(word []byte, n int) []byte {
	out := make([]byte, 0, len(word)*n)
	for i := 0; i < n; i++ {
		out = append(out, word...)
	}
	return out
}
