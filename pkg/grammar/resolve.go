package grammar

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ClaytonKnittel/fileserverd/pkg/pattern"
)

const (
	markUnvisited = 0
	markProcessing = 1
	markVisited    = 2
)

// resolveSymbols walks the FSM rooted at mainRule, replacing every
// KindUnresolved placeholder with a deep copy of the rule it names. A rule
// still being resolved higher up the call stack (markProcessing) referenced
// again is a circular definition; a name absent from the rule table is
// undefined. Once resolution finishes, any rule never reached from
// mainRule is logged and left unreferenced.
func (p *parser) resolveSymbols(mainRule int) error {
	state := make(map[int]int)
	if err := p.resolveNode(mainRule, state); err != nil {
		return err
	}

	p.rules.Each(func(name string, idx int) {
		if state[idx] != markVisited {
			logrus.Warnf("grammar: rule %q is never referenced from the entry rule", name)
		}
	})
	return nil
}

func (p *parser) resolveNode(idx int, state map[int]int) error {
	if idx == pattern.NoNode || state[idx] != markUnvisited {
		return nil
	}
	state[idx] = markProcessing

	node := p.arena.Get(idx)
	if node.Kind == pattern.KindToken && node.Body != pattern.NoNode {
		if body := p.arena.Get(node.Body); body.Kind == pattern.KindUnresolved {
			if err := p.resolveReference(node, state); err != nil {
				return err
			}
		}
	}

	if node.Body != pattern.NoNode && p.arena.Get(node.Body).Kind == pattern.KindToken {
		if err := p.resolveNode(node.Body, state); err != nil {
			return err
		}
	}
	if err := p.resolveNode(node.Next, state); err != nil {
		return err
	}
	if err := p.resolveNode(node.Alt, state); err != nil {
		return err
	}

	state[idx] = markVisited
	return nil
}

// resolveReference substitutes node.Body (currently a KindUnresolved
// placeholder) with a deep copy of the rule it names, fully resolving that
// rule first if this is its first reference.
func (p *parser) resolveReference(node *pattern.Node, state map[int]int) error {
	unresolved := node.Body
	name := string(p.arena.Get(unresolved).Word)

	target, ok := p.rules.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUndefinedSymbol, name)
	}
	if state[target] == markProcessing {
		return fmt.Errorf("%w: %q", ErrCircularDefinition, name)
	}
	if state[target] == markUnvisited {
		if err := p.resolveNode(target, state); err != nil {
			return err
		}
	}

	cpy := pattern.DeepCopy(p.arena, target)
	node.Body = cpy
	p.arena.Retain(cpy)
	p.arena.Release(unresolved)
	return nil
}
