package grammar

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/ClaytonKnittel/fileserverd/pkg/pattern"
)

// compiledNode is the gob-friendly mirror of pattern.Node, used only for
// on-disk persistence of a compiled FSM.
type compiledNode struct {
	Kind                pattern.Kind
	RefCount            int
	Word                []byte
	Class               pattern.CharClass
	Min, Max            int
	Capture             bool
	MatchIndex          int
	Body, Next, Alt     int
}

type compiledFile struct {
	Nodes []compiledNode
	Entry int
}

// Save serializes a compiled arena and its entry point to a .cbnf file, so
// a grammar does not need to be re-parsed from source on every startup.
func Save(path string, a *pattern.Arena, entry int) error {
	f := compiledFile{Entry: entry}
	for i := 0; i < a.Len(); i++ {
		n := a.Get(i)
		f.Nodes = append(f.Nodes, compiledNode{
			Kind: n.Kind, RefCount: n.RefCount, Word: n.Word, Class: n.Class,
			Min: n.Min, Max: n.Max, Capture: n.Capture, MatchIndex: n.MatchIndex,
			Body: n.Body, Next: n.Next, Alt: n.Alt,
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("grammar: encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reconstructs an arena and entry point previously written by Save.
func Load(path string) (*pattern.Arena, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pattern.NoNode, fmt.Errorf("grammar: read %s: %w", path, err)
	}

	var f compiledFile
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&f); err != nil {
		return nil, pattern.NoNode, fmt.Errorf("grammar: decode %s: %w", path, err)
	}

	a := pattern.NewArena()
	for _, cn := range f.Nodes {
		idx := a.Alloc(cn.Kind)
		n := a.Get(idx)
		n.RefCount, n.Word, n.Class = cn.RefCount, cn.Word, cn.Class
		n.Min, n.Max, n.Capture, n.MatchIndex = cn.Min, cn.Max, cn.Capture, cn.MatchIndex
		n.Body, n.Next, n.Alt = cn.Body, cn.Next, cn.Alt
	}
	return a, f.Entry, nil
}
