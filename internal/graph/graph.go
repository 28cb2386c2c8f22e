// Package graph compiles agent and direction declarations into an executable
// conversation graph.
//
// Directions use an arrow syntax with an optional condition clause:
//
//	START -> teacher
//	teacher -> student
//	student -> teacher
//	teacher -> END | says [DONE]
//	student -> END | after 6
//
// "| says MARKER" fires when the previous reply contains MARKER. "| after N"
// fires once N turns have completed. Conditions are checked in declaration
// order and the earliest satisfied direction wins.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/elmes-ai/elmes/internal/models"
)

// Pseudo-nodes terminating the direction list.
const (
	StartNode = "START"
	EndNode   = "END"
)

// CondKind discriminates direction conditions.
type CondKind int

const (
	// CondAlways fires unconditionally.
	CondAlways CondKind = iota
	// CondAfter fires once the turn count reaches the threshold.
	CondAfter
	// CondSays fires when the previous reply contains the marker text.
	CondSays
)

// Condition gates a direction.
type Condition struct {
	Kind   CondKind
	Turns  int
	Marker string
}

func (c Condition) satisfied(turn int, lastReply string) bool {
	switch c.Kind {
	case CondAfter:
		return turn >= c.Turns
	case CondSays:
		return strings.Contains(lastReply, c.Marker)
	default:
		return true
	}
}

// Edge is one compiled direction.
type Edge struct {
	From string
	To   string
	Cond Condition
}

// CompiledGraph is the executable form of the direction list. It is
// immutable and safe for concurrent use.
type CompiledGraph struct {
	start    string
	edges    map[string][]Edge
	maxTurns int

	// endAtMaxTurns treats turn exhaustion as normal completion rather than
	// failure.
	endAtMaxTurns bool
}

// Compile validates the spec's agents and directions and builds the graph.
// It returns a ConfigError when a direction references an undeclared agent,
// when a non-terminal node has no outgoing direction, or when no terminal
// state is reachable under the configured turn bound.
func Compile(spec *models.Spec) (*CompiledGraph, error) {
	g := &CompiledGraph{
		edges:         make(map[string][]Edge),
		maxTurns:      spec.Globals.MaxTurns,
		endAtMaxTurns: spec.Globals.EndAtMaxTurns,
	}

	for _, raw := range spec.Directions {
		edge, err := ParseDirection(raw)
		if err != nil {
			return nil, err
		}
		if err := checkNode(spec, edge.From, raw); err != nil {
			return nil, err
		}
		if err := checkNode(spec, edge.To, raw); err != nil {
			return nil, err
		}
		if edge.To == StartNode {
			return nil, &models.ConfigError{Msg: fmt.Sprintf("direction %q targets START", raw)}
		}
		if edge.From == EndNode {
			return nil, &models.ConfigError{Msg: fmt.Sprintf("direction %q leaves END", raw)}
		}
		if edge.From == StartNode {
			if g.start != "" {
				return nil, &models.ConfigError{Msg: "multiple START directions"}
			}
			g.start = edge.To
			continue
		}
		g.edges[edge.From] = append(g.edges[edge.From], edge)
	}

	if g.start == "" {
		return nil, &models.ConfigError{Msg: "no START direction"}
	}

	if err := g.checkTermination(); err != nil {
		return nil, err
	}

	return g, nil
}

// ParseDirection parses one "from -> to [| condition]" declaration.
func ParseDirection(raw string) (Edge, error) {
	text := raw
	cond := Condition{}

	if i := strings.Index(raw, "|"); i >= 0 {
		text = raw[:i]
		clause := strings.TrimSpace(raw[i+1:])
		switch {
		case strings.HasPrefix(clause, "after "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(clause, "after ")))
			if err != nil || n < 1 {
				return Edge{}, &models.ConfigError{Msg: fmt.Sprintf("direction %q: bad turn count in %q", raw, clause)}
			}
			cond = Condition{Kind: CondAfter, Turns: n}
		case strings.HasPrefix(clause, "says "):
			marker := strings.TrimSpace(strings.TrimPrefix(clause, "says "))
			if marker == "" {
				return Edge{}, &models.ConfigError{Msg: fmt.Sprintf("direction %q: empty marker", raw)}
			}
			cond = Condition{Kind: CondSays, Marker: marker}
		default:
			return Edge{}, &models.ConfigError{Msg: fmt.Sprintf("direction %q: unknown condition %q", raw, clause)}
		}
	}

	parts := strings.Split(text, "->")
	if len(parts) != 2 {
		return Edge{}, &models.ConfigError{Msg: fmt.Sprintf("direction %q is not of the form \"from -> to\"", raw)}
	}

	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" || to == "" {
		return Edge{}, &models.ConfigError{Msg: fmt.Sprintf("direction %q has an empty endpoint", raw)}
	}

	return Edge{From: from, To: to, Cond: cond}, nil
}

func checkNode(spec *models.Spec, node, raw string) error {
	if node == StartNode || node == EndNode {
		return nil
	}
	if _, ok := spec.Agents[node]; !ok {
		return &models.ConfigError{Msg: fmt.Sprintf("direction %q references undeclared agent %q", raw, node)}
	}
	return nil
}

// checkTermination verifies that every reachable node can terminate: it has
// an outgoing direction, and END is reachable from it unless turn exhaustion
// is itself a valid terminal state.
func (g *CompiledGraph) checkTermination() error {
	reachable := map[string]bool{}
	stack := []string{g.start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == EndNode || reachable[node] {
			continue
		}
		reachable[node] = true
		if len(g.edges[node]) == 0 {
			return &models.ConfigError{Msg: fmt.Sprintf("agent %q has no outgoing direction", node)}
		}
		for _, e := range g.edges[node] {
			stack = append(stack, e.To)
		}
	}

	if g.endAtMaxTurns {
		return nil
	}

	for node := range reachable {
		if !g.canReachEnd(node, map[string]bool{}) {
			return &models.ConfigError{Msg: fmt.Sprintf("no path from agent %q to END; add an END direction or set end_at_max_turns", node)}
		}
	}
	return nil
}

func (g *CompiledGraph) canReachEnd(node string, seen map[string]bool) bool {
	if node == EndNode {
		return true
	}
	if seen[node] {
		return false
	}
	seen[node] = true
	for _, e := range g.edges[node] {
		if g.canReachEnd(e.To, seen) {
			return true
		}
	}
	return false
}

// Start returns the first agent to act.
func (g *CompiledGraph) Start() string {
	return g.start
}

// MaxTurns returns the configured turn bound.
func (g *CompiledGraph) MaxTurns() int {
	return g.maxTurns
}

// EndAtMaxTurns reports whether turn exhaustion is a valid terminal state.
func (g *CompiledGraph) EndAtMaxTurns() bool {
	return g.endAtMaxTurns
}

// Next resolves the node after current, given the number of completed turns
// and the previous reply. The second return is true when the conversation
// terminates. It returns an error when no direction's condition is
// satisfied.
func (g *CompiledGraph) Next(current string, turn int, lastReply string) (string, bool, error) {
	for _, e := range g.edges[current] {
		if !e.Cond.satisfied(turn, lastReply) {
			continue
		}
		if e.To == EndNode {
			return "", true, nil
		}
		return e.To, false, nil
	}
	return "", false, fmt.Errorf("no direction from agent %q satisfied at turn %d", current, turn)
}
