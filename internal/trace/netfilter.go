package trace

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pcb-viafence/internal/board"
)

// RegexFromSimpleEx translates a net wildcard into a regular expression.
// The wildcard language has only two features: '*' matches any run of
// characters and '[...]' is a character class. Everything else is literal.
// Like the filter box of the board editor, the pattern must match at the
// start of the net name but may leave a suffix unmatched.
func RegexFromSimpleEx(simpleEx string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(simpleEx)
	quoted = strings.NewReplacer(`\[`, `[`, `\]`, `]`, `\*`, `.*`).Replace(quoted)
	re, err := regexp.Compile(`^(?:` + quoted + `)`)
	if err != nil {
		return nil, fmt.Errorf("net filter %q: %w", simpleEx, err)
	}
	return re, nil
}

// MatchingNets returns the connected nets of b whose names match the
// wildcard filter, in net code order.
func MatchingNets(b *board.Board, filter string) ([]board.Net, error) {
	re, err := RegexFromSimpleEx(filter)
	if err != nil {
		return nil, err
	}
	var out []board.Net
	for _, n := range b.Nets {
		if n.Code != 0 && re.MatchString(n.Name) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

var (
	diffPartner = map[byte]byte{'+': '-', '-': '+', 'P': 'N', 'N': 'P'}
	diffClass   = map[byte]string{'+': "[+-]", '-': "[+-]", 'P': "[PN]", 'N': "[PN]"}
)

// NetFilterSuggestions lists filters for the given net names: "*", every
// net name, and one wildcard per differential pair (a net ending in +/- or
// P/N whose partner also exists), inserted before the first net of the pair.
func NetFilterSuggestions(netNames []string) []string {
	present := make(map[string]bool, len(netNames))
	for _, n := range netNames {
		present[n] = true
	}

	suggestions := []string{"*"}
	seen := map[string]bool{"*": true}
	add := func(s string) {
		if seen[s] {
			return
		}
		seen[s] = true
		suggestions = append(suggestions, s)
	}

	for _, name := range netNames {
		if name == "" {
			continue
		}
		last := name[len(name)-1]
		if partner, ok := diffPartner[last]; ok {
			stem := name[:len(name)-1]
			if present[stem+string(partner)] {
				add(stem + diffClass[last])
			}
		}
		add(name)
	}
	return suggestions
}
