// Package canonical deduplicates enumerations across the normalized device
// model and assigns every group of structurally identical enums one name.
package canonical

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/eddielth/z2mgen/model"
)

// MaxSuffix bounds the numeric suffixes tried when a name is taken.
const MaxSuffix = 10

const valuesSuffix = "Values"

// ErrNameExhausted aborts generation when no collision-free name was found.
var ErrNameExhausted = errors.New("could not assign a unique enum name")

// Enum is one deduplicated enumeration.
type Enum struct {
	Name    string
	Values  []string // literals, in the order of the first property seen
	Members []string // member identifiers, parallel to Values
}

// Table maps enum properties to their canonical enum.
type Table struct {
	Enums      []*Enum
	byProperty map[*model.Property]*Enum
}

// Lookup returns the canonical enum of an enum property.
func (t *Table) Lookup(p *model.Property) (*Enum, bool) {
	if t == nil {
		return nil, false
	}
	e, ok := t.byProperty[p]
	return e, ok
}

type group struct {
	key   string
	props []*model.Property
}

// Build groups every enum property in devices, composites included, by its
// value set and names each group. Names in reserved are never assigned.
func Build(devices []*model.Device, reserved ...string) (*Table, error) {
	ordered := make([]*model.Device, len(devices))
	copy(ordered, devices)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Address < ordered[j].Address
	})

	groups := make(map[string]*group)
	for _, device := range ordered {
		device.Walk(func(p *model.Property) {
			if p.Kind != model.KindEnum {
				return
			}
			key := setKey(p.Values)
			g, ok := groups[key]
			if !ok {
				g = &group{key: key}
				groups[key] = g
			}
			g.props = append(g.props, p)
		})
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	taken := make(map[string]struct{}, len(reserved)+len(keys))
	for _, name := range reserved {
		taken[name] = struct{}{}
	}

	table := &Table{byProperty: make(map[*model.Property]*Enum)}
	for _, key := range keys {
		g := groups[key]
		first := g.props[0]

		members := memberNames(first.Values)
		name, err := assignName(taken, model.Identifier(first.Name), members)
		if err != nil {
			return nil, fmt.Errorf("%w: group %q with values [%s]", err, first.Name, strings.Join(first.Values, ", "))
		}

		enum := &Enum{
			Name:    name,
			Values:  append([]string(nil), first.Values...),
			Members: members,
		}
		table.Enums = append(table.Enums, enum)
		for _, p := range g.props {
			table.byProperty[p] = enum
		}
	}

	return table, nil
}

// setKey identifies a value set independently of order.
func setKey(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// assignName picks the first of seed, seed1..seed10 whose type name, values
// variable and member constants are all free, and marks them taken.
func assignName(taken map[string]struct{}, seed string, members []string) (string, error) {
	for i := 0; i <= MaxSuffix; i++ {
		candidate := seed
		if i > 0 {
			candidate = seed + strconv.Itoa(i)
		}
		names := DeclaredNames(candidate, members)
		if anyTaken(taken, names) {
			continue
		}
		for _, n := range names {
			taken[n] = struct{}{}
		}
		return candidate, nil
	}
	return "", ErrNameExhausted
}

// DeclaredNames lists the identifiers an enum named name declares: the type,
// its Values variable and one constant per member.
func DeclaredNames(name string, members []string) []string {
	names := make([]string, 0, len(members)+2)
	names = append(names, name, name+valuesSuffix)
	for _, m := range members {
		names = append(names, name+m)
	}
	return names
}

func anyTaken(taken map[string]struct{}, names []string) bool {
	for _, n := range names {
		if _, ok := taken[n]; ok {
			return true
		}
	}
	return false
}

func memberNames(values []string) []string {
	// a member named Values would collide with the values variable
	used := map[string]struct{}{valuesSuffix: {}}
	members := make([]string, len(values))
	for i, v := range values {
		base := model.MemberName(v)
		name := base
		for n := 2; ; n++ {
			if _, ok := used[name]; !ok {
				break
			}
			name = base + strconv.Itoa(n)
		}
		used[name] = struct{}{}
		members[i] = name
	}
	return members
}
