package protocol

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed opcodes.yaml
var opcodesYAML []byte

// Opcodes is the opcode table of the emulated protocol version.
var Opcodes = mustLoadTable(opcodesYAML)

type nameKey struct {
	dir   Direction
	state State
	name  string
}

type idKey struct {
	dir   Direction
	state State
	id    int32
}

// Table maps (direction, state, name) to opcode and back.
type Table struct {
	ids   map[nameKey]int32
	names map[idKey]string
}

// tableFile is the on-disk layout: direction -> state -> name -> id.
type tableFile map[string]map[string]map[string]int32

// LoadTable parses a YAML opcode table.
//
// Postcondition: Returns an error on unknown directions or states, or when two
// names share an id within one (direction, state).
func LoadTable(data []byte) (*Table, error) {
	var raw tableFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing opcode table: %w", err)
	}

	t := &Table{
		ids:   make(map[nameKey]int32),
		names: make(map[idKey]string),
	}
	for dirName, states := range raw {
		var dir Direction
		switch dirName {
		case "serverbound":
			dir = Serverbound
		case "clientbound":
			dir = Clientbound
		default:
			return nil, fmt.Errorf("opcode table: unknown direction %q", dirName)
		}
		for stateName, packets := range states {
			state, ok := ParseState(stateName)
			if !ok {
				return nil, fmt.Errorf("opcode table: unknown state %q", stateName)
			}
			for name, id := range packets {
				ik := idKey{dir, state, id}
				if prev, dup := t.names[ik]; dup {
					return nil, fmt.Errorf("opcode table: %s/%s id 0x%02x used by %s and %s", dir, state, id, prev, name)
				}
				t.names[ik] = name
				t.ids[nameKey{dir, state, name}] = id
			}
		}
	}
	return t, nil
}

func mustLoadTable(data []byte) *Table {
	t, err := LoadTable(data)
	if err != nil {
		panic(err)
	}
	return t
}

// ID returns the opcode of a named packet.
func (t *Table) ID(dir Direction, state State, name string) (int32, bool) {
	id, ok := t.ids[nameKey{dir, state, name}]
	return id, ok
}

// MustID is ID for names known at compile time.
//
// Precondition: the packet must be present in the table.
func (t *Table) MustID(dir Direction, state State, name string) int32 {
	id, ok := t.ID(dir, state, name)
	if !ok {
		panic(fmt.Sprintf("protocol: no opcode for %s/%s/%s", dir, state, name))
	}
	return id
}

// Name returns the packet name of an opcode.
func (t *Table) Name(dir Direction, state State, id int32) (string, bool) {
	name, ok := t.names[idKey{dir, state, id}]
	return name, ok
}
