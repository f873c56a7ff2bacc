// Package text builds chat text components and encodes them for the wire.
package text

import (
	"encoding/json"
	"fmt"

	"github.com/Tnze/go-mc/nbt"
)

// Named colors accepted by the client.
const (
	Black       = "black"
	DarkBlue    = "dark_blue"
	DarkGreen   = "dark_green"
	DarkAqua    = "dark_aqua"
	DarkRed     = "dark_red"
	DarkPurple  = "dark_purple"
	Gold        = "gold"
	Gray        = "gray"
	DarkGray    = "dark_gray"
	Blue        = "blue"
	Green       = "green"
	Aqua        = "aqua"
	Red         = "red"
	LightPurple = "light_purple"
	Yellow      = "yellow"
	White       = "white"
)

// Span is one styled run inside a Component.
type Span struct {
	Text          string `json:"text"`
	Color         string `json:"color,omitempty"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underlined    bool   `json:"underlined,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Obfuscated    bool   `json:"obfuscated,omitempty"`
}

// Component is a root text plus styled children.
type Component struct {
	Text  string `json:"text"`
	Extra []Span `json:"extra,omitempty"`
}

// Plain returns a component holding only text.
func Plain(s string) Component {
	return Component{Text: s}
}

// Spans returns a component with an empty root and the given children.
func Spans(spans ...Span) Component {
	return Component{Extra: spans}
}

// Colored is shorthand for a span with only a color.
func Colored(s, color string) Span {
	return Span{Text: s, Color: color}
}

// String concatenates the visible text.
func (c Component) String() string {
	s := c.Text
	for _, e := range c.Extra {
		s += e.Text
	}
	return s
}

// JSON returns the JSON form used by the status response and login disconnect.
func (c Component) JSON() ([]byte, error) {
	return json.Marshal(c)
}

type nbtSpan struct {
	Text  string `nbt:"text"`
	Color string `nbt:"color"`
}

type nbtComponent struct {
	Extra []nbtSpan `nbt:"extra"`
	Text  string    `nbt:"text"`
}

// NetworkNBT encodes c as a nameless root compound tag, the form chat packets
// carry since protocol 764. Each child keeps its text and color, defaulting to
// white.
func (c Component) NetworkNBT() ([]byte, error) {
	tag := nbtComponent{Text: c.Text, Extra: make([]nbtSpan, 0, len(c.Extra))}
	for _, e := range c.Extra {
		color := e.Color
		if color == "" {
			color = White
		}
		tag.Extra = append(tag.Extra, nbtSpan{Text: e.Text, Color: color})
	}

	b, err := nbt.Marshal(tag)
	if err != nil {
		return nil, fmt.Errorf("encoding text component: %w", err)
	}
	if len(b) < 3 {
		return nil, fmt.Errorf("encoding text component: short tag")
	}
	// Drop the empty root name (two length bytes) after the compound type id.
	out := make([]byte, 0, len(b)-2)
	out = append(out, b[0])
	return append(out, b[3:]...), nil
}
