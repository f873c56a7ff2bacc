package text

import "strings"

// Prefix introduces a legacy formatting code.
const Prefix = "§"

// Effect is a legacy formatting code character.
type Effect byte

const (
	EffectBlack         Effect = '0'
	EffectDarkBlue      Effect = '1'
	EffectDarkGreen     Effect = '2'
	EffectDarkAqua      Effect = '3'
	EffectDarkRed       Effect = '4'
	EffectDarkPurple    Effect = '5'
	EffectGold          Effect = '6'
	EffectGray          Effect = '7'
	EffectDarkGray      Effect = '8'
	EffectBlue          Effect = '9'
	EffectGreen         Effect = 'a'
	EffectAqua          Effect = 'b'
	EffectRed           Effect = 'c'
	EffectLightPurple   Effect = 'd'
	EffectYellow        Effect = 'e'
	EffectWhite         Effect = 'f'
	EffectObfuscated    Effect = 'k'
	EffectBold          Effect = 'l'
	EffectStrikethrough Effect = 'm'
	EffectUnderline     Effect = 'n'
	EffectItalic        Effect = 'o'
	EffectReset         Effect = 'r'
)

var effectColors = map[Effect]string{
	EffectBlack:       Black,
	EffectDarkBlue:    DarkBlue,
	EffectDarkGreen:   DarkGreen,
	EffectDarkAqua:    DarkAqua,
	EffectDarkRed:     DarkRed,
	EffectDarkPurple:  DarkPurple,
	EffectGold:        Gold,
	EffectGray:        Gray,
	EffectDarkGray:    DarkGray,
	EffectBlue:        Blue,
	EffectGreen:       Green,
	EffectAqua:        Aqua,
	EffectRed:         Red,
	EffectLightPurple: LightPurple,
	EffectYellow:      Yellow,
	EffectWhite:       White,
}

// Builder assembles a legacy formatted string. Each appended run is followed
// by a space.
type Builder struct {
	sb strings.Builder
}

// Append adds text preceded by its formatting codes.
func (b *Builder) Append(s string, effects ...Effect) *Builder {
	for _, e := range effects {
		b.sb.WriteString(Prefix)
		b.sb.WriteByte(byte(e))
	}
	b.sb.WriteString(s)
	b.sb.WriteByte(' ')
	return b
}

// Newline starts a new line.
func (b *Builder) Newline() *Builder {
	b.sb.WriteByte('\n')
	return b
}

// String returns the formatted text without the trailing separator.
func (b *Builder) String() string {
	return strings.TrimSuffix(b.sb.String(), " ")
}

// Component converts the formatted text into styled spans, one per run of
// text sharing the same codes.
func (b *Builder) Component() Component {
	return ParseLegacy(b.String())
}

// ParseLegacy splits a legacy formatted string into a Component. Text with no
// formatting codes becomes a plain component.
func ParseLegacy(s string) Component {
	if !strings.Contains(s, Prefix) {
		return Plain(s)
	}

	var spans []Span
	var cur Span
	var pendingCodes bool
	var sb strings.Builder

	flush := func() {
		if sb.Len() == 0 && !pendingCodes {
			return
		}
		cur.Text = sb.String()
		spans = append(spans, cur)
		sb.Reset()
		cur = Span{}
		pendingCodes = false
	}

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], Prefix) && i+len(Prefix) < len(s) {
			code := Effect(s[i+len(Prefix)])
			// a code after text starts a new span
			if sb.Len() > 0 {
				flush()
			}
			applyEffect(&cur, code)
			pendingCodes = true
			i += len(Prefix) + 1
			continue
		}
		sb.WriteByte(s[i])
		i++
	}
	flush()
	return Component{Extra: spans}
}

func applyEffect(sp *Span, e Effect) {
	if color, ok := effectColors[e]; ok {
		sp.Color = color
		return
	}
	switch e {
	case EffectObfuscated:
		sp.Obfuscated = true
	case EffectBold:
		sp.Bold = true
	case EffectStrikethrough:
		sp.Strikethrough = true
	case EffectUnderline:
		sp.Underlined = true
	case EffectItalic:
		sp.Italic = true
	case EffectReset:
		*sp = Span{}
	}
}
