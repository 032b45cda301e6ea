package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

// MaxValueLength is the longest value accepted in a settings file.
const MaxValueLength = 64

const textHeader = "# Motor controller settings file."

// ParseError reports a problem in a settings file. Line is 1-based, or 0 when
// the problem is not tied to a line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func lineErr(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ToText renders s in the settings file format. Only fields that apply to
// s.Product are written. FirmwareVersion is not part of the format, so
// settings read back with FromText have it zero.
func ToText(s Settings) string {
	var b strings.Builder
	b.WriteString(textHeader)
	b.WriteString("\n")
	fmt.Fprintf(&b, "product: %s\n", s.Product)

	for _, f := range applicable(s.Product) {
		fmt.Fprintf(&b, "%s: %s\n", f.Key, formatValue(f, f.Get(&s)))
	}
	for pin, cfg := range s.Pins {
		fn, _ := names.PinFunctions().Name(uint16(cfg.Function))
		fmt.Fprintf(&b, "%s_pin: %s", names.PinName(pin), fn)
		if cfg.Pullup {
			b.WriteString(" pullup")
		}
		if cfg.Analog {
			b.WriteString(" analog")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatValue(f *Field, v int64) string {
	switch {
	case f.Enum != nil:
		if n, ok := f.Enum.Name(uint16(v)); ok {
			return n
		}
		return strconv.FormatInt(v, 10)
	case f.IsBool():
		return strconv.FormatBool(v != 0)
	case f.Hex:
		return fmt.Sprintf("0x%04X", v)
	}
	return strconv.FormatInt(v, 10)
}

// FromText parses a settings file. The product line may appear anywhere but
// is applied first; every other key starts from the product's defaults, and
// a repeated key keeps its last value. The result is not fixed; run Fix
// before writing it to a device.
func FromText(text string) (Settings, error) {
	file, err := textParser.ParseString("", text+"\n")
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return Settings{}, lineErr(perr.Position().Line, "%s", perr.Message())
		}
		return Settings{}, &ParseError{Msg: err.Error()}
	}

	var (
		product names.Product
		found   bool
	)
	for _, e := range file.Entries {
		if e.Key != "product" {
			continue
		}
		v, err := scalar(e)
		if err != nil {
			return Settings{}, err
		}
		p, ok := names.ProductFromShortName(v)
		if !ok {
			return Settings{}, lineErr(e.Pos.Line, "Unrecognized product name: %q.", v)
		}
		product, found = p, true
	}
	if !found {
		return Settings{}, &ParseError{Msg: "The product was not specified in the settings file."}
	}

	s := Defaults(product)
	for _, e := range file.Entries {
		if e.Key == "product" {
			continue
		}
		if err := applyEntry(&s, e); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

func checkLength(e *textEntry) error {
	if len(e.Values) == 0 {
		return lineErr(e.Pos.Line, "The value for %s is empty.", e.Key)
	}
	if n := len(strings.Join(e.Values, " ")); n > MaxValueLength {
		return lineErr(e.Pos.Line, "The value for %s is too long (%d bytes).", e.Key, n)
	}
	return nil
}

func scalar(e *textEntry) (string, error) {
	if err := checkLength(e); err != nil {
		return "", err
	}
	if len(e.Values) != 1 {
		return "", lineErr(e.Pos.Line, "The value for %s must be a single word.", e.Key)
	}
	return e.Values[0], nil
}

func applyEntry(s *Settings, e *textEntry) error {
	if pin, ok := pinFromKey(e.Key); ok {
		return applyPin(s, pin, e)
	}

	f := fieldByKey(e.Key)
	if f == nil {
		return lineErr(e.Pos.Line, "Unrecognized key: %q.", e.Key)
	}
	if !f.AppliesTo(s.Product) {
		return lineErr(e.Pos.Line, "The %s setting is not supported by the %s.", e.Key, s.Product)
	}
	raw, err := scalar(e)
	if err != nil {
		return err
	}

	var v int64
	switch {
	case f.Enum != nil:
		code, ok := f.Enum.Code(raw)
		if !ok {
			return lineErr(e.Pos.Line, "Unrecognized %s value: %q.", e.Key, raw)
		}
		v = int64(code)
	case f.IsBool():
		switch raw {
		case "true":
			v = 1
		case "false":
		default:
			return lineErr(e.Pos.Line, "Invalid %s value: %q (expected true or false).", e.Key, raw)
		}
	default:
		n, err := strconv.ParseInt(raw, 0, 64)
		if err != nil {
			return lineErr(e.Pos.Line, "Invalid %s value: %q.", e.Key, raw)
		}
		lo, hi := f.TypeRange()
		if n < lo || n > hi {
			return lineErr(e.Pos.Line, "The %s value is out of range: %d.", e.Key, n)
		}
		v = n
	}
	f.Set(s, v)
	return nil
}

func pinFromKey(key string) (int, bool) {
	name, ok := strings.CutSuffix(key, "_pin")
	if !ok {
		return 0, false
	}
	code, ok := names.PinNames().Code(name)
	return int(code), ok
}

func applyPin(s *Settings, pin int, e *textEntry) error {
	if err := checkLength(e); err != nil {
		return err
	}
	fn, ok := names.PinFunctions().Code(e.Values[0])
	if !ok {
		return lineErr(e.Pos.Line, "Unrecognized %s function: %q.", e.Key, e.Values[0])
	}
	cfg := PinConfig{Function: uint8(fn)}
	for _, flag := range e.Values[1:] {
		switch flag {
		case "pullup":
			cfg.Pullup = true
		case "analog":
			cfg.Analog = true
		default:
			return lineErr(e.Pos.Line, "Unrecognized %s flag: %q.", e.Key, flag)
		}
	}
	s.Pins[pin] = cfg
	return nil
}
