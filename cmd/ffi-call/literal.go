package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffivalue/abi"
	"github.com/wippyai/ffivalue/errors"
	"github.com/wippyai/ffivalue/value"
)

// argList collects repeated -arg flags.
type argList []string

func (a *argList) String() string {
	return strings.Join(*a, " ")
}

func (a *argList) Set(s string) error {
	*a = append(*a, s)
	return nil
}

// parseLiteral infers the type of a command-line literal: null, true, false,
// integers, floats, "quoted" text, and anything else as bare text.
func parseLiteral(s string) (value.Value, error) {
	switch s {
	case "null":
		return value.Absent(), nil
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	}

	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return value.Int(int(i)), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f), nil
	}
	if isQuoted(s) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return value.Value{}, fmt.Errorf("text literal %s: %w", s, err)
		}
		return value.String(unq)
	}
	return value.String(s)
}

// parseTyped converts s to the value type carrying the WIT type t.
func parseTyped(s string, t wit.Type) (value.Value, error) {
	typ, ok := abi.TypeOfWIT(t)
	if !ok {
		return value.Value{}, fmt.Errorf("unsupported parameter type %s", abi.WITName(t))
	}

	switch typ {
	case value.TypeAbsent:
		if s != "" && s != "null" {
			return value.Value{}, fmt.Errorf("expected null, got %q", s)
		}
		return value.Absent(), nil
	case value.TypeText:
		if isQuoted(s) {
			unq, err := strconv.Unquote(s)
			if err != nil {
				return value.Value{}, fmt.Errorf("text literal %s: %w", s, err)
			}
			s = unq
		}
		return value.String(s)
	case value.TypeInteger:
		return parseInteger(s, t)
	case value.TypeFloat:
		bits := 64
		if _, ok := t.(wit.F32); ok {
			bits = 32
		}
		f, err := strconv.ParseFloat(s, bits)
		if err != nil {
			return value.Value{}, fmt.Errorf("%s: %w", abi.WITName(t), err)
		}
		return value.Float(f), nil
	case value.TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return value.Value{}, fmt.Errorf("bool: %w", err)
		}
		return value.Bool(b), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported parameter type %s", abi.WITName(t))
	}
}

func parseInteger(s string, t wit.Type) (value.Value, error) {
	var (
		bits     int
		unsigned bool
	)
	switch t.(type) {
	case wit.S8:
		bits = 8
	case wit.U8:
		bits, unsigned = 8, true
	case wit.S16:
		bits = 16
	case wit.U16:
		bits, unsigned = 16, true
	case wit.S32:
		bits = 32
	case wit.U32:
		bits, unsigned = 32, true
	case wit.S64:
		bits = 64
	default:
		bits, unsigned = 64, true
	}

	if unsigned {
		u, err := strconv.ParseUint(s, 0, bits)
		if err != nil {
			return value.Value{}, fmt.Errorf("%s: %w", abi.WITName(t), err)
		}
		if u > math.MaxInt {
			return value.Value{}, errors.Overflow(errors.PhaseConstruct, nil, u, "int")
		}
		return value.Int(int(u)), nil
	}
	i, err := strconv.ParseInt(s, 0, bits)
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: %w", abi.WITName(t), err)
	}
	return value.Int(int(i)), nil
}

// parseSignature reads a comma-separated list of WIT primitive names.
func parseSignature(sig string) ([]wit.Type, error) {
	if strings.TrimSpace(sig) == "" {
		return nil, nil
	}
	var types []wit.Type
	for _, name := range strings.Split(sig, ",") {
		name = strings.TrimSpace(name)
		t, ok := abi.ParseWIT(name)
		if !ok {
			return nil, fmt.Errorf("unknown type %q", name)
		}
		types = append(types, t)
	}
	return types, nil
}

// parseArgs converts literals to values, typed by sig when given. Values
// already built are released on error.
func parseArgs(literals []string, sig []wit.Type) (args []value.Value, err error) {
	if sig != nil && len(sig) != len(literals) {
		return nil, errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("signature has %d parameters, got %d arguments", len(sig), len(literals)))
	}
	defer func() {
		if err != nil {
			releaseAll(args)
			args = nil
		}
	}()

	for i, lit := range literals {
		var v value.Value
		if sig != nil {
			v, err = parseTyped(lit, sig[i])
		} else {
			v, err = parseLiteral(lit)
		}
		if err != nil {
			return args, fmt.Errorf("argument %d: %w", i, err)
		}
		args = append(args, v)
	}
	return args, nil
}

// splitLiterals splits a line into literals on whitespace, keeping quoted
// text together.
func splitLiterals(line string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		escaped bool
		started bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inQuote && r == '\\':
			cur.WriteRune(r)
			escaped = true
		case r == '"':
			cur.WriteRune(r)
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if started {
		out = append(out, cur.String())
	}
	return out, nil
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func releaseAll(vs []value.Value) {
	for _, v := range vs {
		v.Release()
	}
}

func formatSignature(name string, sig []wit.Type) string {
	if sig == nil {
		return name + "(...)"
	}
	params := make([]string, len(sig))
	for i, t := range sig {
		params[i] = fmt.Sprintf("arg%d: %s", i, abi.WITName(t))
	}
	return name + "(" + strings.Join(params, ", ") + ")"
}
