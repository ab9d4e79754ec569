// Package pipeline implements the CLI's token parser and driver (spec
// §4.1, §6): "PROG [-dt TYPE] IN OP1 [args...] OP2 [args...] ... OUT
// [-odt TYPE]". Grounded on cmd/gwebp/main.go's hand-rolled flag
// recognition (openInput's "-" special case, the enc/dec/info dispatch
// switch) generalised from a fixed subcommand set to an open-ended,
// positional operation stream, since (per SPEC_FULL.md's Configuration
// section) a flag.FlagSet can't express "how many following arguments
// there are depends on which operation name precedes them".
package pipeline

import (
	"errors"
	"fmt"
	"strconv"
)

// Errors the parser and driver return (spec §7's argument-error taxonomy).
var (
	ErrUnknownOperation = errors.New("pipeline: unknown operation")
	ErrArgument         = errors.New("pipeline: argument error")
	ErrUsage            = errors.New("pipeline: usage error")
)

// Token is one operation in the parsed pipeline: its name (including the
// leading "-") and its raw argument strings, not yet typed (spec §3
// "Operation token").
type Token struct {
	Op   string
	Args []string
}

// Parsed is the fully parsed command line (spec §4.1, §6).
type Parsed struct {
	WorkingDT  string // "float", "double", or "" (collaborator default)
	InputPath  string
	Tokens     []Token
	OutputPath string
	OutputODT  string // "" means "match input" per spec §4.1
}

// fixedArity gives the number of raw argument tokens most operations
// consume; -kernel is variable-arity and handled separately in Parse
// because its argument count depends on the kernel type name (spec §4.1
// item 3: box/sphere/gauss/file need a size, "2D"/"3D" do not).
var fixedArity = map[string]int{
	"-blur": 4, "-s": 1, "-smooth": 1,
	"-edt": 0,
	"-dilM": 0, "-dilD": 0, "-dilF": 0, "-dilall": 0, "-ero": 0, "-eroF": 0,
	"-fmedian": 0, "-fmean": 0, "-fmeanu": 0, "-fmeanzero": 0,
	"-bptf": 3, "-bandpass": 3,
	"-resize": 4, "-subsamp2": 0, "-subsamp2offc": 0,
	"-otsu": 1, "-bin": 0, "-binv": 0,
	"-Tmean": 0, "-Tstd": 0, "-Tmax": 0, "-Tmaxn": 0, "-Tmin": 0, "-Tmedian": 0,
	"-Tperc": 1, "-Tar1": 0,
	"-tensor_decomp": 1,
	"-tfce": 3, "-tfceS": 5,
	"-add": 1, "-sub": 1, "-mul": 1, "-div": 1, "-rem": 1, "-mod": 1, "-mas": 1,
	"-max": 1, "-min": 1, "-power": 1,
	"-exp": 0, "-log": 0, "-floor": 0, "-round": 0, "-ceil": 0, "-trunc": 0,
	"-sin": 0, "-cos": 0, "-tan": 0, "-asin": 0, "-acos": 0, "-atan": 0,
	"-sqr": 0, "-sqrt": 0, "-recip": 0, "-abs": 0,
	"-thr": 1, "-uthr": 1, "-clamp": 1, "-uclamp": 1,
	"-thrp": 1, "-thrP": 1, "-uthrp": 1, "-uthrP": 1,
	"-edge": 0, "-index": 0, "-nan": 0, "-nanm": 0,
	"-rand": 0, "-randn": 0, "-range": 0,
	"-rank": 0, "-ranknorm": 0, "-ztop": 0, "-ptoz": 0,
	"-pval": 0, "-pval0": 0, "-cpval": 0,
	"-inm": 1, "-ing": 1, "-fillh": 0, "-fillh26": 0,
	"-p": 1,
}

// isNumber reports whether s parses as a pure integer or float (spec
// §4.1: "a numeric argument that parses as a pure integer or float is
// treated as a scalar; otherwise the handler may accept a second-volume
// path").
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Parse tokenises a fslmaths/niimath-style argument list (spec §4.1,
// §6). args is the full program argument list, excluding argv[0].
func Parse(args []string) (Parsed, error) {
	var p Parsed
	i := 0

	if i < len(args) && args[i] == "-dt" {
		if i+1 >= len(args) {
			return p, fmt.Errorf("%w: -dt requires an argument", ErrUsage)
		}
		p.WorkingDT = args[i+1]
		i += 2
	}

	if i >= len(args) {
		return p, fmt.Errorf("%w: missing input volume", ErrUsage)
	}
	p.InputPath = args[i]
	i++

	for i < len(args) {
		tok := args[i]
		if len(tok) == 0 || tok[0] != '-' {
			break // reached the output path
		}
		if tok == "-odt" {
			break // trailing flag comes after the output path; stop here
		}

		i++
		if tok == "-kernel" {
			t, consumed, err := parseKernelToken(args, i)
			if err != nil {
				return p, err
			}
			p.Tokens = append(p.Tokens, t)
			i += consumed
			continue
		}

		n, ok := fixedArity[tok]
		if !ok {
			return p, fmt.Errorf("%w: %q", ErrUnknownOperation, tok)
		}
		if i+n > len(args) {
			return p, fmt.Errorf("%w: %s requires %d argument(s)", ErrArgument, tok, n)
		}
		t := Token{Op: tok, Args: append([]string(nil), args[i:i+n]...)}
		p.Tokens = append(p.Tokens, t)
		i += n
	}

	if i >= len(args) {
		return p, fmt.Errorf("%w: missing output volume", ErrUsage)
	}
	p.OutputPath = args[i]
	i++

	if i < len(args) && args[i] == "-odt" {
		if i+1 >= len(args) {
			return p, fmt.Errorf("%w: -odt requires an argument", ErrUsage)
		}
		p.OutputODT = args[i+1]
		i += 2
	}

	if i != len(args) {
		return p, fmt.Errorf("%w: unexpected trailing arguments %v", ErrUsage, args[i:])
	}
	return p, nil
}

// kernelTypesWithSize are the -kernel type names that require a size
// argument; "2D" and "3D" are fixed-shape and take none (spec §4.1 item 3).
var kernelTypesWithSize = map[string]bool{
	"box": true, "boxv": true, "sphere": true, "gauss": true, "file": true,
}

func parseKernelToken(args []string, i int) (Token, int, error) {
	if i >= len(args) {
		return Token{}, 0, fmt.Errorf("%w: -kernel requires a type argument", ErrArgument)
	}
	kind := args[i]
	if !kernelTypesWithSize[kind] {
		return Token{Op: "-kernel", Args: []string{kind}}, 1, nil
	}
	if i+1 >= len(args) {
		return Token{}, 0, fmt.Errorf("%w: -kernel %s requires a size argument", ErrArgument, kind)
	}
	return Token{Op: "-kernel", Args: []string{kind, args[i+1]}}, 2, nil
}
