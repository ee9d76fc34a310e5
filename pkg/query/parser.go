// Package query parses the small statement language used by the
// interactive shell:
//
//	OBSERVE <series> <time> <value>
//	EXTRAPOLATE <series> AT <time>
//	COEFS <series> [AT <time>]
//	HISTORY <series> [FROM <time> TO <time>]
//	FORGET <series>
package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindObserve Kind = iota
	KindExtrapolate
	KindCoefs
	KindHistory
	KindForget
)

// Statement is one parsed command.
type Statement struct {
	Kind   Kind
	Series string

	Time  float64 // OBSERVE, EXTRAPOLATE, COEFS
	Value float64 // OBSERVE
	From  float64 // HISTORY
	To    float64 // HISTORY
}

const (
	namePat = `([A-Za-z_][A-Za-z0-9_.\-]*)`
	numPat  = `([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)`
)

var (
	observeRe     = regexp.MustCompile(`(?i)^OBSERVE\s+` + namePat + `\s+` + numPat + `\s+` + numPat + `$`)
	extrapolateRe = regexp.MustCompile(`(?i)^EXTRAPOLATE\s+` + namePat + `\s+AT\s+` + numPat + `$`)
	coefsRe       = regexp.MustCompile(`(?i)^COEFS\s+` + namePat + `(?:\s+AT\s+` + numPat + `)?$`)
	historyRe     = regexp.MustCompile(`(?i)^HISTORY\s+` + namePat + `(?:\s+FROM\s+` + numPat + `\s+TO\s+` + numPat + `)?$`)
	forgetRe      = regexp.MustCompile(`(?i)^FORGET\s+` + namePat + `$`)
)

func Parse(input string) (*Statement, error) {
	input = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(input), ";"))
	if input == "" {
		return nil, fmt.Errorf("query: empty statement")
	}

	if m := observeRe.FindStringSubmatch(input); m != nil {
		t, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("query: bad time %q", m[2])
		}
		v, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, fmt.Errorf("query: bad value %q", m[3])
		}
		return &Statement{Kind: KindObserve, Series: m[1], Time: t, Value: v}, nil
	}

	if m := extrapolateRe.FindStringSubmatch(input); m != nil {
		t, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("query: bad time %q", m[2])
		}
		return &Statement{Kind: KindExtrapolate, Series: m[1], Time: t}, nil
	}

	if m := coefsRe.FindStringSubmatch(input); m != nil {
		st := &Statement{Kind: KindCoefs, Series: m[1]}
		if m[2] != "" {
			t, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("query: bad time %q", m[2])
			}
			st.Time = t
		}
		return st, nil
	}

	if m := historyRe.FindStringSubmatch(input); m != nil {
		st := &Statement{Kind: KindHistory, Series: m[1], From: math.Inf(-1), To: math.Inf(1)}
		if m[2] != "" {
			from, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("query: bad time %q", m[2])
			}
			to, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				return nil, fmt.Errorf("query: bad time %q", m[3])
			}
			st.From, st.To = from, to
		}
		return st, nil
	}

	if m := forgetRe.FindStringSubmatch(input); m != nil {
		return &Statement{Kind: KindForget, Series: m[1]}, nil
	}

	return nil, fmt.Errorf("query: cannot parse %q", input)
}
