// Package parser turns a raw query string into one of four query forms.
// Forms never nest: a query is a single term, an OR list, an AND list or a
// quoted phrase.
package parser

import (
	"strings"
)

const (
	orSeparator  = " OR "
	andSeparator = " AND "
)

// Mode names the query form.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeOr     Mode = "or"
	ModeAnd    Mode = "and"
	ModePhrase Mode = "phrase"
)

// Query is the closed set SingleTerm, Or, And and Phrase.
type Query interface {
	Mode() Mode
	// Key is a canonical form: equal Keys always produce equal results.
	Key() string
	query()
}

type SingleTerm struct {
	Term string
}

type Or struct {
	Terms []string
}

type And struct {
	Terms []string
}

// Phrase holds the phrase's terms in order, stop words included; they are
// removed at execution time.
type Phrase struct {
	Terms []string
}

func (SingleTerm) Mode() Mode { return ModeSingle }
func (Or) Mode() Mode         { return ModeOr }
func (And) Mode() Mode        { return ModeAnd }
func (Phrase) Mode() Mode     { return ModePhrase }

func (q SingleTerm) Key() string { return "single:" + q.Term }
func (q Or) Key() string         { return "or:" + strings.Join(q.Terms, "\x00") }
func (q And) Key() string        { return "and:" + strings.Join(q.Terms, "\x00") }
func (q Phrase) Key() string     { return "phrase:" + strings.Join(q.Terms, "\x00") }

func (SingleTerm) query() {}
func (Or) query()         {}
func (And) query()        {}
func (Phrase) query()     {}

// Parse picks the form by surface syntax, checked in this order:
//
//  1. the trimmed query starts and ends with '"'  -> Phrase (split on whitespace)
//  2. it contains " OR "                          -> Or
//  3. it contains " AND "                         -> And
//  4. otherwise                                   -> SingleTerm
//
// Separators are case-sensitive. Terms are trimmed and lower-cased; terms
// left empty are dropped.
func Parse(raw string) Query {
	q := strings.TrimSpace(raw)
	switch {
	case len(q) >= 2 && q[0] == '"' && q[len(q)-1] == '"':
		return Phrase{Terms: normalize(strings.Fields(strings.Trim(q, `"`)))}
	case strings.Contains(q, orSeparator):
		return Or{Terms: normalize(strings.Split(q, orSeparator))}
	case strings.Contains(q, andSeparator):
		return And{Terms: normalize(strings.Split(q, andSeparator))}
	default:
		return SingleTerm{Term: strings.ToLower(q)}
	}
}

func normalize(parts []string) []string {
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}
