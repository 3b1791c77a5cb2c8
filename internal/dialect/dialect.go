// Package dialect captures the source-language version a session compiles
// for. A handful of rewrite rules depend on it: execfile only exists in the
// 2.x line, range() only returns a list there, and the domain of chr()
// widened from bytes to code points in 3.0.
package dialect

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version constraints of version dependent rules
const (
	constraintExecfile    = "< 3.0.0-0"
	constraintRangeIsList = "< 3.0.0-0"
	constraintByteChr     = "< 3.0.0-0"
)

// MaxUnicode is the largest code point chr() accepts on 3.x
const MaxUnicode = 0x10FFFF

// Dialect is a parsed source-language version
type Dialect struct {
	version *semver.Version
}

// Parse parses a loose version such as "2.7" or "3.11.4"
func Parse(version string) (*Dialect, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid language version %q: %w", version, err)
	}
	return &Dialect{version: v}, nil
}

// MustParse is like Parse but panics on malformed input
func MustParse(version string) *Dialect {
	d, err := Parse(version)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the version in major.minor.patch form
func (d *Dialect) String() string { return d.version.String() }

// Allows reports whether the dialect satisfies constraint
func (d *Dialect) Allows(constraint string) bool {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return c.Check(d.version)
}

// HasExecfile reports whether the execfile builtin exists
func (d *Dialect) HasExecfile() bool { return d.Allows(constraintExecfile) }

// RangeIsList reports whether range() materializes a list
func (d *Dialect) RangeIsList() bool { return d.Allows(constraintRangeIsList) }

// MaxChr returns the largest argument chr() accepts
func (d *Dialect) MaxChr() int64 {
	if d.Allows(constraintByteChr) {
		return 0xFF
	}
	return MaxUnicode
}

// Chr converts a code to the one-character string chr() returns. Byte
// dialects produce a single byte, code point dialects UTF-8.
func (d *Dialect) Chr(code int64) (string, bool) {
	if code < 0 || code > d.MaxChr() {
		return "", false
	}
	if d.MaxChr() == 0xFF {
		return string([]byte{byte(code)}), true
	}
	if code >= 0xD800 && code <= 0xDFFF {
		// Surrogates have no UTF-8 encoding.
		return "", false
	}
	return string(rune(code)), true
}
