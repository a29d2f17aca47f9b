// Package hrwerr holds the errors surfaced by declarations, term construction and rule
// management. Matching failures are not errors and never show up here.
package hrwerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type ErrCode int

const (
	None ErrCode = iota
	DuplicateSort
	UnknownSort
	InvalidDomain
	Arity
	SortMismatch
	KindMismatch
	NotALiteral
	IllFormedRule
	UnboundVariable
	Guard
	Declaration
)

// HrwError is implemented by every error of this package
type HrwError interface {
	error
	Code() ErrCode
}

// ErrStepLimit is returned together with a partially rewritten term when a bounded
// rewrite exhausts its budget
var ErrStepLimit = errors.New("rewrite step limit reached")

// New attaches a stack trace to err. The result still matches err's type with errors.As.
func New[E HrwError](err E) error {
	return errors.WithStack(err)
}

// CodeOf returns the code of the first HrwError in err's chain, or None
func CodeOf(err error) ErrCode {
	var hrwErr HrwError
	if errors.As(err, &hrwErr) {
		return hrwErr.Code()
	}
	return None
}

// FormatWithCode renders err as "(E005) message". When verbose is set the stack trace
// recorded by New is appended.
func FormatWithCode(err error, verbose bool) string {
	var hrwErr HrwError
	if !errors.As(err, &hrwErr) {
		return err.Error()
	}
	msg := fmt.Sprintf("(E%03d) %s", hrwErr.Code(), err.Error())
	if verbose {
		lines := strings.SplitN(fmt.Sprintf("%+v", err), "\n", 2)
		if len(lines) == 2 {
			msg += "\n" + lines[1]
		}
	}
	return msg
}

type DuplicateSortError struct {
	Name string
}

func (e DuplicateSortError) Error() string {
	return fmt.Sprintf("sort '%s' is already declared", e.Name)
}
func (e DuplicateSortError) Code() ErrCode { return DuplicateSort }

type UnknownSortError struct {
	Name string
}

func (e UnknownSortError) Error() string {
	return fmt.Sprintf("sort '%s' is not declared", e.Name)
}
func (e UnknownSortError) Code() ErrCode { return UnknownSort }

type InvalidDomainError struct {
	Domain string
	Reason string
}

func (e InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid domain specification \"%s\": %s", e.Domain, e.Reason)
}
func (e InvalidDomainError) Code() ErrCode { return InvalidDomain }

type ArityError struct {
	Constructor string
	Domain      string
	Got         int
}

func (e ArityError) Error() string {
	return fmt.Sprintf("constructor '%s' with domain \"%s\" cannot take %d arguments", e.Constructor, e.Domain, e.Got)
}
func (e ArityError) Code() ErrCode { return Arity }

type SortMismatchError struct {
	Constructor string
	Domain      string
	// Got is the sequence of argument specifications that was rejected
	Got string
}

func (e SortMismatchError) Error() string {
	return fmt.Sprintf("constructor '%s' expects \"%s\", but arguments are \"%s\"", e.Constructor, e.Domain, e.Got)
}
func (e SortMismatchError) Code() ErrCode { return SortMismatch }

type KindMismatchError struct {
	Constructor string
	Kind        string
	Wanted      string
}

func (e KindMismatchError) Error() string {
	return fmt.Sprintf("constructor '%s' is a %s constructor, not a %s one", e.Constructor, e.Kind, e.Wanted)
}
func (e KindMismatchError) Code() ErrCode { return KindMismatch }

type NotALiteralError struct {
	Term string
}

func (e NotALiteralError) Error() string {
	return fmt.Sprintf("term '%s' is not a literal", e.Term)
}
func (e NotALiteralError) Code() ErrCode { return NotALiteral }

type IllFormedRuleError struct {
	Pattern string
	Image   string
	Reason  string
}

func (e IllFormedRuleError) Error() string {
	return fmt.Sprintf("ill-formed rule %s -> %s: %s", e.Pattern, e.Image, e.Reason)
}
func (e IllFormedRuleError) Code() ErrCode { return IllFormedRule }

type UnboundVariableError struct {
	Variable string
}

func (e UnboundVariableError) Error() string {
	return fmt.Sprintf("variable '%s' is not bound by the substitution", e.Variable)
}
func (e UnboundVariableError) Code() ErrCode { return UnboundVariable }

// GuardError reports a guard that could not be compiled or evaluated
type GuardError struct {
	Rule string
	From error
}

func (e GuardError) Error() string {
	return fmt.Sprintf("guard of rule %s: %v", e.Rule, e.From)
}
func (e GuardError) Code() ErrCode { return Guard }
func (e GuardError) Unwrap() error { return e.From }

type DeclarationError struct {
	Where  string
	Reason string
}

func (e DeclarationError) Error() string {
	return fmt.Sprintf("declaration %s: %s", e.Where, e.Reason)
}
func (e DeclarationError) Code() ErrCode { return Declaration }
