package decl

import (
	"fmt"
	"reflect"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/rewrite"
	"github.com/cottand/hrewrite/term"
	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var boolType = reflect.TypeOf(true)

// guardCompiler interprets every guard of a document in one yaegi interpreter
type guardCompiler struct {
	i     *interp.Interpreter
	count int
}

func newGuardCompiler() (*guardCompiler, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, err
	}
	return &guardCompiler{i: i}, nil
}

// compile evaluates src and checks that the resulting function fits the guard's
// arguments and binding
func (gc *guardCompiler) compile(src string, nArgs int, binds bool) (reflect.Value, error) {
	name := fmt.Sprintf("guard%d", gc.count)
	gc.count++
	if _, err := gc.i.Eval(fmt.Sprintf("var %s = %s", name, src)); err != nil {
		return reflect.Value{}, err
	}
	fn, err := gc.i.Eval(name)
	if err != nil {
		return reflect.Value{}, err
	}
	if fn.Kind() != reflect.Func {
		return reflect.Value{}, errors.Errorf("expected a function, got %s", fn.Type())
	}
	fnType := fn.Type()
	if fnType.NumIn() != nArgs {
		return reflect.Value{}, errors.Errorf("function takes %d parameters, but %d args are declared", fnType.NumIn(), nArgs)
	}
	if fnType.NumOut() != 1 {
		return reflect.Value{}, errors.Errorf("function must return exactly one value")
	}
	isPredicate := fnType.Out(0) == boolType
	if binds == isPredicate {
		if binds {
			return reflect.Value{}, errors.New("a guard with 'bind' must not return bool")
		}
		return reflect.Value{}, errors.New("a guard returning a value needs 'bind' and 'literal'")
	}
	return fn, nil
}

// convertArg turns a literal payload into a value of type to. Numbers convert between
// each other, anything else must be assignable.
func convertArg(value any, to reflect.Type) (reflect.Value, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return reflect.Zero(to), nil
	}
	if v.Type().AssignableTo(to) {
		return v, nil
	}
	if isNumber(v.Kind()) && isNumber(to.Kind()) {
		return v.Convert(to), nil
	}
	return reflect.Value{}, errors.Errorf("cannot use %v (%s) as %s", value, v.Type(), to)
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// guard wraps a compiled function as a rewrite.Guard. Failures to read or convert the
// arguments, and panics of the function, abort the rewrite through Rewriter.Fail.
func guard(rule string, fn reflect.Value, args []*term.Variable, bind *term.Variable, literal *algebra.Constructor) rewrite.Guard {
	fnType := fn.Type()
	fail := func(rw *rewrite.Rewriter, err error) bool {
		rw.Fail(hrwerr.New(hrwerr.GuardError{Rule: rule, From: err}))
		return false
	}
	return func(rw *rewrite.Rewriter, sub *term.Substitution) (accepted bool) {
		in := make([]reflect.Value, len(args))
		for i, v := range args {
			bound, ok := sub.Lookup(v)
			if !ok {
				return fail(rw, hrwerr.New(hrwerr.UnboundVariableError{Variable: v.String()}))
			}
			value, err := rw.Store().Value(bound)
			if err != nil {
				return fail(rw, err)
			}
			in[i], err = convertArg(value, fnType.In(i))
			if err != nil {
				return fail(rw, err)
			}
		}

		defer func() {
			if r := recover(); r != nil {
				accepted = fail(rw, errors.Errorf("panic: %v", r))
			}
		}()
		out := fn.Call(in)[0]
		if bind == nil {
			return out.Bool()
		}
		result, err := rw.Store().MakeLiteral(literal, out.Interface())
		if err != nil {
			return fail(rw, err)
		}
		return sub.Bind(bind, result)
	}
}
