package expr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

var (
	epochStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	epochEnd   = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Builtins returns a fresh registry with every built-in generator function.
// rowNumber() is not included; a generation pass binds it with With.
func Builtins() *Registry {
	r := NewRegistry()

	r.Register("randomBoolean", Func{Returns: TypeBool, Impl: func(env *Env, _ []any) (any, error) {
		return env.Rand.IntN(2) == 1, nil
	}})
	r.Register("randomInt", Func{Returns: TypeInt, Params: []Type{TypeInt, TypeInt}, Impl: func(env *Env, args []any) (any, error) {
		return intBetween(env, args, 0, math.MaxInt32)
	}})
	r.Register("randomLong", Func{Returns: TypeInt, Params: []Type{TypeInt, TypeInt}, Impl: func(env *Env, args []any) (any, error) {
		return intBetween(env, args, 0, math.MaxInt64-1)
	}})
	r.Register("randomDouble", Func{Returns: TypeFloat, Params: []Type{TypeFloat, TypeFloat}, Impl: func(env *Env, args []any) (any, error) {
		lo, hi := 0.0, 1.0
		if len(args) > 0 {
			lo = asFloat(args[0])
		}
		if len(args) > 1 {
			hi = asFloat(args[1])
		}
		return lo + env.Rand.Float64()*(hi-lo), nil
	}})
	r.Register("randomDecimal", Func{Returns: TypeDecimal, Params: []Type{TypeFloat, TypeFloat, TypeInt}, MinArgs: 2, Impl: randomDecimal})

	r.Register("randomString", Func{Returns: TypeString, Params: []Type{TypeInt}, Impl: func(env *Env, args []any) (any, error) {
		n, err := intArg("randomString", args, 0, 16)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("randomString: negative length %d", n)
		}
		return randomString(env.Rand, int(n)), nil
	}})
	registerPicker(r, "randomEmail", randomEmail)
	registerPicker(r, "randomFullName", randomFullName)
	registerPicker(r, "randomPhoneNumber", randomPhone)
	registerPicker(r, "randomZipCode", randomZip)
	registerList(r, "randomFirstName", firstNames)
	registerList(r, "randomLastName", lastNames)
	registerList(r, "randomCity", cities)
	registerList(r, "randomCountry", countries)
	registerList(r, "randomState", states)
	registerList(r, "randomCurrency", currencies)

	r.Register("randomJson", Func{Returns: TypeString, Params: []Type{TypeInt, TypeInt}, Impl: func(env *Env, args []any) (any, error) {
		items, err := intArg("randomJson", args, 0, 1)
		if err != nil {
			return nil, err
		}
		depth, err := intArg("randomJson", args, 1, 1)
		if err != nil {
			return nil, err
		}
		if items < 1 || depth < 1 || depth > 8 {
			return nil, fmt.Errorf("randomJson: items and depth must be positive, depth at most 8")
		}
		b, err := json.Marshal(randomJSONValue(env.Rand, int(items), int(depth)))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}})

	r.Register("randomBytes", Func{Returns: TypeBytes, Params: []Type{TypeInt}, MinArgs: 1, Impl: func(env *Env, args []any) (any, error) {
		n, err := intArg("randomBytes", args, 0, 0)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("randomBytes: negative length %d", n)
		}
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(env.Rand.UintN(256))
		}
		return b, nil
	}})
	r.Register("base64", Func{Returns: TypeString, Params: []Type{TypeBytes}, MinArgs: 1, Impl: func(_ *Env, args []any) (any, error) {
		switch v := args[0].(type) {
		case []byte:
			return base64.StdEncoding.EncodeToString(v), nil
		case string:
			return base64.StdEncoding.EncodeToString([]byte(v)), nil
		default:
			return nil, fmt.Errorf("base64: cannot encode %T", v)
		}
	}})
	r.Register("array", Func{Returns: TypeList, Params: []Type{TypeAny}, Variadic: true, Impl: func(_ *Env, args []any) (any, error) {
		return append([]any(nil), args...), nil
	}})

	r.Register("randomDate", Func{Returns: TypeDate, Impl: func(env *Env, _ []any) (any, error) {
		return civil.DateOf(randomInstant(env)), nil
	}})
	r.Register("randomTime", Func{Returns: TypeTime, Impl: func(env *Env, _ []any) (any, error) {
		return civil.TimeOf(randomInstant(env)), nil
	}})
	r.Register("randomDateTime", Func{Returns: TypeTimestamp, Impl: func(env *Env, _ []any) (any, error) {
		return civil.DateTimeOf(randomInstant(env)), nil
	}})
	r.Register("randomUUID", Func{Returns: TypeUUID, Impl: func(*Env, []any) (any, error) {
		return uuid.New(), nil
	}})

	r.Register("selectRandom", Func{Returns: TypeAny, Params: []Type{TypeAny}, MinArgs: 1, Variadic: true, Impl: func(env *Env, args []any) (any, error) {
		if len(args) == 1 {
			if list, ok := args[0].([]any); ok {
				args = list
			}
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("selectRandom: no values")
		}
		return args[env.Rand.IntN(len(args))], nil
	}})
	r.Register("selectWeighted", Func{Returns: TypeAny, Params: []Type{TypeList, TypeList}, MinArgs: 2, Impl: selectWeighted})

	return r
}

func registerPicker(r *Registry, name string, fn func(*rand.Rand) string) {
	r.Register(name, Func{Returns: TypeString, Impl: func(env *Env, _ []any) (any, error) {
		return fn(env.Rand), nil
	}})
}

func registerList(r *Registry, name string, values []string) {
	registerPicker(r, name, func(r *rand.Rand) string { return pick(r, values) })
}

// intArg converts a runtime argument; values typed Any at compile time are
// only checked here.
func intArg(fn string, args []any, i int, def int64) (int64, error) {
	if i >= len(args) {
		return def, nil
	}
	switch v := args[i].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	}
	return 0, model.ErrEvaluation(model.TypeMismatch, fn, "argument %d of %s is %T, want int", i+1, fn, args[i])
}

func intBetween(env *Env, args []any, lo, hi int64) (any, error) {
	lo, err := intArg("randomInt", args, 0, lo)
	if err != nil {
		return nil, err
	}
	if hi, err = intArg("randomInt", args, 1, hi); err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("empty range [%d, %d]", lo, hi)
	}
	return lo + env.Rand.Int64N(hi-lo+1), nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func randomDecimal(env *Env, args []any) (any, error) {
	lo, hi := asFloat(args[0]), asFloat(args[1])
	scale, err := intArg("randomDecimal", args, 2, 2)
	if err != nil {
		return nil, err
	}
	if scale < 0 {
		return nil, fmt.Errorf("randomDecimal: negative scale %d", scale)
	}
	v := lo + env.Rand.Float64()*(hi-lo)
	return strconv.FormatFloat(v, 'f', int(scale), 64), nil
}

func randomInstant(env *Env) time.Time {
	span := epochEnd.Unix() - epochStart.Unix()
	return time.Unix(epochStart.Unix()+env.Rand.Int64N(span), 0).UTC()
}

func selectWeighted(env *Env, args []any) (any, error) {
	values, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("selectWeighted: values must be a list")
	}
	rawWeights, ok := args[1].([]any)
	if !ok || len(rawWeights) != len(values) {
		return nil, fmt.Errorf("selectWeighted: need one weight per value")
	}
	weights := make([]float64, len(rawWeights))
	for i, w := range rawWeights {
		weights[i] = asFloat(w)
	}
	i, err := WeightedIndex(env, weights)
	if err != nil {
		return nil, err
	}
	return values[i], nil
}

// WeightedIndex draws an index with probability proportional to its weight.
func WeightedIndex(env *Env, weights []float64) (int, error) {
	var total float64
	for _, w := range weights {
		if w < 0 {
			return 0, fmt.Errorf("negative weight %v", w)
		}
		total += w
	}
	if total <= 0 {
		return 0, fmt.Errorf("weights must sum to a positive value")
	}
	target := env.Rand.Float64() * total
	for i, w := range weights {
		target -= w
		if target < 0 {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}
