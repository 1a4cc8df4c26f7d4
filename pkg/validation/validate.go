package validation

import (
	"encoding/json"
	"math"
	"math/big"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var tagValidator = validator.New()

// ValidateType reports whether value is acceptable for a parameter declared with type t.
// Unknown type tags are rejected.
func ValidateType(t ParamType, value any) bool {
	if bits, signed, ok := t.sizedInt(); ok {
		return isSizedInteger(value, bits, signed)
	}

	switch t {
	case TypeInteger, TypeInt:
		_, ok := toBigInt(value, false)

		return ok
	case TypeUint:
		n, ok := toBigInt(value, false)

		return ok && n.Sign() >= 0
	case TypeAddress:
		s, ok := value.(string)

		return ok && IsAddress(s)
	case TypeFloat:
		_, ok := toFloat(value)

		return ok
	case TypeURL:
		return matchesTag(value, "url")
	case TypePhoneNumber:
		return matchesTag(value, "e164")
	case TypeEmail:
		return matchesTag(value, "email")
	case TypeParagraph, TypeString:
		_, ok := value.(string)

		return ok
	case TypeLogicOperator:
		s, ok := value.(string)

		return ok && slices.Contains(LogicOperators, s)
	case TypeBool, TypeBoolean:
		_, ok := value.(bool)

		return ok
	case TypePercentage:
		f, ok := toFloat(value)

		return ok && f >= 0 && f <= 100
	case TypeCron:
		s, ok := value.(string)
		if !ok {
			return false
		}

		_, err := cron.ParseStandard(s)

		return err == nil
	case TypeAny:
		return true
	default:
		return false
	}
}

func matchesTag(value any, tag string) bool {
	s, ok := value.(string)
	if !ok || s == "" {
		return false
	}

	return tagValidator.Var(s, tag) == nil
}

// isSizedInteger checks value against the range of an intN/uintN of the given width.
func isSizedInteger(value any, bits int, signed bool) bool {
	n, ok := toBigInt(value, true)
	if !ok {
		return false
	}

	var lowest, highest *big.Int

	if signed {
		highest = new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		lowest = new(big.Int).Neg(highest)
		highest.Sub(highest, big.NewInt(1))
	} else {
		lowest = big.NewInt(0)
		highest = new(big.Int).Lsh(big.NewInt(1), uint(bits))
		highest.Sub(highest, big.NewInt(1))
	}

	return n.Cmp(lowest) >= 0 && n.Cmp(highest) <= 0
}

// toBigInt converts integral values to a big.Int. Decimal strings are only
// accepted when allowString is set.
func toBigInt(value any, allowString bool) (*big.Int, bool) {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v)), true
	case int8:
		return big.NewInt(int64(v)), true
	case int16:
		return big.NewInt(int64(v)), true
	case int32:
		return big.NewInt(int64(v)), true
	case int64:
		return big.NewInt(v), true
	case uint:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	case float32:
		return integralFloat(float64(v))
	case float64:
		return integralFloat(v)
	case *big.Int:
		if v == nil {
			return nil, false
		}

		return new(big.Int).Set(v), true
	case json.Number:
		if n, ok := new(big.Int).SetString(v.String(), 10); ok {
			return n, true
		}

		f, err := v.Float64()
		if err != nil {
			return nil, false
		}

		return integralFloat(f)
	case string:
		if !allowString {
			return nil, false
		}

		return new(big.Int).SetString(v, 10)
	default:
		return nil, false
	}
}

func integralFloat(f float64) (*big.Int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, false
	}

	n, _ := big.NewFloat(f).Int(nil)

	return n, true
}

// toFloat converts any finite numeric value to float64.
func toFloat(value any) (float64, bool) {
	var f float64

	switch v := value.(type) {
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}

		f = parsed
	case *big.Int:
		if v == nil {
			return 0, false
		}

		f, _ = new(big.Float).SetInt(v).Float64()
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}
