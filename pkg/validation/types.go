// Package validation provides parameter type tags and value checks for workflow node parameters.
package validation

import (
	"strconv"
	"strings"
)

// ParamType is the declared type of a node parameter.
type ParamType string

const (
	TypeInteger       ParamType = "integer"
	TypeInt           ParamType = "int"
	TypeUint          ParamType = "uint"
	TypeAddress       ParamType = "address"
	TypeFloat         ParamType = "float"
	TypeURL           ParamType = "url"
	TypePhoneNumber   ParamType = "phone_number"
	TypeParagraph     ParamType = "paragraph"
	TypeString        ParamType = "string"
	TypeLogicOperator ParamType = "logic_operator"
	TypeBool          ParamType = "bool"
	TypeBoolean       ParamType = "boolean"
	TypePercentage    ParamType = "percentage"
	TypeEmail         ParamType = "email"
	TypeCron          ParamType = "cron"
	TypeAny           ParamType = "any"

	TypeInt8    ParamType = "int8"
	TypeInt16   ParamType = "int16"
	TypeInt32   ParamType = "int32"
	TypeInt64   ParamType = "int64"
	TypeInt128  ParamType = "int128"
	TypeInt256  ParamType = "int256"
	TypeUint8   ParamType = "uint8"
	TypeUint16  ParamType = "uint16"
	TypeUint32  ParamType = "uint32"
	TypeUint64  ParamType = "uint64"
	TypeUint128 ParamType = "uint128"
	TypeUint256 ParamType = "uint256"
)

const maxIntBits = 256

// LogicOperators lists the comparison operators accepted by the logic_operator type.
var LogicOperators = []string{"<", ">", "<=", ">=", "==", "!="}

// sizedInt reports whether t is an intN/uintN tag with N a multiple of 8 in [8, 256].
// The returned signed flag distinguishes intN from uintN.
func (t ParamType) sizedInt() (bits int, signed bool, ok bool) {
	s := string(t)

	switch {
	case strings.HasPrefix(s, "uint"):
		s = strings.TrimPrefix(s, "uint")
	case strings.HasPrefix(s, "int"):
		s = strings.TrimPrefix(s, "int")
		signed = true
	default:
		return 0, false, false
	}

	if s == "" || s[0] == '0' {
		return 0, false, false
	}

	bits, err := strconv.Atoi(s)
	if err != nil || bits%8 != 0 || bits < 8 || bits > maxIntBits {
		return 0, false, false
	}

	return bits, signed, true
}

// Known reports whether t is one of the supported type tags.
func (t ParamType) Known() bool {
	if _, _, ok := t.sizedInt(); ok {
		return true
	}

	switch t {
	case TypeInteger, TypeInt, TypeUint, TypeAddress, TypeFloat, TypeURL, TypePhoneNumber,
		TypeParagraph, TypeString, TypeLogicOperator, TypeBool, TypeBoolean,
		TypePercentage, TypeEmail, TypeCron, TypeAny:
		return true
	default:
		return false
	}
}
