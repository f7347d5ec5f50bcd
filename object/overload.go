package object

// Operator-overload well-known keys, giving every overload hook one
// canonical definition site.
const (
	OverloadAdd    = "__operator_add__"
	OverloadSub    = "__operator_sub__"
	OverloadMul    = "__operator_mul__"
	OverloadDiv    = "__operator_div__"
	OverloadMod    = "__operator_mod__"
	OverloadOr     = "__operator_or__"
	OverloadXor    = "__operator_xor__"
	OverloadAnd    = "__operator_and__"
	OverloadLshift = "__operator_lshift__"
	OverloadRshift = "__operator_rshift__"
	OverloadMinus  = "__operator_minus__"
	OverloadBang   = "__operator_bang__"
	OverloadCmp    = "__cmp__"
	OverloadGetIdx = "__getindex__"
	OverloadSetIdx = "__setindex__"
	OverloadCall   = "__call__"
)

// LookupOverload returns the callable bound to key on m, if m is a Map and
// that key is present and callable.
func LookupOverload(o Object, key string) (Object, bool) {
	m, ok := o.(*Map)
	if !ok {
		return nil, false
	}
	v, ok := m.Get(&String{Value: key})
	if !ok || !IsCallable(v) {
		return nil, false
	}
	return v, true
}
