package object

// IsCallable reports whether v can be the callee of a call expression:
// a Closure, a Native, a Class (construction), or a BoundMethod.
func IsCallable(v Value) bool {
	if !v.IsObj() {
		return false
	}
	switch v.AsObj().Type() {
	case ObjTypeClosure, ObjTypeNative, ObjTypeClass, ObjTypeBoundMethod:
		return true
	}
	return false
}

// CallableName returns a human-readable name for a callable value (the
// type name for anything that is not a callable object).
func CallableName(v Value) string {
	if !v.IsObj() {
		return v.TypeName()
	}
	switch o := v.AsObj().(type) {
	case *Closure:
		if o.Fn.Name != nil {
			return o.Fn.Name.Chars
		}
		return "script"
	case *Native:
		return o.Name
	case *Class:
		return o.Name.Chars
	case *BoundMethod:
		return CallableName(o.Method)
	}
	return v.TypeName()
}
