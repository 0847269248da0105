// Package component provides the component registry: the palette of node
// types a storefront document may contain.
//
// Each Definition declares a type's category, its prop schema, which props
// may be bound to runtime data, its action slots, its child slot rule, and
// the default subtree a new instance starts from.
//
//	reg := component.NewRegistry()
//	reg.RegisterCore()
//
//	card, err := reg.CreateNode("ProductCard")
//	if errors.Is(err, sferrors.ErrUnknownComponentType) {
//	    ...
//	}
//
//	violations := reg.ValidateNode(tree)
//
// Registries are plain values: construct one at startup, populate it, and
// pass it to the document store and the HTTP API.
package component
