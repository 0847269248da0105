// Package errors provides structured, actionable errors for the storefront
// composition engine.
//
// Every error carries a stable code that maps to a category, a short message,
// a detailed explanation and a documentation URL. Errors produced by the core
// can be matched against the package sentinels with the standard errors.Is:
//
//	doc, err := store.Publish(ctx, "store-1", document.KindPage, "home")
//	if errors.Is(err, sferrors.ErrNoDraftToPublish) {
//	    // nothing saved yet
//	}
//
// # Error Categories
//
//   - tree: component registry and node creation
//   - binding: binding path parsing
//   - action: action registry and dispatch
//   - document: draft/publish lifecycle and validation
//   - storage: persistence backends and snapshot export
//   - config: storefront.json loading
//   - api: HTTP surface
//
// # Validation Errors
//
// Validation failures (ErrInvalidDocument, ErrInvalidActionPayload,
// ErrInvalidComponent) carry every problem found as a list of Violation values
// rather than stopping at the first one:
//
//	ERROR E401: Invalid document
//
//	  store-1/PAGE/home
//
//	  • n-7: props.text: required prop is missing
//	  • n-9: unknown component type "Carousel"
//
//	  Learn more: https://storefront.vango.dev/docs/errors/E401
package errors
