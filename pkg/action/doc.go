// Package action provides the action registry and dispatcher.
//
// Nodes reference actions per interaction slot:
//
//	"actions": {"onClick": {"actionId": "cart.add", "payload": {"productId": "p-1"}}}
//
// At dispatch time the id is resolved against a Registry, the payload is
// checked against the action's schema, and the handler is invoked once with
// the payload and the request's runtime context. Handler errors are returned
// to the caller; the dispatcher never retries.
//
//	reg := action.NewRegistry()
//	reg.RegisterBuiltins(action.Collaborators{Cart: carts})
//
//	d := action.NewDispatcher(reg, action.WithRecorder(metrics))
//	err := d.Dispatch(ctx, ref, rc)
package action
