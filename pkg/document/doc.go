// Package document provides the versioned store for storefront documents
// and themes.
//
// Every document identity (store, kind, key) has two independent slots,
// DRAFT and PUBLISHED. SaveDraft validates and replaces the draft; Publish
// copies the draft over the published slot in a single backend transaction,
// so readers see either the old or the new published tree, never a mix.
// Themes follow the same lifecycle with a flat variable map in place of a
// tree.
//
//	store := document.NewStore(backend,
//	    document.WithValidators(document.DefaultValidators(components, actions)),
//	    document.WithHooks(exporter, notifier),
//	)
//
//	if _, err := store.SaveDraft(ctx, "s1", document.KindPage, "home", tree, nil); err != nil {
//	    // errors.Is(err, sferrors.ErrInvalidDocument) carries the violations
//	}
//	published, err := store.Publish(ctx, "s1", document.KindPage, "home")
//
// Hooks run after a change commits. They receive their own copy of the
// document and cannot fail the operation.
package document
