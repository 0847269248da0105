// Package api serves the storefront over HTTP with chi.
//
// Every /v1 route except the registry listings is tenant scoped: the
// TenantResolver (by default the X-Store-ID and X-User-ID headers) runs
// first and requests without a store fail with E801.
//
//	GET    /v1/components
//	POST   /v1/components/{type}/instances
//	GET    /v1/actions
//	POST   /v1/actions/dispatch
//	GET    /v1/documents/{kind}?status=draft|published
//	GET    /v1/documents/{kind}/{key}/draft       (PUT, DELETE)
//	POST   /v1/documents/{kind}/{key}/publish
//	GET    /v1/documents/{kind}/{key}/published   (DELETE)
//	GET    /v1/documents/{kind}/{key}/diff
//	POST   /v1/render/{kind}/{key}?fallback=prefab
//	POST   /v1/render/{kind}/{key}/dispatch
//	GET    /v1/theme/draft                        (PUT)
//	POST   /v1/theme/publish
//	GET    /v1/theme/published
//	GET    /v1/live                               websocket
//
// Failures are JSON {"code","message","detail","violations"}. Invalid
// input maps to 400, unknown types, actions and absent documents to 404,
// publishing without a draft to 409 and everything else to 500.
package api
