package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// Sentinels for the core error kinds. Compare with errors.Is; the code is
// what matters, so errors built with New(code).WithDetail(...) still match.
var (
	ErrInvalidPath             = New("E101")
	ErrUnknownComponentType    = New("E201")
	ErrInvalidComponent        = New("E202")
	ErrInvalidDefinitionFile   = New("E203")
	ErrUnknownAction           = New("E301")
	ErrInvalidActionPayload    = New("E302")
	ErrInvalidActionDefinition = New("E303")
	ErrInvalidDocument         = New("E401")
	ErrNoDraftToPublish        = New("E402")
	ErrDocumentNotFound        = New("E403")
	ErrInvalidIdentity         = New("E404")
	ErrInvalidTheme            = New("E405")
	ErrConfigParse             = New("E501")
	ErrConfigNotFound          = New("E502")
	ErrConfigInvalid           = New("E503")
	ErrStorage                 = New("E601")
	ErrUnsupportedDriver       = New("E602")
	ErrExport                  = New("E701")
	ErrMissingTenant           = New("E801")
	ErrBadRequest              = New("E802")
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Binding Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryBinding,
		Message:  "Invalid binding path",
		Detail:   "Binding paths are dot-separated keys with optional [index] suffixes, e.g. product.variants[0].price.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E101",
	},

	// ============================================
	// Tree & Component Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryTree,
		Message:  "Unknown component type",
		Detail:   "Nodes can only be created for types registered in the component registry.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryTree,
		Message:  "Invalid component definition",
		DocURL:   "https://storefront.vango.dev/docs/errors/E202",
	},
	"E203": {
		Category: CategoryTree,
		Message:  "Invalid component definition file",
		DocURL:   "https://storefront.vango.dev/docs/errors/E203",
	},

	// ============================================
	// Action Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryAction,
		Message:  "Unknown action",
		Detail:   "The action id referenced by the node is not registered.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E301",
	},
	"E302": {
		Category: CategoryAction,
		Message:  "Invalid action payload",
		DocURL:   "https://storefront.vango.dev/docs/errors/E302",
	},
	"E303": {
		Category: CategoryAction,
		Message:  "Invalid action definition",
		DocURL:   "https://storefront.vango.dev/docs/errors/E303",
	},

	// ============================================
	// Document Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategoryDocument,
		Message:  "Invalid document",
		Detail:   "The tree failed structural validation and was not saved.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E401",
	},
	"E402": {
		Category: CategoryDocument,
		Message:  "No draft to publish",
		Detail:   "Save a draft before publishing.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E402",
	},
	"E403": {
		Category: CategoryDocument,
		Message:  "Document not found",
		DocURL:   "https://storefront.vango.dev/docs/errors/E403",
	},
	"E404": {
		Category: CategoryDocument,
		Message:  "Invalid document identity",
		Detail:   "Documents are identified by a non-empty store id, a known kind and a non-empty key.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E404",
	},
	"E405": {
		Category: CategoryDocument,
		Message:  "Invalid theme",
		DocURL:   "https://storefront.vango.dev/docs/errors/E405",
	},

	// ============================================
	// Config Errors (E500-E599)
	// ============================================

	"E501": {
		Category: CategoryConfig,
		Message:  "Invalid storefront.json",
		DocURL:   "https://storefront.vango.dev/docs/errors/E501",
	},
	"E502": {
		Category: CategoryConfig,
		Message:  "storefront.json not found",
		DocURL:   "https://storefront.vango.dev/docs/errors/E502",
	},
	"E503": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   "https://storefront.vango.dev/docs/errors/E503",
	},

	// ============================================
	// Storage Errors (E600-E699)
	// ============================================

	"E601": {
		Category: CategoryStorage,
		Message:  "Storage backend failure",
		DocURL:   "https://storefront.vango.dev/docs/errors/E601",
	},
	"E602": {
		Category: CategoryStorage,
		Message:  "Unsupported storage driver",
		Detail:   "Supported drivers are memory, sqlite and nats.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E602",
	},
	"E701": {
		Category: CategoryStorage,
		Message:  "Snapshot export failed",
		DocURL:   "https://storefront.vango.dev/docs/errors/E701",
	},

	// ============================================
	// API Errors (E800-E899)
	// ============================================

	"E801": {
		Category: CategoryAPI,
		Message:  "Missing tenant",
		Detail:   "Requests must identify the store they operate on.",
		DocURL:   "https://storefront.vango.dev/docs/errors/E801",
	},
	"E802": {
		Category: CategoryAPI,
		Message:  "Bad request",
		DocURL:   "https://storefront.vango.dev/docs/errors/E802",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
