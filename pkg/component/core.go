package component

import "github.com/vango-dev/storefront/pkg/node"

// Core component type names.
const (
	TypeContainer   = "Container"
	TypeSection     = "Section"
	TypeGrid        = "Grid"
	TypeHeading     = "Heading"
	TypeText        = "Text"
	TypeImage       = "Image"
	TypeButton      = "Button"
	TypeLink        = "Link"
	TypeProductCard = "ProductCard"
	TypeProductGrid = "ProductGrid"
	TypeCartSummary = "CartSummary"
	TypeSlot        = "Slot"
	TypePrefabRef   = "PrefabRef"
)

var boxStyles = []string{
	"padding", "margin", "gap", "background", "color", "border", "borderRadius",
	"width", "maxWidth", "minHeight", "display", "flexDirection", "alignItems", "justifyContent",
}

var textStyles = []string{
	"color", "fontSize", "fontWeight", "lineHeight", "textAlign", "margin", "padding", "letterSpacing",
}

func coreDefinitions() []Definition {
	return []Definition{
		{
			Type:      TypeContainer,
			Category:  CategoryLayout,
			Label:     "Container",
			Props:     map[string]PropSpec{"maxWidth": {Kind: KindString}, "as": {Kind: KindString}},
			StyleKeys: boxStyles,
			Slots:     &SlotRule{},
			Defaults: &node.Node{
				Props:  map[string]any{"maxWidth": "1200px"},
				Styles: node.Styles{Base: map[string]any{"padding": "16px"}},
			},
		},
		{
			Type:        TypeSection,
			Category:    CategoryLayout,
			Label:       "Section",
			Props:       map[string]PropSpec{"title": {Kind: KindString}},
			StyleKeys:   boxStyles,
			BindingKeys: []string{"title"},
			Slots:       &SlotRule{},
			Defaults:    &node.Node{Styles: node.Styles{Base: map[string]any{"padding": "24px 0"}}},
		},
		{
			Type:      TypeGrid,
			Category:  CategoryLayout,
			Label:     "Grid",
			Props:     map[string]PropSpec{"columns": {Kind: KindNumber, Required: true}},
			StyleKeys: boxStyles,
			Slots:     &SlotRule{},
			Defaults: &node.Node{
				Props: map[string]any{"columns": 3},
				Styles: node.Styles{
					Base:        map[string]any{"gap": "16px"},
					Breakpoints: map[string]map[string]any{"sm": {"gap": "8px"}},
				},
			},
		},
		{
			Type:        TypeHeading,
			Category:    CategoryContent,
			Label:       "Heading",
			Props:       map[string]PropSpec{"text": {Kind: KindString, Required: true}, "level": {Kind: KindNumber}},
			StyleKeys:   textStyles,
			BindingKeys: []string{"text"},
			Defaults:    &node.Node{Props: map[string]any{"text": "Welcome to our store", "level": 1}},
		},
		{
			Type:        TypeText,
			Category:    CategoryContent,
			Label:       "Text",
			Props:       map[string]PropSpec{"text": {Kind: KindString, Required: true}},
			StyleKeys:   textStyles,
			BindingKeys: []string{"text"},
			Defaults:    &node.Node{Props: map[string]any{"text": "Discover our latest products."}},
		},
		{
			Type:        TypeImage,
			Category:    CategoryMedia,
			Label:       "Image",
			Props:       map[string]PropSpec{"src": {Kind: KindString, Required: true}, "alt": {Kind: KindString}},
			StyleKeys:   []string{"width", "height", "objectFit", "borderRadius", "margin"},
			BindingKeys: []string{"src", "alt"},
			Defaults:    &node.Node{Props: map[string]any{"src": "", "alt": ""}},
		},
		{
			Type:        TypeButton,
			Category:    CategoryAction,
			Label:       "Button",
			Props:       map[string]PropSpec{"label": {Kind: KindString, Required: true}, "variant": {Kind: KindString}},
			StyleKeys:   append(append([]string(nil), boxStyles...), "fontSize", "fontWeight"),
			BindingKeys: []string{"label"},
			ActionSlots: []string{"onClick"},
			Defaults:    &node.Node{Props: map[string]any{"label": "Shop now", "variant": "primary"}},
		},
		{
			Type:        TypeLink,
			Category:    CategoryAction,
			Label:       "Link",
			Props:       map[string]PropSpec{"label": {Kind: KindString, Required: true}, "href": {Kind: KindString, Required: true}},
			StyleKeys:   textStyles,
			BindingKeys: []string{"label", "href"},
			ActionSlots: []string{"onClick"},
			Defaults:    &node.Node{Props: map[string]any{"label": "Learn more", "href": "/"}},
		},
		{
			Type:     TypeProductCard,
			Category: CategoryCommerce,
			Label:    "Product card",
			Props: map[string]PropSpec{
				"productId": {Kind: KindString},
				"title":     {Kind: KindString},
				"price":     {Kind: KindNumber},
				"image":     {Kind: KindString},
			},
			StyleKeys:   boxStyles,
			BindingKeys: []string{"productId", "title", "price", "image"},
			ActionSlots: []string{"onClick", "onAddToCart"},
			Defaults: &node.Node{
				Bindings: map[string]string{
					"productId": "product.id",
					"title":     "product.title",
					"price":     "product.variants[0].price",
					"image":     "product.images[0].src",
				},
			},
		},
		{
			Type:        TypeProductGrid,
			Category:    CategoryCommerce,
			Label:       "Product grid",
			Props:       map[string]PropSpec{"collectionId": {Kind: KindString}, "limit": {Kind: KindNumber}},
			StyleKeys:   boxStyles,
			BindingKeys: []string{"collectionId"},
			Slots:       &SlotRule{Allow: []string{TypeProductCard}},
			Defaults: &node.Node{
				Props:    map[string]any{"limit": 8},
				Bindings: map[string]string{"collectionId": "collection.id"},
			},
		},
		{
			Type:     TypeCartSummary,
			Category: CategoryCommerce,
			Label:    "Cart summary",
			Props: map[string]PropSpec{
				"itemCount": {Kind: KindNumber},
				"subtotal":  {Kind: KindNumber},
			},
			StyleKeys:   boxStyles,
			BindingKeys: []string{"itemCount", "subtotal"},
			ActionSlots: []string{"onCheckout"},
			Defaults: &node.Node{
				Props:    map[string]any{"itemCount": 0, "subtotal": 0},
				Bindings: map[string]string{"itemCount": "cart.itemCount", "subtotal": "cart.subtotal"},
				Actions: map[string]node.ActionRef{
					"onCheckout": {ActionID: "navigate", Payload: map[string]any{"to": "/checkout"}},
				},
			},
		},
		{
			Type:     TypeSlot,
			Category: CategoryStruct,
			Label:    "Slot",
			Props:    map[string]PropSpec{"name": {Kind: KindString, Required: true}},
			Slots:    &SlotRule{},
			Defaults: &node.Node{Props: map[string]any{"name": "main"}},
		},
		{
			Type:     TypePrefabRef,
			Category: CategoryStruct,
			Label:    "Prefab",
			Props:    map[string]PropSpec{"prefabKey": {Kind: KindString, Required: true}},
			Defaults: &node.Node{Props: map[string]any{"prefabKey": ""}},
		},
	}
}

// DefaultHomeLayout builds the starter home page: a Container holding one
// Heading and one Text.
func (r *Registry) DefaultHomeLayout() (*node.Node, error) {
	root, err := r.CreateNode(TypeContainer)
	if err != nil {
		return nil, err
	}
	for _, typ := range []string{TypeHeading, TypeText} {
		child, err := r.CreateNode(typ)
		if err != nil {
			return nil, err
		}
		root = node.Insert(root, root.ID, child)
	}
	return root, nil
}
