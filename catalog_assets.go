package formdesigner

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
)

//go:embed assets/catalog/*.yaml
var embeddedCatalog embed.FS

// BuiltinCatalogFS exposes the catalog files shipped with the module
// (currently the stock section templates). Hosts can merge it with their own
// files:
//
//	cat, err := catalog.LoadFS(formdesigner.BuiltinCatalogFS())
func BuiltinCatalogFS() fs.FS {
	sub, err := fs.Sub(embeddedCatalog, "assets/catalog")
	if err != nil {
		return embeddedCatalog
	}
	return sub
}

// BuiltinCatalog parses BuiltinCatalogFS.
func BuiltinCatalog() (*catalog.Catalog, error) {
	return catalog.LoadFS(BuiltinCatalogFS())
}
