// Package catalogd embeds the catalog engine in a Go program: faceted
// catalog listings, event ingestion and seller reports over Valkey, Redis
// or MongoDB, without running the HTTP server.
//
//	client, err := catalogd.New(ctx, catalogd.WithValkey("localhost:6379", ""))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	page, _ := client.Catalog(catalogd.KindModel).Search(ctx, catalogd.Query{
//	    Facets: catalogd.Facets{catalogd.FacetTag: {"nlp"}},
//	    Sort:   "likes",
//	    Limit:  20,
//	})
//
//	sales, _ := client.Reports().Sales(ctx, "seller-1", 30)
package catalogd
