// Package media defines the domain vocabulary shared by the resolver, the
// stream source and the mux pipeline: validated links, encoding
// descriptors with an explicit audio/video kind, catalogs, selectors and
// the error taxonomy.
//
// The package has no dependencies beyond the standard library so that
// every other package can import it without cycles.
package media
