// Package source defines the native map data source shared between the host
// peer and the style that may adopt it.
//
// A Source carries its identity (ID, Kind, optional Attribution and URL) and
// a back-reference slot. The slot is ownership agnostic: it holds whatever
// the bridge stores there, and becomes the owning path to the peer while the
// source is held by a container.
//
//	src, err := source.New("composite", source.KindVector,
//	    source.WithURL("mapbox://mapbox.mapbox-streets-v8"),
//	    source.WithAttribution("© Mapbox"))
//
// Destroying a source with Drop first releases the value in its slot when
// that value implements Releaser. This is how native destruction reaches the
// peer that fronts the source.
package source
