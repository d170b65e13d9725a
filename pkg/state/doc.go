// Package state persists the values of one frame so they survive restarts.
//
// A Store loads and saves one Snapshot per Ref. The Resolver captures a
// frame into a snapshot, persists it with optimistic concurrency on Meta.ETag
// and restores it into a props.Store, where every value runs through the
// property's conversion gate again.
//
// Data flow:
//
//	props.Frame -> Resolver.Capture -> Snapshot -> Store.Save
//	Store.Load -> Snapshot -> Resolver.Restore -> props.Frame
//
// Values are looked up by property name in a props.Registry. Names the
// registry does not know and values the gate rejects are skipped and logged,
// so an old snapshot never prevents an object from loading.
package state
