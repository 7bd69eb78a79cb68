// Package models defines the entities shared by the local client, the publication
// client and the page service.
//
// A [Page] is a note in a forest of pages: it has an optional parent and a
// denormalized, insertion-ordered list of children. Pages are identified by a
// [PageID] allocated once at creation time and never changed.
//
// Partial updates are expressed with struct-of-optionals types ([PageUpdate],
// [SettingsUpdate]) rather than untyped maps: a nil field means "leave as is".
//
// The publish lifecycle of a page is modelled by [PublishState] and [Transition]:
//
//	Private --Begin(true)--> Publishing --Succeed--> Public
//	Public --Begin(false)--> Retracting --Succeed--> Private
//
// A failed transition returns to the stable state it started from.
package models
