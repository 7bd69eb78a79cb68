// Package state holds the in-memory view of the notes and mediates every change
// between callers, the local store and the page service.
//
// A [Manager] is built by the composition root with its collaborators:
//
//	store, _ := badgerstore.OpenStore(badgerstore.DefaultConfig(dir))
//	client := publish.NewClient("https://noted.example")
//	m := state.New(store, client, state.WithLogger(logger))
//	m.Initialize(ctx)
//
// Page actions never return storage or network errors. Failures are logged and
// surfaced as a false/nil result, following these rules:
//
//   - Unknown page ids make the action a no-op that reports failure.
//   - When the local store fails, the in-memory state is left unchanged and
//     the action reports failure. In degraded mode, entered when Initialize
//     could not read the store, store failures are logged and the change is
//     applied in memory only.
//   - Publishing is optimistic. The page, including its new public flag, is
//     committed locally first; the page service is called second; if that
//     call fails, only the public flag is restored in the store and in
//     memory, and the other fields of the same update stay applied.
//
// Actions on the same page id are serialized by a per-page mutex, so two
// overlapping publish toggles resolve in call order: the last call wins.
package state
