// Package projctx keeps per-project context caches for a note vault.
//
// A project is a named subset of the vault selected by inclusion and
// exclusion patterns. For each project projctx persists one JSON document
// recording which files belong to it, the aggregated markdown of its notes,
// and pointers to the parsed text of every other file. Documents live in the
// vault's system directory (.projctx by default) and are only ever changed
// through per-project serialized read-modify-write updates, so concurrent
// loaders, watchers and CLI invocations never lose each other's changes.
//
// Usage:
//
//	app, err := projctx.New("./vault",
//		projctx.WithAutoInit(true),
//		projctx.WithProjects(projects),
//		projctx.WithLogger(logger),
//	)
//	defer app.Close()
//
//	pc, err := app.Manager.LoadContext(ctx, projects[0])
//	fmt.Println(pc.Markdown)
package projctx
