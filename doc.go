// Package treeobj is a content-addressable object store with a Merkle
// tree layer on top. Directory snapshots are trees: ordered maps from
// path key to (metadata, digest). Identical content is stored once, and
// two snapshots can be compared, merged, patched and materialized back
// onto a filesystem.
//
// Snapshot a directory and inspect it:
//
//	db, _ := odb.Open(treeobj.NewOsFS(), "/var/lib/treeobj")
//	obj, _ := treeobj.Build(ctx, db, afero.NewOsFs(), "data/")
//
//	tree := obj.(*treeobj.Tree)
//	for key, e := range tree.Entries() {
//		fmt.Println(e.Digest, key)
//	}
//
// Compare and merge two snapshots:
//
//	d, _ := treeobj.Diff(ctx, oldTree, newTree, db)
//	fmt.Println(len(d.Added), "added,", len(d.Modified), "modified")
//
//	merged, err := treeobj.Merge(ctx, db, nil, oidA, oidB)
//	var conflict *treeobj.ConflictError
//	if errors.As(err, &conflict) {
//		fmt.Println("conflicts:", conflict.Paths)
//	}
//
// Materialize a snapshot, preferring links over copies:
//
//	treeobj.Checkout(ctx, "out/", treeobj.NewOsFS(), tree, db,
//		treeobj.WithLinkStrategy(treeobj.LinkReflink, treeobj.LinkHardlink, treeobj.LinkCopy))
//
// Mutating operations (patch, merge) leave a tree digest-invalid;
// recompute with Digest or Save before persisting. A Tree is not safe
// for concurrent mutation.
package treeobj
