// Package formula models the package descriptor a package manager uses to
// fetch, checksum-verify and place a prebuilt binary and its man page.
//
// A Descriptor is usually loaded from YAML and rendered as a Homebrew
// formula:
//
//	d, err := formula.Load("procdump.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	path, err := d.WriteFile("Formula")
//
// Install performs the same steps the package manager does, which is how the
// descriptor is checked end to end: the archive is fetched, its SHA-256 must
// match the declared checksum, and each declared binary and man page is
// placed under the prefix.
//
//	res, err := formula.Install(ctx, d, "/usr/local")
package formula
