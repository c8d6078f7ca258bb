// casegraph-lint checks the graph store's locking conventions and a few
// performance patterns.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/ersonp/casegraph/tools/casegraph-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
