/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package notebook reads Jupyter notebooks and turns the outputs of selected
cells into an output Bundle.

# Overview

A report embeds notebook cells with directives such as

	{{< embed analysis.ipynb#fig-voltage echo=false >}}

Resolving one directive takes three ordered steps, each expressed as a list
of strategies so the order is data rather than control flow:

  - Candidates pick the file. A rendered sibling (analysis_output.ipynb and
    friends) is preferred over the source notebook, since only the rendered
    copy is guaranteed to carry outputs.
  - Matchers pick the cells: exact id, then label, then tag. When no matcher
    selects a cell, every cell in the notebook is used.
  - Each output is classified into a closed set of Kinds, and the handler for
    that kind appends it to the Bundle.

# Usage

	r := notebook.Resolver{FS: os.DirFS(reportDir)}
	res, err := r.Resolve("analysis.ipynb", "fig-voltage")
	if err != nil {
		// The notebook is missing or unreadable.
	}
	for _, t := range res.Bundle.Tables {
		fmt.Println(t)
	}
*/
package notebook
