//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const dumpDir = "dump"

type Frame mg.Namespace

// Runs the unit tests of every package.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Renders a single testbed frame and dumps its graph and schedule.
func (Frame) Dump() error {
	if err := os.RemoveAll(dumpDir); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("run", ".", "-frames", "1", "-dump", dumpDir), withStream())
	return err
}

// Converts every dumped framegraph.dot into an SVG next to it.
func (Frame) Graphviz() error {
	mg.Deps(Frame.Dump)

	graphs, err := filepath.Glob(filepath.Join(dumpDir, "*", "framegraph.dot"))
	if err != nil {
		return err
	}
	if len(graphs) == 0 {
		return fmt.Errorf("no graph found under %s", dumpDir)
	}
	for _, graph := range graphs {
		svg := filepath.Join(filepath.Dir(graph), "framegraph.svg")
		if _, err := executeCmd("dot", withArgs("-Tsvg", graph, "-o", svg)); err != nil {
			return err
		}
	}
	return nil
}

// Runs the engine on a description and re-renders whenever it changes.
func (Frame) Watch(description string) error {
	_, err := executeCmd("go", withArgs("run", ".", "-watch", "-frames", "0", "-dump", dumpDir, description), withStream())
	return err
}
