package framegraph

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

const unusedNodeStyle = `,fillcolor="#BBBBBB"`

type dotFragments struct {
	resources        bytes.Buffer
	renderPasses     bytes.Buffer
	sideEffectPasses bytes.Buffer
	inputs           bytes.Buffer
	outputs          bytes.Buffer
}

func resourceLabel(fg *FrameGraph, usageHandle ResourceUsageHandle, usage *ResourceUsage) string {
	resource, err := fg.GetResource(usage.Resource)
	if err != nil {
		return fmt.Sprintf("invalid [%d]", usageHandle)
	}
	if props, ok := resource.TextureProperties(); ok {
		return fmt.Sprintf(`%s (%d)\n%dx%d\n%s\n%d Cube=%t [%d]`, resource.DebugName, usage.Resource.Index(),
			props.Width, props.Height, metadata.FormatString(props.Format), props.SampleCount, props.IsCubemap, usageHandle)
	}
	props, _ := resource.BufferProperties()
	return fmt.Sprintf(`%s (%d)\n%d x %dB [%d]`, resource.DebugName, usage.Resource.Index(),
		props.ElementCount, props.ElementSizeBytes, usageHandle)
}

func collectFragments(fg *FrameGraph) *dotFragments {
	f := &dotFragments{}

	// Readers are drawn as edges from the usage they read, not as nodes.
	for i := range fg.ResourceUsages {
		usage := &fg.ResourceUsages[i]
		if usage.Type == Input {
			continue
		}
		fmt.Fprintf(&f.resources, "        res%d [label=\"%s\"", i, resourceLabel(fg, ResourceUsageHandle(i), usage))
		if !usage.IsUsed {
			f.resources.WriteString(unusedNodeStyle)
		}
		f.resources.WriteString("]\n")
	}

	for j := range fg.RenderPasses {
		pass := &fg.RenderPasses[j]
		out := &f.renderPasses
		if pass.HasSideEffects {
			out = &f.sideEffectPasses
		}
		fmt.Fprintf(out, "        pass%d [label=\"%s [%d]\"", j, pass.DebugName, j)
		if !pass.IsUsed {
			out.WriteString(unusedNodeStyle)
		}
		out.WriteString("]\n")

		for _, h := range pass.ResourceUsageHandles {
			if !validIndex(h, len(fg.ResourceUsages)) {
				continue
			}
			usage := &fg.ResourceUsages[h]
			if usage.Type&Input != 0 && usage.Parent != InvalidResourceUsageHandle {
				fmt.Fprintf(&f.inputs, "        res%d -> pass%d\n", usage.Parent, j)
			}
			if usage.Type&Output != 0 {
				fmt.Fprintf(&f.outputs, "        pass%d -> res%d\n", j, h)
			}
		}
	}
	return f
}

// DumpFrameGraph writes the graph as DOT fragments into dir: resource.txt,
// renderpass.txt, renderpass-sideeffect.txt, input.txt, output.txt, plus the
// assembled framegraph.dot.
func DumpFrameGraph(fg *FrameGraph, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating dump directory %s", dir)
	}
	f := collectFragments(fg)

	var full bytes.Buffer
	if err := writeDOT(&full, fg, f); err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
	}{
		{"resource.txt", f.resources.Bytes()},
		{"renderpass.txt", f.renderPasses.Bytes()},
		{"renderpass-sideeffect.txt", f.sideEffectPasses.Bytes()},
		{"input.txt", f.inputs.Bytes()},
		{"output.txt", f.outputs.Bytes()},
		{"framegraph.dot", full.Bytes()},
	}
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := os.WriteFile(path, file.data, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
	}
	return nil
}

// WriteDOT writes a complete graphviz digraph of fg.
func WriteDOT(w io.Writer, fg *FrameGraph) error {
	return writeDOT(w, fg, collectFragments(fg))
}

func writeDOT(w io.Writer, fg *FrameGraph, f *dotFragments) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "digraph \"framegraph-%s\" {\n", fg.ID)
	b.WriteString("    node [style=filled]\n")
	b.WriteString("    subgraph resources {\n        node [shape=box,fillcolor=\"#EEEEFF\"]\n")
	b.Write(f.resources.Bytes())
	b.WriteString("    }\n")
	b.WriteString("    subgraph renderpasses {\n        node [shape=ellipse,fillcolor=\"#FFEEDD\"]\n")
	b.Write(f.renderPasses.Bytes())
	b.WriteString("    }\n")
	b.WriteString("    subgraph sideeffects {\n        node [shape=doublecircle,fillcolor=\"#FFCCCC\"]\n")
	b.Write(f.sideEffectPasses.Bytes())
	b.WriteString("    }\n")
	b.Write(f.inputs.Bytes())
	b.Write(f.outputs.Bytes())
	b.WriteString("}\n")

	_, err := w.Write(b.Bytes())
	return errors.Wrap(err, "writing dot graph")
}

// WriteSchedule prints the pass timeline with the barriers around each pass.
func WriteSchedule(w io.Writer, fg *FrameGraph, schedule *FrameGraphSchedule) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "framegraph %s: %d passes, %d barriers, %d split\n",
		fg.ID, len(schedule.Queue0), len(schedule.Barriers), schedule.SplitBarrierCount())

	writeEvents := func(events []BarrierEvent) {
		for _, e := range events {
			barrier := schedule.Barriers[e.BarrierHandle]
			name := "?"
			if r, err := fg.GetResource(barrier.Resource); err == nil {
				name = r.DebugName
			}
			fmt.Fprintf(&b, "    %-15s #%d %s: %s/%s/%s -> %s/%s/%s\n", e.Type, e.BarrierHandle, name,
				metadata.StageMaskString(barrier.Src.Access.StageMask),
				metadata.AccessMaskString(barrier.Src.Access.AccessMask),
				metadata.ImageLayoutString(barrier.Src.Access.ImageLayout),
				metadata.StageMaskString(barrier.Dst.Access.StageMask),
				metadata.AccessMaskString(barrier.Dst.Access.AccessMask),
				metadata.ImageLayoutString(barrier.Dst.Access.ImageLayout))
		}
	}

	for _, h := range schedule.Queue0 {
		writeEvents(GetBarriersToExecute(schedule, h, true))
		fmt.Fprintf(&b, "  [%d] %s\n", h, fg.RenderPasses[h].DebugName)
		writeEvents(GetBarriersToExecute(schedule, h, false))
	}

	_, err := w.Write(b.Bytes())
	return errors.Wrap(err, "writing schedule")
}
