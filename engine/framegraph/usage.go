package framegraph

// markUsedNodes recomputes every IsUsed flag from the DAG closure.
func (fg *FrameGraph) markUsedNodes(closure []uint32) {
	for i := range fg.ResourceUsages {
		fg.ResourceUsages[i].IsUsed = false
	}
	for i := range fg.Textures {
		fg.Textures[i].IsUsed = false
	}
	for i := range fg.Buffers {
		fg.Buffers[i].IsUsed = false
	}
	for i := range fg.RenderPasses {
		fg.RenderPasses[i].IsUsed = false
	}

	usageCount := uint32(len(fg.ResourceUsages))
	for _, node := range closure {
		if node < usageCount {
			fg.ResourceUsages[node].IsUsed = true
		} else {
			fg.RenderPasses[node-usageCount].IsUsed = true
		}
	}

	// Outputs of a kept pass are only reachable through the pass itself.
	for i := range fg.RenderPasses {
		if !fg.RenderPasses[i].IsUsed {
			continue
		}
		for _, h := range fg.RenderPasses[i].ResourceUsageHandles {
			usage := &fg.ResourceUsages[h]
			if usage.Type&Output != 0 {
				usage.IsUsed = true
			}
		}
	}

	for i := range fg.ResourceUsages {
		usage := &fg.ResourceUsages[i]
		if !usage.IsUsed {
			continue
		}
		if resource, err := fg.GetResource(usage.Resource); err == nil {
			resource.IsUsed = true
		}
	}
}
