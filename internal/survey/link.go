package survey

// Bundle is everything loaded for one survey, cross-linked by Link.
type Bundle struct {
	Survey    Survey     `json:"survey"`
	Groups    []*Group   `json:"groups"`
	Sources   []*Source  `json:"sources"`
	Layouts   []Layout   `json:"layouts"`
	Assets    []Asset    `json:"assets"`
	Landmarks []Landmark `json:"landmarks"`
	View      View       `json:"view"`
	// Orphans lists layer IDs whose source is not part of the survey.
	Orphans []int64 `json:"orphans,omitempty"`
}

// Link copies the raw records and wires layer.Topography, layer.Group and
// source.Layers. Inputs are never mutated, so cached record slices can be
// linked any number of times.
//
// A layer without its own visibility is seeded from its group's visibility;
// from then on the layer's flag is tracked on its own.
func Link(groups []Group, sources []Source, layers []Layer, topographies []Topography) ([]*Group, []*Source, []int64) {
	topoByID := make(map[int64]*Topography, len(topographies))
	for i := range topographies {
		t := topographies[i]
		topoByID[t.ID] = &t
	}

	linkedGroups := make([]*Group, 0, len(groups))
	groupByID := make(map[int64]*Group, len(groups))
	for i := range groups {
		g := groups[i]
		linkedGroups = append(linkedGroups, &g)
		groupByID[g.ID] = &g
	}

	linkedSources := make([]*Source, 0, len(sources))
	sourceByID := make(map[int64]*Source, len(sources))
	for i := range sources {
		s := sources[i]
		s.Layers = nil
		linkedSources = append(linkedSources, &s)
		sourceByID[s.ID] = &s
	}

	var orphans []int64
	for i := range layers {
		l := layers[i]
		if l.Visibility != nil {
			l.Visibility = NewFlag(bool(*l.Visibility))
		}
		l.Topography = topoByID[l.TopoID]
		l.Group = groupByID[l.GroupID]
		if l.Visibility == nil {
			seed := false
			if l.Group != nil {
				seed = bool(l.Group.Visibility)
			}
			l.Visibility = NewFlag(seed)
		}

		src, ok := sourceByID[l.SourceID]
		if !ok {
			orphans = append(orphans, l.ID)
			continue
		}
		src.Layers = append(src.Layers, &l)
	}

	return linkedGroups, linkedSources, orphans
}

// SourceIDs returns the IDs of sources in order.
func SourceIDs(sources []Source) []int64 {
	ids := make([]int64, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	return ids
}
