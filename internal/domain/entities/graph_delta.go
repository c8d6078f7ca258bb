package entities

// DifferenceGraph is the part of a foreign node/link set that is newer than,
// or absent from, the local graph.
type DifferenceGraph struct {
	Entities []*Entity `json:"entities"`
	Links    []*Link   `json:"links"`
}

// Empty reports whether the difference graph carries nothing.
func (d *DifferenceGraph) Empty() bool {
	return d == nil || (len(d.Entities) == 0 && len(d.Links) == 0)
}

// GraphDump is the whole graph deconstructed into plain records, the unit of
// save and load.
type GraphDump struct {
	Entities []*Entity
	Links    []*Link
}
