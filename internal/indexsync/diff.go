package indexsync

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/dropsearch/internal/filekey"
)

// Diff is what a sync pass must change in the index.
// Keys present on both sides are left alone: a key's content never changes.
type Diff struct {
	ToAdd    mapset.Set[filekey.Key]
	ToRemove mapset.Set[filekey.Key]
}

// ComputeDiff returns new − old as ToAdd and old − new as ToRemove.
// Both sets must be thread-safe sets as built by mapset.NewSet.
func ComputeDiff(old, new mapset.Set[filekey.Key]) *Diff {
	if old == nil {
		old = mapset.NewSet[filekey.Key]()
	}
	if new == nil {
		new = mapset.NewSet[filekey.Key]()
	}
	return &Diff{
		ToAdd:    new.Difference(old),
		ToRemove: old.Difference(new),
	}
}

func (d *Diff) Empty() bool {
	return d.ToAdd.Cardinality() == 0 && d.ToRemove.Cardinality() == 0
}
