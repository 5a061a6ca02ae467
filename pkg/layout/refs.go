package layout

import (
	"slices"

	"github.com/matzehuels/gitway/pkg/snapshot"
)

// AttachRefs appends each hash's refs to every node drawn for that hash and
// marks those nodes important. Refs keep the order of their source slice.
// It returns the number of refs whose hash matched no node.
func AttachRefs(nodes []*Node, refs map[string][]snapshot.Ref) int {
	if len(refs) == 0 {
		return 0
	}
	byHash := make(map[string][]*Node, len(nodes))
	for _, n := range nodes {
		byHash[n.Hash] = append(byHash[n.Hash], n)
	}

	dropped := 0
	for hash, rs := range refs {
		if len(rs) == 0 {
			continue
		}
		targets, ok := byHash[hash]
		if !ok {
			dropped += len(rs)
			continue
		}
		for _, n := range targets {
			n.Refs = append(slices.Clip(n.Refs), rs...)
			n.Important = true
		}
	}
	return dropped
}
