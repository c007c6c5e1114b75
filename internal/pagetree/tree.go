// Package pagetree reconstructs the navigational structure of a version's
// pages: parent/child nesting from path structure and next/previous
// ordering from the manifest's declared page sequence.
//
// Pages are held in an arena indexed by id; relations are computed once per
// version and the presentation tree is derived from the arena rather than
// by walking storage.
package pagetree

import (
	"path"
	"sort"

	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/models"
)

// Tree is the computed hierarchy for one version.
type Tree struct {
	// Head is the topmost node, rooted at the manifest's root document.
	// Nil when the version has no pages.
	Head *models.TreeNode
	// Pages is the arena, indexed by page id.
	Pages map[string]*models.Page
}

// Build computes parent and next pointers for pages (mutating their
// ParentID/NextID fields), validates the result, and assembles the
// presentation tree. sequence is the declared reading order; headPath names
// the root document.
//
// The relations feed UI pagination directly, so any cycle or dangling
// reference is fatal (InvalidPageHierarchy) rather than repaired.
func Build(pages []*models.Page, sequence []string, headPath string) (*Tree, error) {
	byPath := make(map[string]*models.Page, len(pages))
	byID := make(map[string]*models.Page, len(pages))
	for _, p := range pages {
		byPath[p.RelativePath] = p
		byID[p.ID] = p
	}

	assignParents(pages, byPath)
	if err := assignNext(byPath, sequence); err != nil {
		return nil, err
	}
	if err := validate(pages, byID); err != nil {
		return nil, err
	}

	head := byPath[headPath]
	if head == nil {
		// Fall back to the first top-level page so a tree always has a
		// root when any pages exist.
		for _, p := range sortedByPath(pages) {
			if p.ParentID == nil {
				head = p
				break
			}
		}
	}

	return &Tree{Head: buildNodes(pages, byID, head), Pages: byID}, nil
}

// assignParents derives each page's parent from its path: the immediate
// structural ancestor, preferring the directory page over its index page.
// Top-level pages stay parentless.
func assignParents(pages []*models.Page, byPath map[string]*models.Page) {
	for _, p := range pages {
		dir := path.Dir(p.RelativePath)
		if dir == "." || dir == p.RelativePath {
			p.ParentID = nil
			continue
		}
		parent := byPath[dir]
		if parent == nil {
			parent = byPath[dir+"/index"]
		}
		if parent != nil && parent.ID != p.ID {
			id := parent.ID
			p.ParentID = &id
		} else {
			p.ParentID = nil
		}
	}
}

// assignNext wires the declared sequence into denormalized next pointers.
// Sequence entries naming no page are skipped; a page listed twice would
// break the one-to-one previous relation and is rejected.
func assignNext(byPath map[string]*models.Page, sequence []string) error {
	seen := make(map[string]bool, len(sequence))
	var prev *models.Page
	for _, rel := range sequence {
		p := byPath[rel]
		if p == nil {
			continue
		}
		if seen[rel] {
			return derrors.New(derrors.CategoryHierarchy, derrors.CodeInvalidHierarchy,
				"page listed twice in manifest sequence").
				WithContext("relative_path", rel)
		}
		seen[rel] = true
		if prev != nil {
			id := p.ID
			prev.NextID = &id
		}
		prev = p
	}
	return nil
}

// validate checks parent acyclicity and next-pointer integrity. Following
// parents from any page must reach a parentless page within len(pages)
// steps.
func validate(pages []*models.Page, byID map[string]*models.Page) error {
	limit := len(pages)
	for _, p := range pages {
		cur := p
		for steps := 0; cur.ParentID != nil; steps++ {
			if steps >= limit {
				return derrors.New(derrors.CategoryHierarchy, derrors.CodeInvalidHierarchy,
					"parent chain does not terminate").
					WithContext("relative_path", p.RelativePath)
			}
			next, ok := byID[*cur.ParentID]
			if !ok {
				return derrors.New(derrors.CategoryHierarchy, derrors.CodeInvalidHierarchy,
					"page references a parent outside the version").
					WithContext("relative_path", cur.RelativePath)
			}
			cur = next
		}
	}

	prevOf := make(map[string]string, len(pages))
	for _, p := range pages {
		if p.NextID == nil {
			continue
		}
		if _, ok := byID[*p.NextID]; !ok {
			return derrors.New(derrors.CategoryHierarchy, derrors.CodeInvalidHierarchy,
				"page references a next page outside the version").
				WithContext("relative_path", p.RelativePath)
		}
		if other, dup := prevOf[*p.NextID]; dup {
			return derrors.New(derrors.CategoryHierarchy, derrors.CodeInvalidHierarchy,
				"two pages share the same next page").
				WithContext("relative_path", p.RelativePath).
				WithContext("conflicts_with", other)
		}
		prevOf[*p.NextID] = p.RelativePath
	}
	return nil
}

// buildNodes assembles the presentation tree. Children are attached to
// their parent's node; parentless pages other than the head become children
// of the head, mirroring how documentation sets treat stray top-level pages.
func buildNodes(pages []*models.Page, byID map[string]*models.Page, head *models.Page) *models.TreeNode {
	if head == nil {
		return nil
	}

	nodes := make(map[string]*models.TreeNode, len(pages))
	for _, p := range pages {
		nodes[p.ID] = &models.TreeNode{Page: p}
	}

	for _, p := range sortedByPath(pages) {
		if p.ID == head.ID {
			continue
		}
		switch {
		case p.ParentID != nil:
			nodes[*p.ParentID].Children = append(nodes[*p.ParentID].Children, nodes[p.ID])
		default:
			nodes[head.ID].Children = append(nodes[head.ID].Children, nodes[p.ID])
		}
	}
	return nodes[head.ID]
}

func sortedByPath(pages []*models.Page) []*models.Page {
	out := make([]*models.Page, len(pages))
	copy(out, pages)
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}
