// Package manifest locates and parses the global context member of a
// documentation archive. The manifest identifies the project and release the
// archive belongs to; without it an import cannot proceed.
package manifest

import (
	"encoding/json"

	"git.home.luguber.info/inful/dochost/internal/archive"
	"git.home.luguber.info/inful/dochost/internal/derrors"
)

// Filename is the conventional name of the global context member, written
// by the JSON builder alongside the page documents.
const Filename = "globalcontext.json"

// Manifest is the parsed global context of one documentation archive.
type Manifest struct {
	// Project is the raw project identifier; the importer slugifies it to
	// find the owning Project record.
	Project string
	// Release is the version label this archive was built for.
	Release string
	// SphinxVersion is the generator version, informational only.
	SphinxVersion string
	// RootDoc is the relative path of the topmost page of the set.
	RootDoc string
	// GlobalTOC is the rendered global table of contents, if the builder
	// emitted one.
	GlobalTOC string
	// Pages is the declared page sequence, in reading order. It governs
	// next/previous pagination; pages not listed get no pointers.
	Pages []string
}

type rawManifest struct {
	Project       string   `json:"project"`
	Release       string   `json:"release"`
	SphinxVersion string   `json:"sphinx_version"`
	RootDoc       string   `json:"root_doc"`
	MasterDoc     string   `json:"master_doc"`
	GlobalTOC     string   `json:"globaltoc"`
	Pages         []string `json:"pages"`
}

// Extract finds the manifest member in the archive and parses it.
func Extract(r *archive.Reader) (*Manifest, error) {
	if !r.Has(Filename) {
		return nil, derrors.New(derrors.CategoryManifest, derrors.CodeMissingManifest,
			"archive has no "+Filename+" member")
	}
	data, err := r.Member(Filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes manifest JSON and validates required fields.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryManifest, derrors.CodeMalformedManifest,
			"manifest is not valid JSON")
	}
	if raw.Project == "" {
		return nil, derrors.New(derrors.CategoryManifest, derrors.CodeMalformedManifest,
			"manifest is missing the project field")
	}
	if raw.Release == "" {
		return nil, derrors.New(derrors.CategoryManifest, derrors.CodeMalformedManifest,
			"manifest is missing the release field").
			WithContext("project", raw.Project)
	}

	m := &Manifest{
		Project:       raw.Project,
		Release:       raw.Release,
		SphinxVersion: raw.SphinxVersion,
		RootDoc:       raw.RootDoc,
		GlobalTOC:     raw.GlobalTOC,
		Pages:         raw.Pages,
	}
	// Older generators call the root document master_doc.
	if m.RootDoc == "" {
		m.RootDoc = raw.MasterDoc
	}
	return m, nil
}
