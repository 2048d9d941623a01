package obj

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// discoverFiles fills state.files with the base OBJ/MTL pair and, when LOD
// discovery is requested, every "<stem>_lod<N>" sibling in the same
// directory. Entries with a malformed numeric suffix are skipped; a
// directory scan failure leaves just the base file.
func discoverFiles(state *loaderState) {
	dir := filepath.Dir(state.path)
	stem := strings.TrimSuffix(filepath.Base(state.path), filepath.Ext(state.path))

	state.files = []File{{
		ObjPath:  state.path,
		MtlPath:  filepath.Join(dir, stem+".mtl"),
		LODLevel: 0,
	}}

	if !state.flags.Has(LODs) {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	prefix := stem + "_lod"
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".obj" && ext != ".mtl" {
			continue
		}

		base := strings.TrimSuffix(name, ext)
		if !strings.HasPrefix(base, prefix) {
			continue
		}

		level, err := strconv.Atoi(base[len(prefix):])
		if err != nil || level < 0 {
			continue
		}

		for len(state.files) <= level {
			state.files = append(state.files, File{LODLevel: len(state.files)})
		}

		full := filepath.Join(dir, name)
		if ext == ".obj" {
			state.files[level].ObjPath = full
		} else {
			state.files[level].MtlPath = full
		}
	}

	// Drop gaps in the numbering; a level without an OBJ cannot load.
	kept := state.files[:0]
	for _, f := range state.files {
		if f.ObjPath != "" {
			kept = append(kept, f)
		}
	}
	state.files = kept
}
