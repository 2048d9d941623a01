package obj

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// constructVertices expands each object's face index list into a flat,
// duplicated-per-corner vertex array with a sequential index buffer.
// Deduplication is a separate pass. Omitted face components gather the
// zero value.
func constructVertices(state *loaderState, lodLevel int) {
	meshes := state.meshes[lodLevel]

	for a := range meshes {
		tm := &state.temp[a]
		meshes[a].Vertices = make([]Vertex, 0, len(tm.faces))
		meshes[a].Indices = make([]uint32, 0, len(tm.faces))

		for i, fi := range tm.faces {
			var v Vertex
			if fi.pos >= 0 && fi.pos < len(tm.positions) {
				v.Position = tm.positions[fi.pos]
			}
			if fi.norm >= 0 && fi.norm < len(tm.normals) {
				v.Normal = tm.normals[fi.norm]
			}
			if fi.tex >= 0 && fi.tex < len(tm.texCoords) {
				v.TexCoord = tm.texCoords[fi.tex]
			}
			meshes[a].Vertices = append(meshes[a].Vertices, v)
			meshes[a].Indices = append(meshes[a].Indices, uint32(i))
		}
	}
}

// tangentCoords computes the flat tangent and bitangent of one triangle
// from its UV-mapped edge vectors. ok is false when the UV determinant is
// too close to zero to invert.
func tangentCoords(v0, v1, v2 Vertex) (tangent, bitangent mgl32.Vec3, ok bool) {
	e1 := v1.Position.Sub(v0.Position)
	e2 := v2.Position.Sub(v0.Position)
	d1 := v1.TexCoord.Sub(v0.TexCoord)
	d2 := v2.TexCoord.Sub(v0.TexCoord)

	det := d1.X()*d2.Y() - d2.X()*d1.Y()
	if math32.Abs(det) < 1e-10 || math32.IsNaN(det) {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	f := 1 / det

	tangent = e1.Mul(d2.Y()).Sub(e2.Mul(d1.Y())).Mul(f)
	bitangent = e2.Mul(d1.X()).Sub(e1.Mul(d2.X())).Mul(f)
	return tangent, bitangent, true
}

// calcTangentSpace computes per-vertex tangents for normal mapping. Face
// contributions are accumulated area-weighted, orthogonalized against the
// vertex normal, and the handedness sign is stored in Tangent's W
// component. Degenerate triangles contribute nothing.
func calcTangentSpace(meshes []Mesh) {
	for m := range meshes {
		mesh := &meshes[m]
		bitangents := make([]mgl32.Vec3, len(mesh.Vertices))

		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			i0, i1, i2 := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
			v0 := &mesh.Vertices[i0]
			v1 := &mesh.Vertices[i1]
			v2 := &mesh.Vertices[i2]

			tangent, bitangent, ok := tangentCoords(*v0, *v1, *v2)
			if !ok {
				continue
			}

			// Area weighting biases against thin slivers.
			e1 := v1.Position.Sub(v0.Position)
			e2 := v2.Position.Sub(v0.Position)
			area := e1.Cross(e2).Len() * 0.5

			t4 := tangent.Mul(area).Vec4(0)
			v0.Tangent = v0.Tangent.Add(t4)
			v1.Tangent = v1.Tangent.Add(t4)
			v2.Tangent = v2.Tangent.Add(t4)

			b := bitangent.Mul(area)
			bitangents[i0] = bitangents[i0].Add(b)
			bitangents[i1] = bitangents[i1].Add(b)
			bitangents[i2] = bitangents[i2].Add(b)
		}

		for i := range mesh.Vertices {
			v := &mesh.Vertices[i]
			n := v.Normal
			acc := v.Tangent.Vec3()

			t := mgl32.Vec3{1, 0, 0}
			if acc.Len() > 1e-10 {
				// Gram-Schmidt orthogonalize against the normal.
				ortho := acc.Sub(n.Mul(n.Dot(acc)))
				if ortho.Len() > 1e-10 {
					t = ortho.Normalize()
				}
			}

			// Handedness from the unnormalized bitangent.
			handedness := float32(1)
			if n.Cross(t).Dot(bitangents[i]) < 0 {
				handedness = -1
			}
			v.Tangent = t.Vec4(handedness)
		}
	}
}

// joinIdenticalVertices deduplicates vertices within each mesh using the
// quantized vertex key, keeping the first-seen copy of every vertex and
// remapping the index buffer accordingly. Running it twice is a no-op.
func joinIdenticalVertices(meshes []Mesh) {
	for m := range meshes {
		mesh := &meshes[m]
		if len(mesh.Vertices) == 0 {
			continue
		}

		unique := make(map[vertexKey]uint32, len(mesh.Vertices))
		newVertices := make([]Vertex, 0, len(mesh.Vertices))
		newIndices := make([]uint32, 0, len(mesh.Indices))

		for _, idx := range mesh.Indices {
			v := mesh.Vertices[idx]
			k := v.key()

			if existing, ok := unique[k]; ok {
				newIndices = append(newIndices, existing)
				continue
			}

			next := uint32(len(newVertices))
			unique[k] = next
			newVertices = append(newVertices, v)
			newIndices = append(newIndices, next)
		}

		mesh.Vertices = newVertices
		mesh.Indices = newIndices
	}
}

// combineMeshes concatenates every mesh of each LOD level into a single
// mesh, offsetting indices by the running vertex count. Name, material and
// ordinal metadata are taken from the first constituent.
func combineMeshes(state *loaderState) {
	levels := make([]int, 0, len(state.meshes))
	for level := range state.meshes {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	state.combined = make([]Mesh, 0, len(levels))

	for _, level := range levels {
		lod := state.meshes[level]
		if len(lod) == 0 {
			continue
		}

		totalVerts, totalIndices := 0, 0
		for i := range lod {
			totalVerts += len(lod[i].Vertices)
			totalIndices += len(lod[i].Indices)
		}

		combined := Mesh{
			Name:       lod[0].Name,
			Material:   lod[0].Material,
			MeshNumber: lod[0].MeshNumber,
			LODLevel:   lod[0].LODLevel,
			Vertices:   make([]Vertex, 0, totalVerts),
			Indices:    make([]uint32, 0, totalIndices),
		}

		baseVertex := uint32(0)
		for i := range lod {
			for _, idx := range lod[i].Indices {
				combined.Indices = append(combined.Indices, idx+baseVertex)
			}
			combined.Vertices = append(combined.Vertices, lod[i].Vertices...)
			baseVertex += uint32(len(lod[i].Vertices))
		}

		state.combined = append(state.combined, combined)
	}
}
