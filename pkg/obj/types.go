// Package obj loads Wavefront OBJ/MTL models and their LOD variants into
// an in-memory mesh representation.
package obj

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon for per-component vertex comparison.
const vertexEpsilon = 1e-6

// Scale used to quantize vertex components to integers for hashing.
const quantizeScale = 1e5

// Vertex is one mesh vertex. Tangent is zero until tangent space has been
// computed; afterwards its W component holds the handedness sign (-1 or +1).
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
	Tangent  mgl32.Vec4
}

// Equal reports approximate equality of every component within 1e-6.
func (v Vertex) Equal(other Vertex) bool {
	for i := 0; i < 3; i++ {
		if math32.Abs(v.Position[i]-other.Position[i]) >= vertexEpsilon {
			return false
		}
		if math32.Abs(v.Normal[i]-other.Normal[i]) >= vertexEpsilon {
			return false
		}
	}
	for i := 0; i < 2; i++ {
		if math32.Abs(v.TexCoord[i]-other.TexCoord[i]) >= vertexEpsilon {
			return false
		}
	}
	for i := 0; i < 4; i++ {
		if math32.Abs(v.Tangent[i]-other.Tangent[i]) >= vertexEpsilon {
			return false
		}
	}
	return true
}

func quantize(v float32) int32 {
	return int32(math32.Round(v * quantizeScale))
}

// vertexKey is the quantized form of a Vertex, usable as a map key for
// deduplication. Components quantized to the same integer compare equal.
type vertexKey [12]int32

func (v Vertex) key() vertexKey {
	return vertexKey{
		quantize(v.Position[0]), quantize(v.Position[1]), quantize(v.Position[2]),
		quantize(v.Normal[0]), quantize(v.Normal[1]), quantize(v.Normal[2]),
		quantize(v.TexCoord[0]), quantize(v.TexCoord[1]),
		quantize(v.Tangent[0]), quantize(v.Tangent[1]), quantize(v.Tangent[2]),
		quantize(v.Tangent[3]),
	}
}

// Mesh is one parsed object. MeshNumber is the parse-order ordinal within
// its file, starting at 0.
type Mesh struct {
	Name       string
	Material   string
	LODLevel   int
	MeshNumber int

	Vertices []Vertex
	Indices  []uint32
}

// Material holds the texture names referenced by an MTL material. Each
// slot may carry multiple maps. IsTiled is set when the UV range of the
// geometry using this material exceeds [0,1].
type Material struct {
	Name         string
	DiffuseName  []string
	SpecularName []string
	NormalName   []string
	HeightName   []string
	IsTiled      bool
}

// File describes one discovered OBJ/MTL pair. LODLevel 0 is the base file.
type File struct {
	ObjPath  string
	MtlPath  string
	LODLevel int
}

// Flag selects optional pipeline stages. Flags combine with bitwise OR.
type Flag uint8

const (
	// Triangulate expands face index triples into flat per-corner vertices.
	Triangulate Flag = 1 << iota
	// CalcTangents computes per-vertex tangent space.
	CalcTangents
	// JoinIdentical deduplicates vertices that are equal within tolerance.
	JoinIdentical
	// CombineMeshes concatenates all meshes of a LOD into a single mesh.
	CombineMeshes
	// LODs scans the source directory for _lod<N> sibling files.
	LODs
)

// Has reports whether every bit of other is set in f.
func (f Flag) Has(other Flag) bool { return f&other == other }

// faceIndex is one corner of a face: indices into the temp position,
// texcoord and normal lists, already rebased to the current object.
// A value of -1 means the component was omitted in the file.
type faceIndex struct {
	pos  int
	tex  int
	norm int
}

// tempMesh holds the raw per-object data of one OBJ object between the
// parse and vertex-construction stages.
type tempMesh struct {
	positions []mgl32.Vec3
	texCoords []mgl32.Vec2
	normals   []mgl32.Vec3
	faces     []faceIndex
}

// loaderState carries everything one LoadFile call accumulates. It is
// owned by the single worker executing that call and never shared.
type loaderState struct {
	path        string
	mtlFileName string
	flags       Flag

	files     []File
	meshes    map[int][]Mesh
	materials map[int][]Material
	temp      []tempMesh
	combined  []Mesh
}

func newLoaderState(path string, flags Flag) *loaderState {
	return &loaderState{
		path:      path,
		flags:     flags,
		meshes:    make(map[int][]Mesh),
		materials: make(map[int][]Material),
	}
}

// Model is the final output of a load. Meshes and Materials are keyed by
// LOD level; Combined is only populated when CombineMeshes was requested.
type Model struct {
	Meshes    map[int][]Mesh
	Materials map[int][]Material
	Combined  []Mesh
	Path      string
}

// LODLevels returns the number of LOD levels in the model.
func (m *Model) LODLevels() int { return len(m.Meshes) }

// TotalVertexCount returns the vertex count across all LODs and meshes.
func (m *Model) TotalVertexCount() int {
	total := 0
	for _, meshes := range m.Meshes {
		for _, mesh := range meshes {
			total += len(mesh.Vertices)
		}
	}
	return total
}

// TotalTriangleCount returns the triangle count across all LODs and meshes.
func (m *Model) TotalTriangleCount() int {
	total := 0
	for _, meshes := range m.Meshes {
		for _, mesh := range meshes {
			total += len(mesh.Indices) / 3
		}
	}
	return total
}

// MeshByName returns the first mesh with the given name at LOD 0, or nil.
func (m *Model) MeshByName(name string) *Mesh {
	for i := range m.Meshes[0] {
		if m.Meshes[0][i].Name == name {
			return &m.Meshes[0][i]
		}
	}
	return nil
}
