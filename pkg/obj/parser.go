package obj

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Parse errors.
var (
	ErrMalformedFloat  = errors.New("obj: malformed float field")
	ErrMalformedIndex  = errors.New("obj: malformed face index")
	ErrUnsupportedFace = errors.New("obj: unsupported face size")
)

// nextLine returns the line starting at offset i, without its terminator,
// and the offset of the following line. Both \n and \r\n are accepted.
func nextLine(data []byte, i int) (line []byte, next int) {
	start := i
	for i < len(data) && data[i] != '\n' && data[i] != '\r' {
		i++
	}
	line = data[start:i]
	for i < len(data) && (data[i] == '\n' || data[i] == '\r') {
		i++
	}
	return line, i
}

// parseFloat parses one whitespace-delimited float field. Malformed input
// is an error, never silently zero.
func parseFloat(field []byte) (float32, error) {
	v, err := strconv.ParseFloat(string(field), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedFloat, field)
	}
	return float32(v), nil
}

// objCounts holds the first-pass per-object counts used to pre-size the
// second pass exactly.
type objCounts struct {
	verts, tex, norms, faces int
}

// countObj is the first parse pass: it counts objects and their vertex,
// texcoord, normal and face lines so every container can be allocated to
// its final size before any data is stored.
func countObj(buf []byte) []objCounts {
	var counts []objCounts

	for i := 0; i < len(buf); {
		var line []byte
		line, i = nextLine(buf, i)

		if len(line) == 0 || line[0] == '#' {
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("o ")):
			counts = append(counts, objCounts{})
		case len(counts) == 0:
			// data before the first object declaration
		case bytes.HasPrefix(line, []byte("v ")):
			counts[len(counts)-1].verts++
		case bytes.HasPrefix(line, []byte("vt")):
			counts[len(counts)-1].tex++
		case bytes.HasPrefix(line, []byte("vn")):
			counts[len(counts)-1].norms++
		case bytes.HasPrefix(line, []byte("f ")):
			counts[len(counts)-1].faces++
		}
	}
	return counts
}

// parseFaceCorner parses one "p/t/n" face corner. Any of the three parts
// may be omitted; omitted parts return 0 (OBJ indices are 1-based, so 0
// never collides with a real index).
func parseFaceCorner(field []byte) (p, t, n int, err error) {
	parts := bytes.SplitN(field, []byte("/"), 3)

	parse := func(b []byte) (int, error) {
		if len(b) == 0 {
			return 0, nil
		}
		v, err := strconv.Atoi(string(b))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedIndex, field)
		}
		return v, nil
	}

	if p, err = parse(parts[0]); err != nil {
		return 0, 0, 0, err
	}
	if len(parts) > 1 {
		if t, err = parse(parts[1]); err != nil {
			return 0, 0, 0, err
		}
	}
	if len(parts) > 2 {
		if n, err = parse(parts[2]); err != nil {
			return 0, 0, 0, err
		}
	}
	return p, t, n, nil
}

// rebase converts a 1-based file index to a 0-based object-local index.
// Omitted components (raw == 0) become -1.
func rebase(raw, offset int) int {
	if raw == 0 {
		return -1
	}
	return raw - 1 - offset
}

// parseObj scans buf in two passes and appends one Mesh plus one tempMesh
// per "o" object to the state. Face indices are rebased to be local to
// their object; quad faces are split along the 0-2 diagonal.
func parseObj(state *loaderState, buf []byte, lodLevel int) error {
	counts := countObj(buf)

	meshes := state.meshes[lodLevel]
	if cap(state.temp) < len(counts) {
		state.temp = make([]tempMesh, 0, len(counts))
	}

	meshIdx := -1

	// Running 1-based maximums, carried into the offset at each new object.
	var maxPos, maxTex, maxNorm int
	var offPos, offTex, offNorm int

	// UV extent since the last usemtl, for tiling detection.
	uvMin := mgl32.Vec2{math32.MaxFloat32, math32.MaxFloat32}
	uvMax := mgl32.Vec2{-math32.MaxFloat32, -math32.MaxFloat32}
	mtlCount := 0

	for i := 0; i < len(buf); {
		var line []byte
		line, i = nextLine(buf, i)

		if len(line) == 0 || line[0] == '#' {
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("o ")):
			meshIdx++
			offPos, offTex, offNorm = maxPos, maxTex, maxNorm

			tm := tempMesh{}
			if meshIdx < len(counts) {
				c := counts[meshIdx]
				tm.positions = make([]mgl32.Vec3, 0, c.verts)
				tm.texCoords = make([]mgl32.Vec2, 0, c.tex)
				tm.normals = make([]mgl32.Vec3, 0, c.norms)
				// Worst case two triangles per face.
				tm.faces = make([]faceIndex, 0, c.faces*6)
			}
			state.temp = append(state.temp, tm)

			meshes = append(meshes, Mesh{
				Name:       string(bytes.TrimSpace(line[2:])),
				MeshNumber: meshIdx,
				LODLevel:   lodLevel,
			})

		case bytes.HasPrefix(line, []byte("mtllib")):
			state.mtlFileName = string(bytes.TrimSpace(line[6:]))

		case meshIdx < 0:
			// data before the first object declaration

		case bytes.HasPrefix(line, []byte("v ")):
			v, err := parseVec3(line[2:])
			if err != nil {
				return err
			}
			state.temp[meshIdx].positions = append(state.temp[meshIdx].positions, v)

		case bytes.HasPrefix(line, []byte("vt")):
			fields := bytes.Fields(line[2:])
			if len(fields) < 2 {
				return fmt.Errorf("%w: %q", ErrMalformedFloat, line)
			}
			u, err := parseFloat(fields[0])
			if err != nil {
				return err
			}
			v, err := parseFloat(fields[1])
			if err != nil {
				return err
			}
			// Flip V to match the rendering convention.
			tc := mgl32.Vec2{u, 1 - v}
			state.temp[meshIdx].texCoords = append(state.temp[meshIdx].texCoords, tc)

			uvMin = mgl32.Vec2{min(uvMin[0], tc[0]), min(uvMin[1], tc[1])}
			uvMax = mgl32.Vec2{max(uvMax[0], tc[0]), max(uvMax[1], tc[1])}

		case bytes.HasPrefix(line, []byte("vn")):
			v, err := parseVec3(line[2:])
			if err != nil {
				return err
			}
			state.temp[meshIdx].normals = append(state.temp[meshIdx].normals, v)

		case bytes.HasPrefix(line, []byte("usemtl")):
			meshes[meshIdx].Material = string(bytes.TrimSpace(line[6:]))

			// Materials were parsed before the geometry; stamp tiling onto
			// the material in definition order.
			tiled := uvMax[0]-uvMin[0] > 1 || uvMax[1]-uvMin[1] > 1
			if mats := state.materials[lodLevel]; mtlCount < len(mats) {
				mats[mtlCount].IsTiled = tiled
			}
			uvMin = mgl32.Vec2{math32.MaxFloat32, math32.MaxFloat32}
			uvMax = mgl32.Vec2{-math32.MaxFloat32, -math32.MaxFloat32}
			mtlCount++

		case bytes.HasPrefix(line, []byte("f ")):
			fields := bytes.Fields(line[2:])
			if len(fields) != 3 && len(fields) != 4 {
				return fmt.Errorf("%w: %d corners", ErrUnsupportedFace, len(fields))
			}

			var face [4]faceIndex
			for k, field := range fields {
				p, t, n, err := parseFaceCorner(field)
				if err != nil {
					return err
				}
				maxPos = max(maxPos, p)
				maxTex = max(maxTex, t)
				maxNorm = max(maxNorm, n)
				face[k] = faceIndex{
					pos:  rebase(p, offPos),
					tex:  rebase(t, offTex),
					norm: rebase(n, offNorm),
				}
			}

			tm := &state.temp[meshIdx]
			tm.faces = append(tm.faces, face[0], face[1], face[2])
			if len(fields) == 4 {
				// Split the quad along the 0-2 diagonal.
				tm.faces = append(tm.faces, face[0], face[2], face[3])
			}
		}
	}

	state.meshes[lodLevel] = meshes
	return nil
}

// parseVec3 parses three whitespace-separated floats.
func parseVec3(b []byte) (mgl32.Vec3, error) {
	fields := bytes.Fields(b)
	if len(fields) < 3 {
		return mgl32.Vec3{}, fmt.Errorf("%w: %q", ErrMalformedFloat, b)
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := parseFloat(fields[i])
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}

// parseMtl scans a material library in two passes: the first counts
// "newmtl" statements to size the material list, the second fills it.
// Unknown statements and comments are ignored.
func parseMtl(state *loaderState, buf []byte, lodLevel int) {
	count := 0
	for i := 0; i < len(buf); {
		var line []byte
		line, i = nextLine(buf, i)
		fields := bytes.Fields(line)
		if len(fields) > 0 && string(fields[0]) == "newmtl" {
			count++
		}
	}

	mats := state.materials[lodLevel]
	if mats == nil {
		mats = make([]Material, 0, count)
	}

	cur := -1
	for i := 0; i < len(buf); {
		var line []byte
		line, i = nextLine(buf, i)

		fields := bytes.Fields(line)
		if len(fields) < 2 || fields[0][0] == '#' {
			continue
		}

		prefix := string(fields[0])
		value := string(fields[1])

		if prefix == "newmtl" {
			mats = append(mats, Material{Name: value})
			cur = len(mats) - 1
			continue
		}
		if cur < 0 {
			continue
		}

		switch prefix {
		case "map_Kd":
			mats[cur].DiffuseName = append(mats[cur].DiffuseName, value)
		case "map_Ks", "map_Ns":
			mats[cur].SpecularName = append(mats[cur].SpecularName, value)
		case "map_Bump", "bump":
			mats[cur].NormalName = append(mats[cur].NormalName, value)
		case "disp":
			mats[cur].HeightName = append(mats[cur].HeightName, value)
		}
	}

	state.materials[lodLevel] = mats
}
