package obj

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/objloader/pkg/pool"
)

const loaderCubeObj = `mtllib cube.mtl
o Cube
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl Stone
f 1/1/1 2/2/1 3/3/1
f 1/1/1 3/3/1 4/4/1
`

const loaderCubeMtl = `newmtl Stone
map_Kd stone.png
`

func writeModel(t *testing.T, dir, stem string, withMtl bool) string {
	t.Helper()
	objPath := filepath.Join(dir, stem+".obj")
	if err := os.WriteFile(objPath, []byte(loaderCubeObj), 0644); err != nil {
		t.Fatalf("writing obj: %v", err)
	}
	if withMtl {
		mtlPath := filepath.Join(dir, stem+".mtl")
		if err := os.WriteFile(mtlPath, []byte(loaderCubeMtl), 0644); err != nil {
			t.Fatalf("writing mtl: %v", err)
		}
	}
	return objPath
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	objPath := writeModel(t, dir, "cube", true)

	loader := NewLoader(2, nil)
	defer loader.Close()

	task, err := loader.LoadFile(objPath, Triangulate|JoinIdentical)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	model, err := task.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}

	if model.Path != objPath {
		t.Errorf("model path = %q, want %q", model.Path, objPath)
	}

	meshes := model.Meshes[0]
	if len(meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(meshes))
	}
	if len(meshes[0].Vertices) != 4 {
		t.Errorf("vertices = %d, want 4 after dedupe", len(meshes[0].Vertices))
	}
	if len(meshes[0].Indices) != 6 {
		t.Errorf("indices = %d, want 6", len(meshes[0].Indices))
	}

	mats := model.Materials[0]
	if len(mats) != 1 || mats[0].Name != "Stone" {
		t.Errorf("materials = %+v, want one Stone material", mats)
	}
}

func TestLoadFileMissingObj(t *testing.T) {
	loader := NewLoader(0, nil)
	defer loader.Close()

	if _, err := loader.LoadFile(filepath.Join(t.TempDir(), "missing.obj"), 0); err == nil {
		t.Fatal("LoadFile succeeded for a missing obj file")
	}
}

func TestLoadFileMissingMtl(t *testing.T) {
	dir := t.TempDir()
	objPath := writeModel(t, dir, "cube", false)

	core, logs := observer.New(zap.WarnLevel)
	loader := NewLoader(0, zap.New(core))
	defer loader.Close()

	task, err := loader.LoadFile(objPath, Triangulate)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	model, err := task.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}

	if len(model.Materials[0]) != 0 {
		t.Errorf("materials = %+v, want none", model.Materials[0])
	}
	if logs.FilterMessage("no mtl found for obj file").Len() != 1 {
		t.Errorf("expected one missing-mtl warning, got %d entries", logs.Len())
	}
}

func TestLoadFileParseErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "bad.obj")
	if err := os.WriteFile(objPath, []byte("o A\nv 1 bad 3\n"), 0644); err != nil {
		t.Fatalf("writing obj: %v", err)
	}

	loader := NewLoader(2, nil)
	defer loader.Close()

	task, err := loader.LoadFile(objPath, 0)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if _, err := task.Result(); !errors.Is(err, ErrMalformedFloat) {
		t.Errorf("Result() error = %v, want %v", err, ErrMalformedFloat)
	}
}

func TestLoadFileLODs(t *testing.T) {
	dir := t.TempDir()
	objPath := writeModel(t, dir, "rock", true)

	lodObj := filepath.Join(dir, "rock_lod1.obj")
	if err := os.WriteFile(lodObj, []byte(loaderCubeObj), 0644); err != nil {
		t.Fatalf("writing lod obj: %v", err)
	}
	lodMtl := filepath.Join(dir, "rock_lod1.mtl")
	if err := os.WriteFile(lodMtl, []byte(loaderCubeMtl), 0644); err != nil {
		t.Fatalf("writing lod mtl: %v", err)
	}

	loader := NewLoader(2, nil)
	defer loader.Close()

	task, err := loader.LoadFile(objPath, Triangulate|LODs|CombineMeshes)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	model, err := task.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}

	if model.LODLevels() != 2 {
		t.Fatalf("LODLevels() = %d, want 2", model.LODLevels())
	}
	for _, mesh := range model.Meshes[1] {
		if mesh.LODLevel != 1 {
			t.Errorf("lod1 mesh has LODLevel %d", mesh.LODLevel)
		}
	}
	if len(model.Combined) != 2 {
		t.Errorf("combined meshes = %d, want one per LOD", len(model.Combined))
	}
}

func TestLoadFileConcurrent(t *testing.T) {
	dir := t.TempDir()

	loader := NewLoader(4, nil)
	defer loader.Close()

	const loads = 16
	tasks := make([]*pool.Task[*Model], 0, loads)

	for i := 0; i < loads; i++ {
		objPath := writeModel(t, dir, fmt.Sprintf("model%d", i), true)
		task, err := loader.LoadFile(objPath, Triangulate|JoinIdentical|CalcTangents)
		if err != nil {
			t.Fatalf("LoadFile %d: %v", i, err)
		}
		tasks = append(tasks, task)
	}

	for i, task := range tasks {
		model, err := task.Result()
		if err != nil {
			t.Fatalf("load %d failed: %v", i, err)
		}
		if model.TotalVertexCount() == 0 {
			t.Errorf("load %d produced an empty model", i)
		}
	}

	if loader.WorkerCount() > 4 {
		t.Errorf("WorkerCount() = %d, want <= 4", loader.WorkerCount())
	}
}

func TestLoaderDegenerateMode(t *testing.T) {
	dir := t.TempDir()
	objPath := writeModel(t, dir, "cube", true)

	loader := NewLoader(0, nil)
	defer loader.Close()

	task, err := loader.LoadFile(objPath, Triangulate)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := task.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}
	if loader.WorkerCount() != 0 {
		t.Errorf("WorkerCount() = %d, want 0", loader.WorkerCount())
	}
}
