// objtool is a CLI utility for inspecting Wavefront OBJ/MTL models.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/Faultbox/objloader/internal/config"
	"github.com/Faultbox/objloader/internal/logger"
	"github.com/Faultbox/objloader/pkg/obj"
)

func main() {
	config.ParseFlags()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "info":
		cmdInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`objtool - Wavefront OBJ/MTL model utility

Usage:
  objtool [options] <command> [args]

Commands:
  info <file.obj>   Load a model and show per-LOD statistics

Options:
  -config <path>    Config file path
  -debug            Enable debug logging
  -threads <n>      Maximum worker threads (0 = synchronous)
  -tangents         Calculate tangent space
  -combine          Combine meshes per LOD
  -lods             Discover _lod<N> sibling files

Examples:
  objtool info rock.obj
  objtool -lods -tangents info rock.obj`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: objtool info <file.obj>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Console: true,
		File:    logger.DefaultFileConfig(cfg.Logging.LogFile),
	})
	defer log.Sync()

	loader := obj.NewLoader(cfg.Loader.MaxThreads, log)
	defer loader.Close()

	task, err := loader.LoadFile(args[0], flagsFromConfig(cfg.Loader))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	model, err := task.Result()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printModel(model)
}

func flagsFromConfig(lc config.LoaderConfig) obj.Flag {
	var flags obj.Flag
	if lc.Triangulate {
		flags |= obj.Triangulate
	}
	if lc.CalcTangents {
		flags |= obj.CalcTangents
	}
	if lc.JoinIdentical {
		flags |= obj.JoinIdentical
	}
	if lc.CombineMeshes {
		flags |= obj.CombineMeshes
	}
	if lc.LODs {
		flags |= obj.LODs
	}
	return flags
}

func printModel(model *obj.Model) {
	fmt.Printf("Model: %s\n", model.Path)
	fmt.Printf("  LOD levels: %d\n", model.LODLevels())
	fmt.Printf("  Vertices:   %d\n", model.TotalVertexCount())
	fmt.Printf("  Triangles:  %d\n", model.TotalTriangleCount())

	levels := make([]int, 0, len(model.Meshes))
	for level := range model.Meshes {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	for _, level := range levels {
		fmt.Printf("\nLOD %d:\n", level)
		for _, mesh := range model.Meshes[level] {
			fmt.Printf("  mesh %d %q material=%q vertices=%d indices=%d\n",
				mesh.MeshNumber, mesh.Name, mesh.Material,
				len(mesh.Vertices), len(mesh.Indices))
		}
		for _, mat := range model.Materials[level] {
			fmt.Printf("  material %q diffuse=%v tiled=%v\n",
				mat.Name, mat.DiffuseName, mat.IsTiled)
		}
	}

	if len(model.Combined) > 0 {
		fmt.Println("\nCombined:")
		for _, mesh := range model.Combined {
			fmt.Printf("  LOD %d vertices=%d indices=%d\n",
				mesh.LODLevel, len(mesh.Vertices), len(mesh.Indices))
		}
	}
}
