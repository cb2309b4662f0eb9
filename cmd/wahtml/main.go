// Command wahtml builds and extracts polyglot HTML+tar artifacts.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/wahtml/wahtml/builder"
	"github.com/wahtml/wahtml/config"
	"github.com/wahtml/wahtml/internal/blobstore"
	"github.com/wahtml/wahtml/internal/walker"
	"github.com/wahtml/wahtml/sourcedoc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: wahtml build [config.yaml] | wahtml extract <saved.html> [outdir]")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "wahtml: unknown subcommand %q\n", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		slog.Error("wahtml", "error", err)
		os.Exit(1)
	}
}

func runBuild(args []string) error {
	cfgPath := "wahtml.yaml"
	if len(args) > 0 {
		cfgPath = args[0]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	blobs, err := blobstore.Open(cfg.BlobstoreDir)
	if err != nil {
		return err
	}
	defer blobs.Close()

	items, err := walker.Walk(cfg.Root, walker.Options{
		Include:           cfg.Include,
		Exclude:           cfg.Exclude,
		ExternalThreshold: cfg.ExternalThreshold,
		Blobs:             blobs,
	})
	if err != nil {
		return err
	}
	slog.Info("wahtml: walked root", "root", cfg.Root, "files", len(items))

	source, err := os.ReadFile(cfg.Output + ".src.html")
	if err != nil {
		return fmt.Errorf("wahtml: reading source template: %w", err)
	}

	var stage0 []byte
	if cfg.StageScript != "" {
		stage0, err = os.ReadFile(cfg.StageScript)
		if err != nil {
			return err
		}
	}

	out, err := builder.Build(source, func(push func(builder.Item)) error {
		for _, it := range items {
			switch {
			case it.Entry != nil:
				push(builder.EntryItem(*it.Entry))
			case it.External != nil:
				push(builder.ExternalItem(*it.External))
			}
		}
		return nil
	}, stage0)
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfg.Output, out, 0644); err != nil {
		return err
	}
	slog.Info("wahtml: wrote artifact", "path", cfg.Output, "bytes", len(out))
	return nil
}

func runExtract(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("wahtml: extract requires a saved document path")
	}
	text, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	entries, _, err := sourcedoc.SplitTarContents(text)
	if err != nil {
		return err
	}

	outDir := "extracted"
	if len(args) > 1 {
		outDir = args[1]
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	for _, e := range entries {
		dst := outDir + "/" + e.Name
		if err := os.WriteFile(dst, e.Data, 0644); err != nil {
			return err
		}
		slog.Info("wahtml: extracted", "name", e.Name, "bytes", len(e.Data))
	}
	return nil
}
