// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command kar builds, lists and extracts kar archives.
//
//	kar build [-o out.kar] [-author name] [-version n] [-level n] paths...
//	kar shaders [-o shaders.kar]
//	kar list archive.kar
//	kar extract [-C dir] archive.kar [names...]
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/devblok/prism/core"
	"github.com/devblok/prism/utility/kar"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Name
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kar build|shaders|list|extract [flags] [args]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "build":
		err = build(args)
	case "shaders":
		err = shaders(args)
	case "list":
		err = list(args)
	case "extract":
		err = extract(args)
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newBuilder(author string, version int64, level int) (*kar.Builder, error) {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      author,
		DateCreated: time.Now().Unix(),
		Version:     version,
	})
	if err != nil {
		return nil, err
	}
	builder.SetCompression(kar.CompressionLevel(level))
	return builder, nil
}

func writeArchive(builder *kar.Builder, out string) error {
	if _, err := os.Stat(out); err == nil {
		return errors.Errorf("%s exists, will not overwrite", out)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	n, err := builder.WriteTo(f)
	if err != nil {
		f.Close()
		return errors.Wrap(err, out)
	}
	log.WithFields(log.Fields{
		"archive": out,
		"files":   builder.Len(),
		"bytes":   n,
	}).Info("archive written")
	return f.Close()
}

func build(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "out.kar", "archive to write")
	author := fs.String("author", currentUserName(), "author recorded in the header")
	version := fs.Int64("version", 1, "archive version number")
	level := fs.Int("level", int(kar.CompressionDefault), "lz4 compression level, 0 to 9")
	fs.Parse(args)

	builder, err := newBuilder(*author, *version, *level)
	if err != nil {
		return err
	}
	defer builder.Close()

	for _, root := range fs.Args() {
		if err := addPath(builder, root); err != nil {
			return err
		}
	}
	return writeArchive(builder, *out)
}

// addPath adds a single file under its base name, or every file of a
// directory under its slash separated path relative to the directory.
func addPath(builder *kar.Builder, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return addFile(builder, filepath.Base(root), root)
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addFile(builder, filepath.ToSlash(rel), path)
	})
}

func addFile(builder *kar.Builder, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := builder.Add(name, f); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

// shaders packs the shaders compiled into the binary, so they can be
// replaced without rebuilding.
func shaders(args []string) error {
	fs := flag.NewFlagSet("shaders", flag.ExitOnError)
	out := fs.String("o", "shaders.kar", "archive to write")
	fs.Parse(args)

	builder, err := newBuilder(currentUserName(), 1, int(kar.CompressionMax))
	if err != nil {
		return err
	}
	defer builder.Close()

	box := core.EmbeddedShaders()
	files, err := box.Files()
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := box.Shader(file.Name)
		if err != nil {
			return err
		}
		if err := builder.Add(file.Name, bytes.NewReader(data)); err != nil {
			return errors.Wrap(err, file.Name)
		}
		log.WithFields(log.Fields{"shader": file.Name, "stage": file.Stage}).Debug("packed")
	}
	return writeArchive(builder, *out)
}

func list(args []string) error {
	if len(args) != 1 {
		usage()
	}
	ar, err := kar.OpenFile(args[0])
	if err != nil {
		return errors.Wrap(err, args[0])
	}
	defer ar.Close()

	header := ar.Header()
	fmt.Printf("author: %s\nversion: %d\ncreated: %s\n\n",
		header.Author, header.Version, time.Unix(header.DateCreated, 0).Format(time.RFC3339))

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tCOMPRESSED")
	for _, name := range ar.Names() {
		e, err := ar.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", e.Name, e.Size, e.CompressedSize)
	}
	return tw.Flush()
}

func extract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	dir := fs.String("C", ".", "directory to extract into")
	fs.Parse(args)
	if fs.NArg() < 1 {
		usage()
	}

	ar, err := kar.OpenFile(fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, fs.Arg(0))
	}
	defer ar.Close()

	names := fs.Args()[1:]
	if len(names) == 0 {
		names = ar.Names()
	}
	for _, name := range names {
		if err := extractFile(ar.Archive, name, *dir); err != nil {
			return errors.Wrap(err, name)
		}
	}
	return nil
}

func extractFile(ar *kar.Archive, name, dir string) error {
	dst := filepath.Join(dir, filepath.FromSlash(name))
	if rel, err := filepath.Rel(dir, dst); err != nil || strings.HasPrefix(rel, "..") {
		return errors.New("entry escapes the destination directory")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	r, err := ar.Open(name)
	if err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	log.WithFields(log.Fields{"entry": name, "bytes": r.Size()}).Debug("extracted")
	return f.Close()
}
