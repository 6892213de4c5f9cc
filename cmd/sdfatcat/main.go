// Command sdfatcat is a host-side demo of the fatfs/transport core: it
// mounts a raw FAT32 volume image (a plain file, standing in for the SD
// card a real build would talk to over SPI) and lets a caller list
// directories and dump files from the command line.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/avrtools/sdfat32/fatfs"
)

func main() {
	app := &cli.App{
		Name:  "sdfatcat",
		Usage: "Browse and read files from a raw FAT32 volume image",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List a directory",
				ArgsUsage: "IMAGE [PATH]",
				Action:    runLs,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents",
				ArgsUsage: "IMAGE PATH",
				Action:    runCat,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err)
	}
}

// imageSectorReader adapts a host file to fatfs.SectorReader, standing in
// for the real transport.SectorReader a board would use over SPI.
type imageSectorReader struct {
	f *os.File
}

func (r imageSectorReader) ReadSector(lba uint32, out *[512]byte) error {
	_, err := r.f.ReadAt(out[:], int64(lba)*512)
	return err
}

func openNavigator(imagePath string) (*fatfs.Navigator, *os.File, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, nil, err
	}

	reader := imageSectorReader{f: f}
	geom, err := fatfs.LoadBPB(reader, func() (uint32, bool) { return 0, true })
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("loading boot sector: %w", err)
	}

	return fatfs.NewNavigator(geom, reader), f, nil
}

// cdPath walks nav into each "/"-separated segment of path in turn.
func cdPath(nav *fatfs.Navigator, path string) error {
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if err := nav.Cd(seg); err != nil {
			return fmt.Errorf("cd %q: %w", seg, err)
		}
	}
	return nil
}

func runLs(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return cli.Exit("usage: sdfatcat ls IMAGE [PATH]", 1)
	}
	nav, f, err := openNavigator(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer f.Close()

	if path := c.Args().Get(1); path != "" {
		if err := cdPath(nav, path); err != nil {
			return err
		}
	}

	entries, err := nav.List()
	if err != nil {
		return fmt.Errorf("listing %s: %w", nav.Cursor().LongName, err)
	}

	for _, entry := range entries {
		name := entry.Short.ShortName
		if entry.LongName != "" {
			name = entry.LongName
		}
		kind := "-"
		if entry.Short.IsDirectory() {
			kind = "d"
		}
		fmt.Printf("%s %8d %s\n", kind, entry.Short.FileSize, name)
	}
	return nil
}

func runCat(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return cli.Exit("usage: sdfatcat cat IMAGE PATH", 1)
	}
	nav, f, err := openNavigator(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer f.Close()

	path := c.Args().Get(1)
	dir, file := splitDirAndFile(path)
	if dir != "" {
		if err := cdPath(nav, dir); err != nil {
			return err
		}
	}

	sink := stdoutSink{}
	if err := nav.ReadFile(file, sink); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func splitDirAndFile(path string) (dir, file string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// stdoutSink implements spi.Sink over the process's standard output, the
// host-side equivalent of the microcontroller's UART console.
type stdoutSink struct{}

func (stdoutSink) PutByte(b byte)  { os.Stdout.Write([]byte{b}) }
func (stdoutSink) PutText(s string) { os.Stdout.WriteString(s) }
