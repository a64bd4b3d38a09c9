package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
	"github.com/zerkman/zest/disks"
	"github.com/zerkman/zest/flopimg"
)

func showInfo(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no image given", 2)
	}
	options, err := imageOptions(c)
	if err != nil {
		return err
	}
	options.ReadOnly = true

	var result *multierror.Error
	for _, path := range c.Args().Slice() {
		img, err := flopimg.Open(path, options)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		geometry := img.Geometry()
		tracks, sides := img.Layout()
		fmt.Fprintf(c.App.Writer, "%s\n", path)
		fmt.Fprintf(c.App.Writer, "  format:   %s\n", img.Format())
		fmt.Fprintf(c.App.Writer, "  geometry: %s\n", geometry)
		if name, ok := disks.Describe(geometry); ok {
			fmt.Fprintf(c.App.Writer, "  preset:   %s\n", name)
		}
		fmt.Fprintf(c.App.Writer, "  tracks:   %d x %d sides of MFM\n", tracks, sides)
		if c.Bool("list") {
			if err := listRootDirectory(c, img); err != nil {
				result = multierror.Append(result, err)
			}
		}

		if err := img.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func listRootDirectory(c *cli.Context, img *flopimg.Image) error {
	dump := &bytes.Buffer{}
	if err := img.Export(dump, flopimg.FormatST); err != nil {
		return err
	}
	label, entries, err := disks.ReadRootDirectory(bytes.NewReader(dump.Bytes()))
	if err != nil {
		return err
	}

	if label != "" {
		fmt.Fprintf(c.App.Writer, "  volume:   %s\n", label)
	}
	for _, entry := range entries {
		size := fmt.Sprintf("%d", entry.Size)
		if entry.IsDir() {
			size = "<DIR>"
		}
		fmt.Fprintf(
			c.App.Writer,
			"    %-12s %8s  %s\n",
			entry.Name,
			size,
			entry.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

func convertImage(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("expected a source and a destination", 2)
	}
	options, err := imageOptions(c)
	if err != nil {
		return err
	}
	options.ReadOnly = true

	source, destination := c.Args().Get(0), c.Args().Get(1)
	format, err := flopimg.FormatFromPath(destination)
	if err != nil {
		return err
	}

	img, err := flopimg.Open(source, options)
	if err != nil {
		return err
	}
	defer img.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if c.Bool("force") {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(destination, flags, 0o644)
	if err != nil {
		return err
	}

	var result *multierror.Error
	if err := img.Export(out, format); err != nil {
		result = multierror.Append(result, err)
	}
	if err := out.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if result.ErrorOrNil() == nil {
		fmt.Fprintf(c.App.Writer, "Converted %s to %s (%s).\n", source, destination, format)
	}
	return result.ErrorOrNil()
}

func createImage(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected one image path", 2)
	}
	options, err := imageOptions(c)
	if err != nil {
		return err
	}
	preset, err := disks.GetPreset(c.String("preset"))
	if err != nil {
		return err
	}

	img, err := flopimg.Create(c.Args().First(), preset.Geometry(), options)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Created %s: %s.\n", img.Path(), preset.Name)
	return img.Close()
}

func listPresets(c *cli.Context) error {
	for _, p := range disks.Presets() {
		fmt.Fprintf(c.App.Writer, "%-14s %-44s %s\n", p.Slug, p.Name, p.Notes)
	}
	return nil
}
