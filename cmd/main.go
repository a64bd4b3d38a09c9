package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	"github.com/zerkman/zest/flopimg"
	"github.com/zerkman/zest/logger"
	"github.com/zerkman/zest/mfm"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// codecFlags select how images are encoded to MFM tracks. Every command that
// opens an image takes them.
func codecFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Load flag values from a YAML `FILE`",
		},
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "floppy.dialect",
			Usage:   fmt.Sprintf("MFM dialect of the hardware revision (%s)", mfm.DialectNames()),
			EnvVars: []string{"ZEST_FLOPPY_DIALECT"},
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:  "floppy.skew",
			Usage: "Sector skew between consecutive tracks",
			Value: 3,
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:  "floppy.interleave",
			Usage: "Sector interleave",
			Value: 1,
		}),
	}
}

// withConfig makes the flags of a command readable from the YAML file given
// with --config.
func withConfig(command *cli.Command) *cli.Command {
	command.Before = altsrc.InitInputSourceWithContext(
		command.Flags, altsrc.NewYamlSourceFromFlagFunc("config"))
	return command
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "zest-floppy",
		Usage: "Serve and manage Atari ST floppy images for the zeST FPGA core",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Echo the log to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logger.SetEcho(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			withConfig(&cli.Command{
				Name:   "run",
				Usage:  "Serve the floppy drives of the FPGA",
				Flags:  append(codecFlags(), runFlags()...),
				Action: runController,
			}),
			withConfig(&cli.Command{
				Name:      "info",
				Usage:     "Show the format and geometry of images",
				ArgsUsage: "IMAGE...",
				Flags: append(codecFlags(), &cli.BoolFlag{
					Name:  "list",
					Usage: "List the volume label and root directory of each disk",
				}),
				Action: showInfo,
			}),
			withConfig(&cli.Command{
				Name:      "convert",
				Usage:     "Convert an image to another format, chosen by extension",
				ArgsUsage: "SOURCE DESTINATION",
				Flags: append(codecFlags(), &cli.BoolFlag{
					Name:  "force",
					Usage: "Overwrite DESTINATION if it exists",
				}),
				Action: convertImage,
			}),
			withConfig(&cli.Command{
				Name:      "create",
				Usage:     "Create a blank formatted image",
				ArgsUsage: "IMAGE",
				Flags: append(
					codecFlags(),
					&cli.StringFlag{
						Name:  "preset",
						Usage: "Geometry preset, see the presets command",
						Value: "ds-dd-9",
					},
				),
				Action: createImage,
			}),
			{
				Name:   "presets",
				Usage:  "List the predefined disk geometries",
				Action: listPresets,
			},
		},
	}
}

// imageOptions builds the image options from the codec flags. There is no
// default dialect: it must match the hardware revision.
func imageOptions(c *cli.Context) (flopimg.Options, error) {
	dialect, err := mfm.DialectByName(c.String("floppy.dialect"))
	if err != nil {
		return flopimg.Options{}, cli.Exit(
			fmt.Sprintf("%s; set --floppy.dialect to one of: %s", err, mfm.DialectNames()), 2)
	}
	return flopimg.Options{
		Dialect:    dialect,
		Skew:       c.Int("floppy.skew"),
		Interleave: c.Int("floppy.interleave"),
	}, nil
}
