package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"disasmcore/core"
	"disasmcore/internal/dfs"
	"disasmcore/internal/mos6502"
)

var log = logrus.New()

func listDFS(file string) error {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return err
	}

	img := dfs.ParseImage(data)
	fmt.Printf("Disk Title  %s\n", img.Title)
	fmt.Printf("Num Files   %d\n", len(img.Files))
	fmt.Printf("Num Sectors %d\n", img.Sectors)
	fmt.Printf("Boot Option %d\n", img.BootOpt)
	fmt.Printf("Disk Cycle  0x%0X\n\n", img.Cycle)

	fmt.Println("Filename  Length LoadAddr ExecAddr Sector")
	for _, f := range img.Files {
		fmt.Printf("%-7s   %04X   %08X %08X %3d\n", f.Filename, f.Length, f.LoadAddr, f.ExecAddr, f.StartSector)
	}
	return nil
}

func extractFromDFS(file string, entries []string, outDir string) error {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return err
	}

	if outDir != "" {
		fi, err := os.Stat(outDir)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.Mkdir(outDir, os.ModePerm); err != nil {
					return fmt.Errorf("could not create directory %s: %w", outDir, err)
				}
			} else {
				return err
			}
		} else if !fi.IsDir() {
			return fmt.Errorf("output path %s is not a directory", outDir)
		}
	}

	wanted := make(map[string]bool, len(entries))
	for _, e := range entries {
		wanted[e] = true
	}

	img := dfs.ParseImage(data)
	for _, f := range img.Files {
		if len(entries) == 0 || wanted[f.Filename] {
			contents := img.Contents(data, f)
			ofn := path.Join(outDir, f.Filename)
			if err := ioutil.WriteFile(ofn, contents, 0644); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"file": f.Filename, "bytes": len(contents)}).Info("extracted")
		}
	}
	return nil
}

// projectForEntry loads a single DFS catalog entry into a fully
// discovered core.Project, wiring the 6502 decoder and the DFS loader.
func projectForEntry(image string, filename string) (*core.Project, error) {
	data, err := ioutil.ReadFile(image)
	if err != nil {
		return nil, err
	}

	img := dfs.ParseImage(data)
	var entry *dfs.Catalog
	for i := range img.Files {
		if img.Files[i].Filename == filename {
			entry = &img.Files[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("no such file %q in %s", filename, image)
	}

	contents := img.Contents(data, *entry)
	segments := dfs.ProgramSegments(*entry, contents)

	log.WithFields(logrus.Fields{
		"file":     entry.Filename,
		"loadAddr": fmt.Sprintf("$%04X", entry.LoadAddr),
		"execAddr": fmt.Sprintf("$%04X", entry.ExecAddr),
		"length":   entry.Length,
	}).Info("discovering code")

	p := core.NewProject(segments, core.NewProjectOptions{
		Loader:       dfs.Loader{},
		Decoder:      mos6502.New(),
		SystemName:   "bbc-micro",
		Entrypoint:   uint64(entry.ExecAddr),
		IsBinary:     true,
		OriginalData: contents,
		Log:          log,
	})
	return p, nil
}

func printProject(p *core.Project) {
	n := p.FileLineCount()
	for i := 0; i < n; i++ {
		offset, _ := p.FileLine(i, core.LIOffset)
		bytes, _ := p.FileLine(i, core.LIBytes)
		label, _ := p.FileLine(i, core.LILabel)
		instr, _ := p.FileLine(i, core.LIInstruction)
		operands, _ := p.FileLine(i, core.LIOperands)
		fmt.Printf("%-8s %-12s %-10s %-6s %s\n", offset, bytes, label, instr, operands)
	}
}

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := cli.NewApp()
	app.Name = "disasmcore"
	app.Usage = "Interactive-disassembler analysis core for BBC Micro DFS images"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "list",
			Aliases:   []string{"ls"},
			Usage:     "List a DFS disk image's catalog",
			ArgsUsage: "image",
			Action: func(c *cli.Context) error {
				if c.Args().Len() < 1 {
					return cli.Exit("insufficient arguments", 1)
				}
				return listDFS(c.Args().First())
			},
		},
		{
			Name:      "extract",
			Aliases:   []string{"x"},
			Usage:     "Extract one or more files from a DFS disk image",
			ArgsUsage: "[--outdir outDir] image [entry] [entry] ... [entry]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "outdir", Value: ".", Usage: "output directory for extracted files"},
			},
			Action: func(c *cli.Context) error {
				image := c.Args().First()
				if image == "" {
					return cli.Exit("no image provided", 1)
				}
				if err := extractFromDFS(image, c.Args().Tail(), c.String("outdir")); err != nil {
					return cli.Exit(fmt.Sprintf("could not extract from image: %v", err), 1)
				}
				return nil
			},
		},
		{
			Name:      "disasm",
			Aliases:   []string{"d"},
			Usage:     "Run the analysis core over a file and print its disassembly",
			ArgsUsage: "image entry",
			Action: func(c *cli.Context) error {
				if c.Args().Len() < 2 {
					return cli.Exit("insufficient arguments", 1)
				}
				p, err := projectForEntry(c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}
				printProject(p)
				return nil
			},
		},
		{
			Name:      "refs",
			Usage:     "List uncertain code and data references discovery could not resolve",
			ArgsUsage: "image entry",
			Action: func(c *cli.Context) error {
				if c.Args().Len() < 2 {
					return cli.Exit("insufficient arguments", 1)
				}
				p, err := projectForEntry(c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, r := range p.UncertainCodeReferences() {
					fmt.Printf("CODE $%04X -> $%04X %s\n", r.InstrAddress, r.Target, r.Rendered)
				}
				for _, r := range p.UncertainDataReferences() {
					fmt.Printf("DATA $%04X -> $%04X %s\n", r.InstrAddress, r.Target, r.Rendered)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("disasmcore failed")
		os.Exit(1)
	}
}
