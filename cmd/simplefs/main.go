package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/config"
	"github.com/mit-pdos/simplefs/disk"
	"github.com/mit-pdos/simplefs/fs"
	"github.com/mit-pdos/simplefs/util"
)

// the root directory is the first inode a freshly formatted volume hands out
const rootInum common.Inum = 0

func mkApp() *cli.App {
	return &cli.App{
		Name:  "simplefs",
		Usage: "inspect and modify a simplefs volume image",
		Description: "The volume path, its size in blocks and the debug " +
			"level come from SIMPLEFS_CONFIG_FILE and SIMPLEFS_* " +
			"environment variables. Paths are absolute; a bare number " +
			"names an inode directly.",
		Commands: []*cli.Command{{
			Name:  "format",
			Usage: "lay out an empty volume with a root directory",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "reset",
					Usage: "zero every data block too",
				},
			},
			Action: withConfig(func(c *config.Config, ctx *cli.Context) error {
				d, err := disk.NewFileDisk(c.Volume, c.Blocks)
				if err != nil {
					return err
				}
				defer d.Close()
				filesys := fs.MkFilesystem()
				if err := filesys.Format(d, ctx.Bool("reset")); err != nil {
					return err
				}
				if err := filesys.Mount(d); err != nil {
					return err
				}
				root, err := filesys.MkRoot()
				if err != nil {
					return err
				}
				if root != rootInum {
					return fmt.Errorf("root created as inode %d", root)
				}
				fmt.Print(filesys.Describe())
				return d.Barrier()
			}),
		}, {
			Name:  "describe",
			Usage: "print the volume layout",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				pretty.Println(filesys.Describe())
				return nil
			}),
		}, {
			Name:  "usage",
			Usage: "print how many inodes and data blocks are in use",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				pretty.Println(filesys.Usage())
				return nil
			}),
		}, {
			Name:      "mkdir",
			Usage:     "create a directory",
			ArgsUsage: "PATH",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				parent, name, err := splitArg(filesys, ctx)
				if err != nil {
					return err
				}
				inum, err := filesys.Mkdir(parent, name)
				if err != nil {
					return err
				}
				fmt.Println(inum)
				return nil
			}),
		}, {
			Name:      "touch",
			Aliases:   []string{"create"},
			Usage:     "create an empty file",
			ArgsUsage: "PATH",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				parent, name, err := splitArg(filesys, ctx)
				if err != nil {
					return err
				}
				inum, err := filesys.Mkfile(parent, name)
				if err != nil {
					return err
				}
				fmt.Println(inum)
				return nil
			}),
		}, {
			Name:  "rm",
			Usage: "release an inode and its blocks",
			Description: "Entries naming the inode are left in their " +
				"directories.",
			ArgsUsage: "PATH|INUM",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				inum, err := resolveArg(filesys, ctx)
				if err != nil {
					return err
				}
				return filesys.Delete(inum)
			}),
		}, {
			Name:      "ls",
			Usage:     "list a directory",
			ArgsUsage: "[PATH|INUM]",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				inum := rootInum
				if ctx.NArg() > 0 {
					var err error
					if inum, err = resolveArg(filesys, ctx); err != nil {
						return err
					}
				}
				ents, err := filesys.Entries(inum)
				if err != nil {
					return err
				}
				for _, ent := range ents {
					fmt.Printf("%6d %s\n", ent.Inum, ent.Name)
				}
				return nil
			}),
		}, {
			Name:      "stat",
			Usage:     "print an inode's attribute record",
			ArgsUsage: "PATH|INUM",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				inum, err := resolveArg(filesys, ctx)
				if err != nil {
					return err
				}
				st, err := filesys.ReadMetadata(inum)
				if err != nil {
					return err
				}
				pretty.Println(st)
				return nil
			}),
		}, {
			Name:      "inode",
			Usage:     "print an inode record and its block pointers",
			ArgsUsage: "PATH|INUM",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				inum, err := resolveArg(filesys, ctx)
				if err != nil {
					return err
				}
				ip, err := filesys.ReadInode(inum)
				if err != nil {
					return err
				}
				pretty.Println(ip)
				return nil
			}),
		}, {
			Name:      "write",
			Usage:     "write the argument text into a file",
			ArgsUsage: "PATH|INUM TEXT",
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:  "offset",
					Usage: "byte offset to write at",
				},
			},
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				if ctx.NArg() != 2 {
					return fmt.Errorf("expected a file and the text to write")
				}
				inum, err := resolveArg(filesys, ctx)
				if err != nil {
					return err
				}
				_, err = filesys.WriteAt(
					inum,
					[]byte(ctx.Args().Get(1)),
					ctx.Uint64("offset"),
				)
				return err
			}),
		}, {
			Name:      "cat",
			Usage:     "print a file's contents",
			ArgsUsage: "PATH|INUM",
			Action: withFs(func(filesys *fs.Filesystem, ctx *cli.Context) error {
				inum, err := resolveArg(filesys, ctx)
				if err != nil {
					return err
				}
				buf := make([]byte, disk.BlockSize)
				var off uint64
				for {
					n, err := filesys.ReadAt(inum, buf, off)
					if err == io.EOF {
						return nil
					}
					if err != nil {
						return err
					}
					os.Stdout.Write(buf[:n])
					off += uint64(n)
				}
			}),
		}},
	}
}

func main() {
	if err := mkApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withConfig(
	f func(*config.Config, *cli.Context) error,
) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		util.SetDebug(c.Debug)
		return f(c, ctx)
	}
}

// withFs mounts the configured volume for the duration of f. The image is
// used at its current size; the superblock decides how much of it is used.
func withFs(
	f func(*fs.Filesystem, *cli.Context) error,
) func(*cli.Context) error {
	return withConfig(func(c *config.Config, ctx *cli.Context) error {
		// only format may resize the image
		d, err := disk.OpenFileDisk(c.Volume)
		if err != nil {
			return err
		}
		defer d.Close()
		filesys := fs.MkFilesystem()
		if err := filesys.Mount(d); err != nil {
			return fmt.Errorf("mounting %s: %w", c.Volume, err)
		}
		defer filesys.Unmount()
		if err := f(filesys, ctx); err != nil {
			return err
		}
		return d.Barrier()
	})
}

// resolve walks path from the root directory. A path that parses as a
// number is taken as an inode number.
func resolve(filesys *fs.Filesystem, path string) (common.Inum, error) {
	if n, err := strconv.ParseUint(path, 10, 64); err == nil {
		return common.Inum(n), nil
	}
	if !strings.HasPrefix(path, "/") {
		return common.NULLINUM, fmt.Errorf("%s: path must be absolute", path)
	}
	inum := rootInum
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		next, ok, err := filesys.Lookup(inum, name)
		if err != nil {
			return common.NULLINUM, err
		}
		if !ok {
			return common.NULLINUM, fmt.Errorf("%s: %s not found", path, name)
		}
		inum = next
	}
	return inum, nil
}

func resolveArg(filesys *fs.Filesystem, ctx *cli.Context) (common.Inum, error) {
	if ctx.NArg() < 1 {
		return common.NULLINUM, fmt.Errorf("missing argument")
	}
	return resolve(filesys, ctx.Args().First())
}

// splitArg resolves the directory holding the path argument and returns it
// with the final name.
func splitArg(
	filesys *fs.Filesystem,
	ctx *cli.Context,
) (common.Inum, string, error) {
	if ctx.NArg() != 1 {
		return common.NULLINUM, "", fmt.Errorf("expected one path")
	}
	path := strings.TrimRight(ctx.Args().First(), "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return common.NULLINUM, "", fmt.Errorf("%s: path must be absolute", path)
	}
	parent, err := resolve(filesys, path[:i]+"/")
	if err != nil {
		return common.NULLINUM, "", err
	}
	return parent, path[i+1:], nil
}
